package store

import (
	"sync"
	"time"

	"beacon/internal/constants"
	"beacon/pkg/metrics"
	"beacon/pkg/models"
)

// Store is the bounded, createdAt-descending, id-deduplicated notification
// list plus the unread counter. One instance is owned exclusively by one
// client; all access goes through the mutex.
//
// The id index doubles as the dedup set shared by channel-origin and
// bus-origin records: Insert reports whether the record was new, and the
// caller derives counter increments and UI signals from that.
type Store struct {
	mu     sync.RWMutex
	cap    int
	byID   map[string]*models.NotificationRecord
	list   []*models.NotificationRecord
	unread int
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = constants.DefaultStoreCap
	}
	return &Store{
		cap:  capacity,
		byID: make(map[string]*models.NotificationRecord),
	}
}

// Insert adds a record unless its id is already known. live controls the
// unread counter: hydration replay inserts records for display but must not
// increment a counter the authoritative seed already set.
func (s *Store) Insert(rec models.NotificationRecord, live bool) bool {
	if rec.ID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.byID[rec.ID]; seen {
		return false
	}

	r := rec
	idx := 0
	for idx < len(s.list) && s.list[idx].CreatedAt >= r.CreatedAt {
		idx++
	}
	s.list = append(s.list, nil)
	copy(s.list[idx+1:], s.list[idx:])
	s.list[idx] = &r
	s.byID[r.ID] = &r

	if len(s.list) > s.cap {
		oldest := s.list[len(s.list)-1]
		s.list = s.list[:len(s.list)-1]
		delete(s.byID, oldest.ID)
	}

	if live && r.Unread() {
		s.unread++
	}

	s.updateMetricsLocked()
	return true
}

// MarkRead sets readAt on the matching record. No-op if the id is unknown
// or the record is already read.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || !r.Unread() {
		return false
	}

	now := time.Now().UnixMilli()
	r.ReadAt = &now
	if s.unread > 0 {
		s.unread--
	}

	s.updateMetricsLocked()
	return true
}

// MarkAllRead sets readAt on every unread record and zeroes the counter in
// one operation. Returns the number of records transitioned.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	changed := 0
	for _, r := range s.list {
		if r.Unread() {
			ts := now
			r.ReadAt = &ts
			changed++
		}
	}
	s.unread = 0

	s.updateMetricsLocked()
	return changed
}

// PatchHref fills in a late-resolved href. Ordering and read state are
// untouched; a record whose href is already set keeps it.
func (s *Store) PatchHref(id, href string) bool {
	if href == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || r.Href != "" {
		return false
	}
	r.Href = href
	return true
}

// SeedUnread overwrites the counter with the authoritative server count.
func (s *Store) SeedUnread(count int) {
	if count < 0 {
		count = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unread = count
	s.updateMetricsLocked()
}

// Has reports whether the id is in the dedup set.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok
}

func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.unread
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.list)
}

// Snapshot returns a copy of the list, most recent first.
func (s *Store) Snapshot() []models.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.NotificationRecord, len(s.list))
	for i, r := range s.list {
		out[i] = *r
	}
	return out
}

// Get returns a copy of one record by id.
func (s *Store) Get(id string) (models.NotificationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return models.NotificationRecord{}, false
	}
	return *r, true
}

func (s *Store) updateMetricsLocked() {
	metrics.StoreSize.Set(float64(len(s.list)))
	metrics.StoreUnread.Set(float64(s.unread))
}
