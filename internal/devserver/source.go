package devserver

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"beacon/internal/logger"
	"beacon/pkg/models"
)

type campaign struct {
	id    string
	slug  string
	title string
}

var fixtureCampaigns = []campaign{
	{id: "101", slug: "summer-innovation", title: "Summer Innovation Challenge"},
	{id: "102", slug: "green-office", title: "Green Office Ideas"},
	{id: "103", slug: "customer-voice", title: "Customer Voice 2026"},
	{id: "999", slug: "", title: "Unlinked Campaign"},
}

// Source holds the fixture notification state behind the dev endpoints: a
// seeded backlog, the campaign slug map, and a generator that emits a fresh
// notification to every connected stream on a fixed interval.
type Source struct {
	log      logger.Logger
	interval time.Duration

	mu      sync.Mutex
	records []models.NotificationRecord
	subs    map[chan models.NotificationRecord]struct{}
}

func NewSource(log logger.Logger, interval time.Duration) *Source {
	s := &Source{
		log:      log,
		interval: interval,
		subs:     make(map[chan models.NotificationRecord]struct{}),
	}
	s.seed()
	return s
}

// seed creates a small backlog with mixed read state so a hydrating client
// has something to replay.
func (s *Source) seed() {
	now := time.Now().UnixMilli()
	read := now - 3600_000

	s.records = []models.NotificationRecord{
		{
			ID:        uuid.NewString(),
			Title:     "Your idea reached the review stage",
			Type:      "stage_change",
			CreatedAt: now - 60_000,
			Meta:      models.Meta{CampaignID: "101", SolutionID: "5001"},
		},
		{
			ID:        uuid.NewString(),
			Title:     "New comment on your idea",
			Body:      "Great point about the rollout timeline.",
			Type:      "comment",
			CreatedAt: now - 300_000,
			Meta:      models.Meta{CampaignID: "102", SolutionID: "5002", CommentID: "9001"},
		},
		{
			ID:        uuid.NewString(),
			Title:     "Welcome to the platform",
			Type:      "system",
			CreatedAt: now - 7200_000,
			ReadAt:    &read,
			Href:      "/getting-started",
		},
	}
}

// Backlog returns a snapshot of the current records, newest first.
func (s *Source) Backlog() []models.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.NotificationRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Source) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.records {
		if s.records[i].Unread() {
			count++
		}
	}
	return count
}

// Slugs returns the campaign id to slug mapping. Campaigns without a slug
// are omitted, matching a backend that only exposes routable campaigns.
func (s *Source) Slugs() models.SlugMap {
	slugs := make(models.SlugMap, len(fixtureCampaigns))
	for _, c := range fixtureCampaigns {
		if c.slug != "" {
			slugs[c.id] = c.slug
		}
	}
	return slugs
}

func (s *Source) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	for i := range s.records {
		if s.records[i].ID == id {
			if s.records[i].ReadAt == nil {
				s.records[i].ReadAt = &now
			}
			return true
		}
	}
	return false
}

func (s *Source) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	marked := 0
	for i := range s.records {
		if s.records[i].ReadAt == nil {
			s.records[i].ReadAt = &now
			marked++
		}
	}
	return marked
}

// Subscribe registers a live feed for one stream connection. The returned
// cancel function must be called when the connection closes.
func (s *Source) Subscribe() (<-chan models.NotificationRecord, func()) {
	ch := make(chan models.NotificationRecord, 16)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// Run emits a generated notification on every tick until ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rec := s.generate()
			s.emit(rec)
			s.log.InfowCtx(ctx, "Emitted notification",
				"notification_id", rec.ID,
				"type", rec.Type,
			)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Source) generate() models.NotificationRecord {
	c := fixtureCampaigns[rand.Intn(len(fixtureCampaigns))]

	rec := models.NotificationRecord{
		ID:        uuid.NewString(),
		Title:     "Activity in " + c.title,
		Type:      "activity",
		CreatedAt: time.Now().UnixMilli(),
		Meta:      models.Meta{CampaignID: models.FlexID(c.id)},
	}
	if rand.Intn(2) == 0 {
		rec.Type = "comment"
		rec.Meta.SolutionID = models.FlexID(uuid.NewString()[:8])
		rec.Meta.CommentID = models.FlexID(uuid.NewString()[:8])
	}
	return rec
}

func (s *Source) emit(rec models.NotificationRecord) {
	s.mu.Lock()
	s.records = append([]models.NotificationRecord{rec}, s.records...)
	for ch := range s.subs {
		select {
		case ch <- rec:
		default:
			// Slow consumer; it will catch up on its next hydration.
		}
	}
	s.mu.Unlock()
}
