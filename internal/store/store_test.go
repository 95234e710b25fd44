package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/pkg/models"
)

func rec(id string, createdAt int64) models.NotificationRecord {
	return models.NotificationRecord{
		ID:        id,
		Title:     "title " + id,
		Type:      "comment",
		CreatedAt: createdAt,
	}
}

func TestInsert_OrdersByCreatedAtDescending(t *testing.T) {
	s := New(10)

	require.True(t, s.Insert(rec("b", 200), false))
	require.True(t, s.Insert(rec("a", 100), false))
	require.True(t, s.Insert(rec("c", 300), false))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "a", snap[2].ID)
}

func TestInsert_DuplicateIsNoOp(t *testing.T) {
	s := New(10)

	require.True(t, s.Insert(rec("a", 100), true))
	assert.Equal(t, 1, s.Unread())

	dup := rec("a", 100)
	dup.Title = "changed"
	assert.False(t, s.Insert(dup, true))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Unread(), "duplicate must not bump the counter")

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "title a", got.Title, "first write wins")
}

func TestInsert_EmptyIDRejected(t *testing.T) {
	s := New(10)
	assert.False(t, s.Insert(rec("", 100), true))
	assert.Equal(t, 0, s.Len())
}

func TestInsert_EvictsOldestOverCap(t *testing.T) {
	s := New(3)

	for i := 1; i <= 4; i++ {
		require.True(t, s.Insert(rec(fmt.Sprintf("n%d", i), int64(i*100)), false))
	}

	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Has("n1"), "oldest record evicted")
	assert.True(t, s.Has("n4"))

	// An evicted id is no longer in the dedup set and may return.
	assert.True(t, s.Insert(rec("n1", 100), false))
}

func TestInsert_LiveControlsUnreadCounter(t *testing.T) {
	s := New(10)
	s.SeedUnread(5)

	// Hydration replay: counter untouched.
	require.True(t, s.Insert(rec("h1", 100), false))
	assert.Equal(t, 5, s.Unread())

	// Live unread record: counter increments.
	require.True(t, s.Insert(rec("l1", 200), true))
	assert.Equal(t, 6, s.Unread())

	// Live but already read: counter untouched.
	read := rec("l2", 300)
	ts := int64(301)
	read.ReadAt = &ts
	require.True(t, s.Insert(read, true))
	assert.Equal(t, 6, s.Unread())
}

func TestMarkRead(t *testing.T) {
	s := New(10)
	require.True(t, s.Insert(rec("a", 100), true))
	require.True(t, s.Insert(rec("b", 200), true))
	require.Equal(t, 2, s.Unread())

	assert.True(t, s.MarkRead("a"))
	assert.Equal(t, 1, s.Unread())

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.False(t, got.Unread())

	// Already read and unknown ids are no-ops.
	assert.False(t, s.MarkRead("a"))
	assert.False(t, s.MarkRead("missing"))
	assert.Equal(t, 1, s.Unread())
}

func TestMarkAllRead(t *testing.T) {
	s := New(10)
	require.True(t, s.Insert(rec("a", 100), true))
	require.True(t, s.Insert(rec("b", 200), true))
	s.SeedUnread(7)

	assert.Equal(t, 2, s.MarkAllRead())
	assert.Equal(t, 0, s.Unread(), "counter zeroed even when seed exceeded local records")

	for _, r := range s.Snapshot() {
		assert.False(t, r.Unread())
	}

	assert.Equal(t, 0, s.MarkAllRead())
}

func TestPatchHref(t *testing.T) {
	s := New(10)
	require.True(t, s.Insert(rec("a", 100), false))

	assert.True(t, s.PatchHref("a", "/campaigns/summer"))
	got, _ := s.Get("a")
	assert.Equal(t, "/campaigns/summer", got.Href)

	// A set href is never overwritten.
	assert.False(t, s.PatchHref("a", "/campaigns/other"))
	got, _ = s.Get("a")
	assert.Equal(t, "/campaigns/summer", got.Href)

	assert.False(t, s.PatchHref("missing", "/x"))
	assert.False(t, s.PatchHref("a", ""))
}

func TestSeedUnread(t *testing.T) {
	s := New(10)

	s.SeedUnread(12)
	assert.Equal(t, 12, s.Unread())

	s.SeedUnread(-3)
	assert.Equal(t, 0, s.Unread())
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := New(10)
	require.True(t, s.Insert(rec("a", 100), false))

	snap := s.Snapshot()
	snap[0].Title = "mutated"

	got, _ := s.Get("a")
	assert.Equal(t, "title a", got.Title)
}
