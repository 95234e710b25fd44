package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/logger"
	"beacon/pkg/models"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	slugs models.SlugMap
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) FetchSlugMap(ctx context.Context) (models.SlugMap, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.slugs, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(f Fetcher) *Resolver {
	return New(f, logger.NopLogger(), WithMinRefreshInterval(time.Millisecond))
}

func TestLookup_MissThenHitAfterRefresh(t *testing.T) {
	f := &fakeFetcher{slugs: models.SlugMap{"42": "summer-innovation"}}
	r := newTestResolver(f)

	_, ok := r.Lookup("42")
	require.False(t, ok)

	done := make(chan string, 1)
	r.Refresh(context.Background(), "42", func(slug string, ok bool) {
		require.True(t, ok)
		done <- slug
	})

	select {
	case slug := <-done:
		assert.Equal(t, "summer-innovation", slug)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback never fired")
	}

	slug, ok := r.Lookup("42")
	require.True(t, ok)
	assert.Equal(t, "summer-innovation", slug)
	assert.Equal(t, 1, f.callCount())
}

func TestRefresh_UnknownIDReportsNotFound(t *testing.T) {
	f := &fakeFetcher{slugs: models.SlugMap{"42": "summer-innovation"}}
	r := newTestResolver(f)

	done := make(chan bool, 1)
	r.Refresh(context.Background(), "999", func(slug string, ok bool) {
		done <- ok
	})

	select {
	case ok := <-done:
		assert.False(t, ok, "fetched map has no entry for this id")
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback never fired")
	}
}

func TestRefresh_DuplicateWhilePendingDropped(t *testing.T) {
	f := &fakeFetcher{
		slugs: models.SlugMap{"42": "summer-innovation"},
		gate:  make(chan struct{}),
	}
	r := newTestResolver(f)

	done := make(chan struct{}, 2)
	report := func(string, bool) { done <- struct{}{} }

	r.Refresh(context.Background(), "42", report)

	// Wait until the first refresh is actually holding the fetch open.
	require.Eventually(t, func() bool { return f.callCount() == 1 },
		2*time.Second, 5*time.Millisecond)

	r.Refresh(context.Background(), "42", report)
	close(f.gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh callback never fired")
	}

	select {
	case <-done:
		t.Fatal("second refresh should have been dropped")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, f.callCount())
}

func TestRefresh_FailureClearsInflight(t *testing.T) {
	f := &fakeFetcher{err: errors.New("upstream down")}
	r := newTestResolver(f)

	r.Refresh(context.Background(), "42", func(string, bool) {
		t.Error("done must not fire on a failed refresh")
	})

	require.Eventually(t, func() bool { return f.callCount() == 1 },
		2*time.Second, 5*time.Millisecond)

	// A later notification for the same id can try again.
	f.mu.Lock()
	f.err = nil
	f.slugs = models.SlugMap{"42": "summer-innovation"}
	f.mu.Unlock()

	done := make(chan string, 16)
	require.Eventually(t, func() bool {
		r.Refresh(context.Background(), "42", func(slug string, ok bool) {
			if ok {
				done <- slug
			}
		})
		select {
		case slug := <-done:
			return slug == "summer-innovation"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefresh_EmptyIDIgnored(t *testing.T) {
	f := &fakeFetcher{}
	r := newTestResolver(f)

	r.Refresh(context.Background(), "", func(string, bool) {
		t.Error("done must not fire for an empty id")
	})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, f.callCount())
}

func TestMerge_NeverRetracts(t *testing.T) {
	f := &fakeFetcher{slugs: models.SlugMap{"42": "summer-innovation", "43": "green-office"}}
	r := newTestResolver(f)

	done := make(chan struct{}, 1)
	r.Refresh(context.Background(), "42", func(string, bool) { done <- struct{}{} })
	<-done
	require.Equal(t, 2, r.Size())

	// A later fetch missing an id leaves the cached entry alone.
	f.mu.Lock()
	f.slugs = models.SlugMap{"44": "customer-voice", "42": ""}
	f.mu.Unlock()

	r.Refresh(context.Background(), "44", func(string, bool) { done <- struct{}{} })
	<-done

	slug, ok := r.Lookup("42")
	require.True(t, ok)
	assert.Equal(t, "summer-innovation", slug)
	assert.Equal(t, 3, r.Size())
}

func TestBuildHref(t *testing.T) {
	tests := []struct {
		name string
		slug string
		meta models.Meta
		want string
	}{
		{
			name: "slug only",
			slug: "summer-innovation",
			want: "/campaigns/summer-innovation",
		},
		{
			name: "solution only",
			slug: "summer-innovation",
			meta: models.Meta{SolutionID: "7"},
			want: "/campaigns/summer-innovation?solutionId=7",
		},
		{
			name: "solution before comment",
			slug: "summer-innovation",
			meta: models.Meta{SolutionID: "7", CommentID: "9"},
			want: "/campaigns/summer-innovation?solutionId=7&commentId=9",
		},
		{
			name: "comment only",
			slug: "summer-innovation",
			meta: models.Meta{CommentID: "9"},
			want: "/campaigns/summer-innovation?commentId=9",
		},
		{
			name: "slug needing escaping",
			slug: "summer 2026",
			want: "/campaigns/summer%202026",
		},
		{
			name: "empty slug yields nothing",
			slug: "",
			meta: models.Meta{SolutionID: "7"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildHref(tt.slug, tt.meta))
		})
	}
}
