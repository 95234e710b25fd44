package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beacon/internal/logger"
	"beacon/internal/resolver"
	"beacon/pkg/models"
)

type staticFetcher struct {
	slugs models.SlugMap
}

func (f *staticFetcher) FetchSlugMap(ctx context.Context) (models.SlugMap, error) {
	return f.slugs, nil
}

func newNormalizer(slugs models.SlugMap) (*Normalizer, *resolver.Resolver) {
	res := resolver.New(&staticFetcher{slugs: slugs}, logger.NopLogger(),
		resolver.WithMinRefreshInterval(time.Millisecond))
	return NewNormalizer(res, logger.NopLogger()), res
}

func warm(t *testing.T, res *resolver.Resolver, id string) {
	t.Helper()
	done := make(chan struct{})
	res.Refresh(context.Background(), id, func(string, bool) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cache warm-up timed out")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		wantID  string
	}{
		{
			name:   "valid record",
			data:   `{"id":"n1","title":"t","type":"comment","createdAt":1700000000000}`,
			wantID: "n1",
		},
		{
			name:   "string meta absorbed",
			data:   `{"id":"n2","title":"t","type":"comment","createdAt":1,"meta":"{\"campaignId\":\"42\"}"}`,
			wantID: "n2",
		},
		{
			name:    "not json",
			data:    `{{{`,
			wantErr: true,
		},
		{
			name:    "missing id",
			data:    `{"title":"t","type":"comment","createdAt":1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rec.ID)
		})
	}
}

func TestNormalize_ExplicitSiteRelativeHrefWins(t *testing.T) {
	n, res := newNormalizer(models.SlugMap{"42": "summer-innovation"})
	warm(t, res, "42")

	rec := models.NotificationRecord{
		ID:   "n1",
		Href: "/inbox/special",
		Meta: models.Meta{CampaignID: "42"},
	}
	n.Normalize(context.Background(), &rec, nil)
	assert.Equal(t, "/inbox/special", rec.Href)
}

func TestNormalize_RejectsNonRelativeHref(t *testing.T) {
	tests := []struct {
		name string
		href string
	}{
		{name: "absolute url", href: "https://evil.example/x"},
		{name: "protocol relative", href: "//evil.example/x"},
		{name: "bare path", href: "inbox"},
		{name: "javascript scheme", href: "javascript:alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := newNormalizer(nil)
			rec := models.NotificationRecord{ID: "n1", Href: tt.href}
			n.Normalize(context.Background(), &rec, nil)
			assert.Empty(t, rec.Href)
		})
	}
}

func TestNormalize_CacheHitBuildsHref(t *testing.T) {
	n, res := newNormalizer(models.SlugMap{"42": "summer-innovation"})
	warm(t, res, "42")

	rec := models.NotificationRecord{
		ID:   "n1",
		Meta: models.Meta{CampaignID: "42", SolutionID: "7", CommentID: "9"},
	}
	n.Normalize(context.Background(), &rec, nil)
	assert.Equal(t, "/campaigns/summer-innovation?solutionId=7&commentId=9", rec.Href)
}

func TestNormalize_CacheMissPatchesLater(t *testing.T) {
	n, _ := newNormalizer(models.SlugMap{"42": "summer-innovation"})

	var mu sync.Mutex
	patches := map[string]string{}
	patch := func(id, href string) {
		mu.Lock()
		patches[id] = href
		mu.Unlock()
	}

	rec := models.NotificationRecord{ID: "n1", Meta: models.Meta{CampaignID: "42"}}
	n.Normalize(context.Background(), &rec, patch)

	assert.Empty(t, rec.Href, "insertion never waits on resolution")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return patches["n1"] == "/campaigns/summer-innovation"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNormalize_UnresolvableStaysNonNavigable(t *testing.T) {
	n, _ := newNormalizer(models.SlugMap{})

	rec := models.NotificationRecord{ID: "n1", Meta: models.Meta{CampaignID: "999"}}
	n.Normalize(context.Background(), &rec, func(id, href string) {
		t.Errorf("patch must not fire for an unresolvable id, got %s=%s", id, href)
	})

	assert.Empty(t, rec.Href)
	time.Sleep(50 * time.Millisecond)
}

func TestNormalize_NoCampaignID(t *testing.T) {
	n, _ := newNormalizer(models.SlugMap{"42": "x"})

	rec := models.NotificationRecord{ID: "n1", Href: "https://elsewhere.example"}
	n.Normalize(context.Background(), &rec, nil)
	assert.Empty(t, rec.Href)
}
