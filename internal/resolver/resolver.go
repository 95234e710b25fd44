package resolver

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"beacon/internal/constants"
	"beacon/internal/logger"
	"beacon/pkg/circuitbreaker"
	"beacon/pkg/metrics"
	"beacon/pkg/models"
)

// Resolver maps campaign ids to URL slugs. The cache is lazy and
// merge-only: entries are added for the lifetime of the instance and never
// retracted, so a stale late fetch result can only repeat what is already
// known.
type Resolver struct {
	fetcher Fetcher
	breaker *circuitbreaker.Wrapper
	limiter *rate.Limiter
	logger  logger.Logger
	group   singleflight.Group

	mu       sync.Mutex
	slugs    map[string]string
	inflight map[string]struct{}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBreaker guards the slug-map fetch with a circuit breaker so a
// persistently failing endpoint cannot produce a retry storm.
func WithBreaker(b *circuitbreaker.Wrapper) Option {
	return func(r *Resolver) {
		r.breaker = b
	}
}

// WithMinRefreshInterval sets the minimum spacing between refresh fetches.
func WithMinRefreshInterval(interval time.Duration) Option {
	return func(r *Resolver) {
		if interval > 0 {
			r.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

func New(fetcher Fetcher, log logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:  fetcher,
		limiter:  rate.NewLimiter(rate.Every(constants.MinSlugRefreshInterval), 1),
		logger:   log,
		slugs:    make(map[string]string),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the cached slug for a campaign id.
func (r *Resolver) Lookup(campaignID string) (string, bool) {
	r.mu.Lock()
	slug, ok := r.slugs[campaignID]
	r.mu.Unlock()

	if ok {
		metrics.ResolverLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.ResolverLookupsTotal.WithLabelValues("miss").Inc()
	}
	return slug, ok
}

// Refresh schedules a background one-shot refresh of the whole slug map on
// behalf of campaignID, then reports the id's resolution to done. At most
// one refresh is pending per id; duplicate requests while one is in flight
// are dropped. A failed fetch clears the in-flight mark so a later
// notification referencing the same id can try again.
func (r *Resolver) Refresh(ctx context.Context, campaignID string, done func(slug string, ok bool)) {
	if campaignID == "" {
		return
	}

	r.mu.Lock()
	if _, pending := r.inflight[campaignID]; pending {
		r.mu.Unlock()
		return
	}
	r.inflight[campaignID] = struct{}{}
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.inflight, campaignID)
			r.mu.Unlock()
		}()

		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		if err := r.refreshOnce(ctx); err != nil {
			metrics.ResolverRefreshesTotal.WithLabelValues("error").Inc()
			r.logger.DebugwCtx(ctx, "Slug map refresh failed",
				"error", err,
				"campaign_id", campaignID,
			)
			return
		}
		metrics.ResolverRefreshesTotal.WithLabelValues("ok").Inc()

		slug, ok := r.Lookup(campaignID)
		if done != nil {
			done(slug, ok)
		}
	}()
}

// refreshOnce fetches the slug map exactly once per concurrent wave of
// callers and merges it into the cache.
func (r *Resolver) refreshOnce(ctx context.Context) error {
	result, err, _ := r.group.Do("slug-map", func() (interface{}, error) {
		if r.breaker != nil {
			return r.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
				return r.fetcher.FetchSlugMap(ctx)
			})
		}
		return r.fetcher.FetchSlugMap(ctx)
	})
	if err != nil {
		return err
	}

	slugs, _ := result.(models.SlugMap)
	r.merge(slugs)
	return nil
}

// merge adds entries to the cache. Known ids are never replaced with
// absence; a refresh can only grow or update the mapping.
func (r *Resolver) merge(slugs models.SlugMap) {
	if len(slugs) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, slug := range slugs {
		if slug == "" {
			continue
		}
		r.slugs[id] = slug
	}
}

// Size returns the number of cached entries.
func (r *Resolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.slugs)
}

// BuildHref assembles the navigable destination for a resolved campaign,
// with solutionId before commentId in the query string.
func BuildHref(slug string, meta models.Meta) string {
	if slug == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(constants.CampaignPathPrefix)
	sb.WriteString(url.PathEscape(slug))

	sep := "?"
	if meta.SolutionID != "" {
		sb.WriteString(sep)
		sb.WriteString("solutionId=")
		sb.WriteString(url.QueryEscape(meta.SolutionID.String()))
		sep = "&"
	}
	if meta.CommentID != "" {
		sb.WriteString(sep)
		sb.WriteString("commentId=")
		sb.WriteString(url.QueryEscape(meta.CommentID.String()))
	}
	return sb.String()
}
