package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"beacon/internal/logger"
	"beacon/internal/resolver"
	"beacon/pkg/models"
)

// Decode parses a raw pushed payload into a canonical record. The meta
// field may arrive as an object or a JSON-encoded string; models.Meta
// absorbs both. A record without an id cannot be deduplicated and is
// treated as malformed.
func Decode(data []byte) (models.NotificationRecord, error) {
	var rec models.NotificationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.NotificationRecord{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	if rec.ID == "" {
		return models.NotificationRecord{}, fmt.Errorf("notification has no id")
	}
	return rec, nil
}

// Normalizer attaches a best-effort navigable href to decoded records.
type Normalizer struct {
	resolver *resolver.Resolver
	logger   logger.Logger
}

func NewNormalizer(res *resolver.Resolver, log logger.Logger) *Normalizer {
	return &Normalizer{
		resolver: res,
		logger:   log,
	}
}

// Normalize fills rec.Href in place when it can, and never blocks on
// resolution. An explicit site-relative href on the payload wins over
// derivation. On a cache miss the record keeps no href and patch is invoked
// later from the resolver's background refresh, if the id turns out to be
// resolvable.
func (n *Normalizer) Normalize(ctx context.Context, rec *models.NotificationRecord, patch func(id, href string)) {
	if isSiteRelative(rec.Href) {
		return
	}
	rec.Href = ""

	campaignID := rec.Meta.CampaignID.String()
	if campaignID == "" {
		return
	}

	if slug, ok := n.resolver.Lookup(campaignID); ok {
		rec.Href = resolver.BuildHref(slug, rec.Meta)
		return
	}

	recordID := rec.ID
	meta := rec.Meta
	n.resolver.Refresh(ctx, campaignID, func(slug string, ok bool) {
		if !ok {
			n.logger.DebugwCtx(ctx, "Campaign id not resolvable, notification stays non-navigable",
				"campaign_id", campaignID,
				"notification_id", recordID,
			)
			return
		}
		if patch != nil {
			patch(recordID, resolver.BuildHref(slug, meta))
		}
	})
}

// isSiteRelative accepts "/path" but not protocol-relative "//host".
func isSiteRelative(href string) bool {
	return strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")
}
