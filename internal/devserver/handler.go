package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"beacon/internal/logger"
	"beacon/internal/stream"
	"beacon/pkg/models"
	"beacon/pkg/ratelimit"
)

const keepaliveInterval = 15 * time.Second

// Handler serves the push protocol and its companion REST endpoints against
// a fixture Source.
type Handler struct {
	source *Source
	token  string
	logger logger.Logger
}

func NewHandler(source *Source, token string, log logger.Logger) *Handler {
	return &Handler{
		source: source,
		token:  token,
		logger: log,
	}
}

// RegisterRoutes mounts the push stream and the REST endpoints. The stream
// stays outside the rate limiter; it is one long request per client.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", h.requireToken)
	api.GET("/notifications/stream", h.Stream)

	limited := api.Group("", ratelimit.RateLimitMiddleware(ratelimit.DefaultConfig()))
	{
		limited.GET("/notifications/unread-count", h.UnreadCount)
		limited.POST("/notifications/:id/read", h.MarkRead)
		limited.POST("/notifications/read-all", h.MarkAllRead)
		limited.GET("/campaigns/slugs", h.Slugs)
	}
}

// requireToken accepts the credential as a query parameter because the
// streaming clients cannot set headers; a bearer header works too.
func (h *Handler) requireToken(c *gin.Context) {
	if h.token == "" {
		return
	}
	if c.Query("token") == h.token {
		return
	}
	if c.GetHeader("Authorization") == "Bearer "+h.token {
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
}

// Stream replays the backlog between hydrate and hydrated markers, then
// pushes live notifications until the client goes away.
func (h *Handler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	// Subscribe before snapshotting so nothing emitted during the replay is
	// missed; the client's dedup absorbs any overlap.
	live, cancel := h.source.Subscribe()
	defer cancel()
	backlog := h.source.Backlog()

	ctx := c.Request.Context()
	h.logger.InfowCtx(ctx, "Stream opened", "backlog", len(backlog))

	fmt.Fprintf(c.Writer, "event: %s\n\n", stream.EventHydrate)
	for i := range backlog {
		h.writeRecord(c, backlog[i], false)
	}
	fmt.Fprintf(c.Writer, "event: %s\n\n", stream.EventHydrated)
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	// Every third live push serializes meta as a JSON-encoded string, the
	// legacy wire form clients still have to accept.
	sent := 0
	for {
		select {
		case rec := <-live:
			sent++
			h.writeRecord(c, rec, sent%3 == 0)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			h.logger.InfowCtx(ctx, "Stream closed", "pushed", sent)
			return
		}
	}
}

func (h *Handler) writeRecord(c *gin.Context, rec models.NotificationRecord, stringMeta bool) {
	payload, err := encodeRecord(rec, stringMeta)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Failed to encode record",
			"notification_id", rec.ID,
			"error", err,
		)
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, models.UnreadCount{Count: h.source.UnreadCount()})
}

func (h *Handler) Slugs(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Slugs())
}

func (h *Handler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if !h.source.MarkRead(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, models.UnreadCount{Count: h.source.UnreadCount()})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	marked := h.source.MarkAllRead()
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// encodeRecord renders a record for the wire, optionally re-encoding meta as
// a JSON string.
func encodeRecord(rec models.NotificationRecord, stringMeta bool) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if !stringMeta {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	meta, ok := fields["meta"]
	if !ok {
		return raw, nil
	}
	quoted, err := json.Marshal(string(meta))
	if err != nil {
		return nil, err
	}
	fields["meta"] = quoted
	return json.Marshal(fields)
}
