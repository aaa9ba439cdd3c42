package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"cryptodash/internal/instrumentation"
)

// Subscriber hands out change signals. The returned func unsubscribes.
type Subscriber interface {
	Subscribe() (<-chan struct{}, func())
}

// EventsHandler streams the dashboard view over SSE: once on connect,
// after every change and every readout interval so relative times stay
// current.
type EventsHandler struct {
	dash    Dashboard
	hub     Subscriber
	readout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewEventsHandler creates the SSE handler. metrics may be nil.
func NewEventsHandler(dash Dashboard, hub Subscriber, readout time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *EventsHandler {
	return &EventsHandler{
		dash:    dash,
		hub:     hub,
		readout: readout,
		logger:  logger.With("handler", "events"),
		metrics: metrics,
	}
}

// ServeHTTP handles GET /api/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := GetCorrelationID(r.Context())
	sse := NewSSEWriter(w)

	updates, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	h.metrics.SubscriberJoined("sse")
	defer h.metrics.SubscriberLeft("sse")
	h.logger.Info("sse_subscribed", "correlation_id", correlationID)

	ticker := time.NewTicker(h.readout)
	defer ticker.Stop()

	for {
		if err := sse.SendEvent("state", h.dash.View()); err != nil {
			h.logger.Debug("sse_write_failed", "correlation_id", correlationID, "error", err)
			return
		}

		select {
		case <-r.Context().Done():
			h.logger.Info("sse_unsubscribed", "correlation_id", correlationID)
			return
		case <-updates:
		case <-ticker.C:
		}
	}
}
