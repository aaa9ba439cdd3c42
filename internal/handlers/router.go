package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cryptodash/internal/chat"
	"cryptodash/internal/instrumentation"
)

// RouterDeps are the components behind the HTTP surface.
type RouterDeps struct {
	Dashboard       Dashboard
	Hub             Subscriber
	Chat            *chat.Panel
	MCP             *MCPInvokeHandler
	Timeout         time.Duration
	ReadoutInterval time.Duration
	Logger          *slog.Logger
	Metrics         *instrumentation.Metrics
}

// NewRouter builds the HTTP routes. The timeout applies to the plain JSON
// endpoints only; streams stay open until the client leaves.
func NewRouter(deps RouterDeps) http.Handler {
	dash := NewDashboardHandler(deps.Dashboard, deps.Logger)
	events := NewEventsHandler(deps.Dashboard, deps.Hub, deps.ReadoutInterval, deps.Logger, deps.Metrics)
	ws := NewWSHandler(deps.Dashboard, deps.Hub, deps.ReadoutInterval, deps.Logger, deps.Metrics)
	chatHandler := NewChatHandler(deps.Chat, deps.Dashboard, deps.Logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(deps.Logger))

	r.Get("/health", HealthCheckHandler())

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(deps.Timeout, deps.Logger))

		r.Get("/api/state", dash.State)
		r.Post("/api/refresh", dash.Refresh)
		r.Post("/api/select", dash.Select)

		r.Get("/api/chat", chatHandler.State)
		r.Post("/api/chat/open", chatHandler.Open)
		r.Post("/api/chat/close", chatHandler.Close)

		if deps.MCP != nil {
			r.Post("/mcp/sse", deps.MCP.ServeHTTP)
		}
	})

	r.Get("/api/events", events.ServeHTTP)
	r.Get("/api/ws", ws.ServeHTTP)
	r.Post("/api/chat/messages", chatHandler.Send)

	return r
}
