package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cryptodash/internal/dashboard"
	"cryptodash/internal/instrumentation"
)

const (
	wsPingInterval = 45 * time.Second
	wsReadTimeout  = 90 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsCommand is a client message: {"type":"select","id":"bitcoin"} or
// {"type":"refresh"}.
type wsCommand struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type wsMessage struct {
	Type  string          `json:"type"` // state | error
	State *dashboard.View `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// WSHandler pushes the view over a websocket and accepts select and
// refresh commands.
type WSHandler struct {
	dash    Dashboard
	hub     Subscriber
	readout time.Duration
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewWSHandler creates the websocket handler. metrics may be nil.
func NewWSHandler(dash Dashboard, hub Subscriber, readout time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *WSHandler {
	return &WSHandler{
		dash:    dash,
		hub:     hub,
		readout: readout,
		logger:  logger.With("handler", "ws"),
		metrics: metrics,
	}
}

// ServeHTTP handles GET /api/ws.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := GetCorrelationID(r.Context())

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws_upgrade_failed", "correlation_id", correlationID, "error", err)
		return
	}
	defer conn.Close()

	h.metrics.SubscriberJoined("ws")
	defer h.metrics.SubscriberLeft("ws")

	updates, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	// Replies to commands go through out so the writer goroutine is the
	// only one touching the connection.
	out := make(chan wsMessage, 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		h.writeLoop(conn, updates, out, done, correlationID)
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("ws_read_failed", "correlation_id", correlationID, "error", err)
			}
			break
		}

		if reply, ok := h.handleCommand(data); ok {
			select {
			case out <- reply:
			default:
			}
		}
	}

	close(done)
	<-writerDone
}

func (h *WSHandler) writeLoop(conn *websocket.Conn, updates <-chan struct{}, out <-chan wsMessage, done <-chan struct{}, correlationID string) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	readout := time.NewTicker(h.readout)
	defer readout.Stop()

	sendState := func() error {
		v := h.dash.View()
		return conn.WriteJSON(wsMessage{Type: "state", State: &v})
	}

	if err := sendState(); err != nil {
		return
	}

	for {
		var err error
		select {
		case <-done:
			return
		case <-updates:
			err = sendState()
		case <-readout.C:
			err = sendState()
		case msg := <-out:
			err = conn.WriteJSON(msg)
		case <-ping.C:
			err = conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			h.logger.Debug("ws_write_failed", "correlation_id", correlationID, "error", err)
			return
		}
	}
}

// handleCommand applies one client command. The reply, if any, is an
// error message; successful commands answer through the state push.
func (h *WSHandler) handleCommand(data []byte) (wsMessage, bool) {
	var cmd wsCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wsMessage{Type: "error", Error: "invalid_command"}, true
	}

	switch strings.ToLower(cmd.Type) {
	case "select":
		if _, err := h.dash.Select(cmd.ID); err != nil {
			if errors.Is(err, dashboard.ErrUnknownAsset) {
				return wsMessage{Type: "error", Error: "asset_not_found"}, true
			}
			return wsMessage{Type: "error", Error: "internal_error"}, true
		}
	case "refresh":
		if !h.dash.Refresh() {
			return wsMessage{Type: "error", Error: "refresh_in_flight"}, true
		}
	default:
		return wsMessage{Type: "error", Error: "unknown_command"}, true
	}
	return wsMessage{}, false
}
