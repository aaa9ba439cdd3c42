package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cryptodash/internal/chat"
	"cryptodash/internal/models"
)

// ChatHandler drives the conversation panel.
type ChatHandler struct {
	panel  *chat.Panel
	dash   Dashboard
	logger *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(panel *chat.Panel, dash Dashboard, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		panel:  panel,
		dash:   dash,
		logger: logger.With("handler", "chat"),
	}
}

// State handles GET /api/chat.
func (h *ChatHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.panel.State())
}

// Open handles POST /api/chat/open. The greeting names the asset selected
// at this moment.
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.panel.Open(context.WithoutCancel(r.Context()), h.dash.View().Selected)
	writeJSON(w, http.StatusOK, h.panel.State())
}

// Close handles POST /api/chat/close.
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.panel.Close()
	writeJSON(w, http.StatusOK, h.panel.State())
}

type sendRequest struct {
	Text string `json:"text"`
}

// Send handles POST /api/chat/messages. The reply streams as SSE message
// events, each carrying the whole message so far, followed by a done
// event with the transcript. The reply keeps streaming into the
// transcript if the client goes away.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_body", "Body must be JSON with a text field")
		return
	}

	correlationID := GetCorrelationID(r.Context())

	var sse *SSEWriter
	var writeErr error
	onUpdate := func(msg models.ChatMessage) {
		if writeErr != nil {
			return
		}
		if sse == nil {
			sse = NewSSEWriter(w)
		}
		writeErr = sse.SendEvent("message", msg)
	}

	err := h.panel.Send(context.WithoutCancel(r.Context()), req.Text, onUpdate)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		sendError(w, http.StatusBadRequest, "empty_message", "Message text is empty")
		return
	case errors.Is(err, chat.ErrPanelClosed):
		sendError(w, http.StatusConflict, "chat_closed", "Open the chat panel first")
		return
	case errors.Is(err, chat.ErrBusy):
		sendError(w, http.StatusConflict, "chat_busy", "A reply is still streaming")
		return
	case err != nil:
		h.logger.Error("chat_send_failed", "correlation_id", correlationID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal_error", "Message could not be sent")
		return
	}

	if sse == nil {
		sse = NewSSEWriter(w)
	}
	if writeErr == nil {
		writeErr = sse.SendEvent("done", h.panel.State())
	}
	if writeErr != nil {
		h.logger.Debug("chat_stream_write_failed", "correlation_id", correlationID, "error", writeErr)
	}
}
