package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cryptodash/internal/dashboard"
	"cryptodash/internal/models"
)

// Dashboard is the part of the dashboard the HTTP surface drives.
type Dashboard interface {
	View() dashboard.View
	Refresh() bool
	Select(id string) (models.Asset, error)
	Asset(id string) (models.Asset, bool)
}

// DashboardHandler serves the JSON state and the two user actions.
type DashboardHandler struct {
	dash   Dashboard
	logger *slog.Logger
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(dash Dashboard, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dash:   dash,
		logger: logger.With("handler", "dashboard"),
	}
}

// State handles GET /api/state.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.View())
}

// Refresh handles POST /api/refresh. A refresh already in flight is a
// conflict, not an error.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.dash.Refresh() {
		h.logger.Debug("refresh_rejected_in_flight", "correlation_id", GetCorrelationID(r.Context()))
		sendError(w, http.StatusConflict, "refresh_in_flight", "A refresh is already running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type selectRequest struct {
	ID string `json:"id"`
}

// Select handles POST /api/select.
func (h *DashboardHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_body", "Body must be JSON with an id field")
		return
	}
	if req.ID == "" {
		sendError(w, http.StatusBadRequest, "missing_parameter", "id is required")
		return
	}

	asset, err := h.dash.Select(req.ID)
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownAsset) {
			sendError(w, http.StatusNotFound, "asset_not_found", "Asset not in the current snapshot")
			return
		}
		h.logger.Error("select_failed", "id", req.ID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal_error", "Selection failed")
		return
	}

	h.logger.Info("asset_selected", "id", asset.ID, "correlation_id", GetCorrelationID(r.Context()))
	writeJSON(w, http.StatusOK, asset)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a JSON error response.
func sendError(w http.ResponseWriter, statusCode int, errorCode string, message string) {
	writeJSON(w, statusCode, models.ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
