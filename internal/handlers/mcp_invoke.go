package handlers

import (
	"log/slog"
	"net/http"

	"cryptodash/internal/mcp"
)

// MCPInvokeHandler serves JSON-RPC requests for the dashboard tools over
// SSE transport.
type MCPInvokeHandler struct {
	server *mcp.Server
	logger *slog.Logger
}

// NewMCPInvokeHandler creates an MCP handler backed by dash.
func NewMCPInvokeHandler(dash mcp.DashboardReader, version string, logger *slog.Logger) (*MCPInvokeHandler, error) {
	server, err := mcp.NewServer(dash, version, logger)
	if err != nil {
		return nil, err
	}

	return &MCPInvokeHandler{
		server: server,
		logger: logger,
	}, nil
}

// ServeHTTP handles POST /mcp/sse. Every outcome, including parse
// failures, is a single JSON-RPC response event.
func (h *MCPInvokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := GetCorrelationID(r.Context())

	sse := NewSSEWriter(w)
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var resp *mcp.JSONRPCResponse
	req, err := mcp.ParseJSONRPCRequest(r.Body)
	if err != nil {
		rpcErr := mcp.FormatMCPError(err)
		resp = mcp.NewJSONRPCError(nil, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	} else {
		resp = h.server.Handle(r.Context(), req, correlationID)
	}

	if err := sse.SendEvent("", resp); err != nil {
		h.logger.Error("sse_send_failed", "error", err, "correlation_id", correlationID)
	}
}
