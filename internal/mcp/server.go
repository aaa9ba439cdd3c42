package mcp

import (
	"context"
	"log/slog"
	"time"
)

// ProtocolVersion is reported from initialize.
const ProtocolVersion = "2024-11-05"

// Server answers JSON-RPC requests for the dashboard tools.
type Server struct {
	invoker *ToolInvoker
	version string
	logger  *slog.Logger
}

// NewServer creates a server backed by dash.
func NewServer(dash DashboardReader, version string, logger *slog.Logger) (*Server, error) {
	invoker, err := NewToolInvoker(NewToolExecutor(dash))
	if err != nil {
		return nil, err
	}
	return &Server{invoker: invoker, version: version, logger: logger}, nil
}

// Handle dispatches one request from ParseJSONRPCRequest and always returns
// a response.
func (s *Server) Handle(ctx context.Context, req *JSONRPCRequest, correlationID string) *JSONRPCResponse {
	switch req.Method {
	case MethodInitialize:
		return NewJSONRPCResult(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      ServerInfo{Name: "cryptodash", Version: s.version},
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
		})

	case MethodListTools:
		return NewJSONRPCResult(req.ID, ListToolsResult{Tools: Tools()})

	case MethodCallTool:
		return s.callTool(ctx, req, correlationID)
	}

	return NewJSONRPCError(req.ID, MethodNotFound, "Unknown method", req.Method)
}

func (s *Server) callTool(ctx context.Context, req *JSONRPCRequest, correlationID string) *JSONRPCResponse {
	start := time.Now()

	params, err := ParseCallToolParams(req.Params)
	if err != nil {
		rpcErr := FormatMCPError(err)
		return NewJSONRPCError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}

	assetID, _ := params.Arguments["id"].(string)
	LogMCPRequest(ctx, s.logger, params.Name, assetID, correlationID)

	result, err := s.invoker.InvokeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		rpcErr := FormatMCPError(err)
		LogMCPError(ctx, s.logger, params.Name, assetID, correlationID, rpcErr.Code, rpcErr.Message)

		data := rpcErr.Data
		if hint := Suggestion(rpcErr.Code); hint != "" {
			data = map[string]interface{}{"details": rpcErr.Data, "suggestion": hint}
		}
		return NewJSONRPCError(req.ID, rpcErr.Code, rpcErr.Message, data)
	}

	LogMCPSuccess(ctx, s.logger, params.Name, assetID, correlationID, time.Since(start).Milliseconds())
	return NewJSONRPCResult(req.ID, result)
}
