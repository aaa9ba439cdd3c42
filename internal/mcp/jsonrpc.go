package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cryptodash/internal/gateway"
)

const (
	jsonRPCVersion = "2.0"

	// maxRequestBytes bounds a single tool request body.
	maxRequestBytes = 1 << 20
)

// ParseJSONRPCRequest reads one JSON-RPC 2.0 request. Legacy method names
// are rewritten to their current form, so callers only match tools/list and
// tools/call.
func ParseJSONRPCRequest(r io.Reader) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	dec := json.NewDecoder(io.LimitReader(r, maxRequestBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return nil, &RPCError{Code: ParseError, Message: "Invalid JSON", Data: err.Error()}
	}

	switch {
	case req.JSONRPC != jsonRPCVersion:
		return nil, &RPCError{Code: InvalidRequest, Message: "Invalid JSON-RPC version (must be '2.0')", Data: req.JSONRPC}
	case !validID(req.ID):
		return nil, &RPCError{Code: InvalidRequest, Message: "Request id must be a string, number or null"}
	}

	req.Method = NormalizeMethod(strings.TrimSpace(req.Method))
	if req.Method == "" {
		return nil, &RPCError{Code: InvalidRequest, Message: "Missing 'method' field"}
	}
	return &req, nil
}

func validID(id interface{}) bool {
	switch id.(type) {
	case nil, string, json.Number:
		return true
	}
	return false
}

// NormalizeMethod maps legacy method names onto their current form.
func NormalizeMethod(method string) string {
	switch method {
	case legacyListTools:
		return MethodListTools
	case legacyCallTool:
		return MethodCallTool
	}
	return method
}

// ParseCallToolParams extracts tools/call parameters.
func ParseCallToolParams(params json.RawMessage) (*CallToolParams, error) {
	if len(params) == 0 {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Missing parameters for tools/call",
		}
	}

	var toolParams CallToolParams
	if err := json.Unmarshal(params, &toolParams); err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Invalid tools/call parameters",
			Data:    err.Error(),
		}
	}

	if toolParams.Name == "" {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Missing 'name' field in tools/call parameters",
		}
	}

	if toolParams.Arguments == nil {
		toolParams.Arguments = map[string]interface{}{}
	}

	return &toolParams, nil
}

// NewJSONRPCError builds an error response for the request id.
func NewJSONRPCError(id interface{}, code int, message string, data interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message, Data: data}}
}

// NewJSONRPCResult builds a success response for the request id.
func NewJSONRPCResult(id interface{}, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
}

// ErrorFromValidation converts a schema violation to an RPC error.
func ErrorFromValidation(err error) *RPCError {
	if ve, ok := err.(*gateway.ValidationError); ok {
		return &RPCError{
			Code:    ValidationFailed,
			Message: "Parameter validation failed",
			Data: map[string]interface{}{
				"field":   ve.Field,
				"message": ve.Message,
			},
		}
	}
	return &RPCError{
		Code:    ValidationFailed,
		Message: fmt.Sprintf("Validation failed: %s", err.Error()),
	}
}
