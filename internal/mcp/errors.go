package mcp

import (
	"errors"
	"fmt"
	"net/http"
)

// FormatMCPError converts any error into a JSON-RPC error.
func FormatMCPError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return &RPCError{
		Code:    InternalError,
		Message: fmt.Sprintf("Internal error: %s", err.Error()),
	}
}

// HTTPStatusFromError maps error codes to HTTP status codes.
func HTTPStatusFromError(rpcErr *RPCError) int {
	if rpcErr == nil {
		return http.StatusOK
	}

	switch rpcErr.Code {
	case ParseError, InvalidRequest, InvalidParams, ValidationFailed:
		return http.StatusBadRequest
	case MethodNotFound, AssetNotFound:
		return http.StatusNotFound
	case DataUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Suggestion returns a hint for errors a client can act on, or "".
func Suggestion(code int) string {
	switch code {
	case AssetNotFound:
		return "Call get_market_snapshot for the ids currently tracked"
	case DataUnavailable:
		return "The first snapshot has not loaded yet. Retry in a few seconds"
	case ValidationFailed:
		return "Check parameter format and try again"
	}
	return ""
}
