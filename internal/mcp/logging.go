package mcp

import (
	"context"
	"log/slog"
)

// LogMCPRequest logs an incoming tool call.
func LogMCPRequest(ctx context.Context, logger *slog.Logger, tool string, assetID string, correlationID string) {
	logger.InfoContext(ctx, "mcp_request",
		"component", "mcp-provider",
		"tool_name", tool,
		"asset_id", assetID,
		"correlation_id", correlationID,
	)
}

// LogMCPSuccess logs a completed tool call.
func LogMCPSuccess(ctx context.Context, logger *slog.Logger, tool string, assetID string, correlationID string, latencyMS int64) {
	logger.InfoContext(ctx, "mcp_success",
		"component", "mcp-provider",
		"tool_name", tool,
		"asset_id", assetID,
		"correlation_id", correlationID,
		"latency_ms", latencyMS,
	)
}

// LogMCPError logs a failed tool call.
func LogMCPError(ctx context.Context, logger *slog.Logger, tool string, assetID string, correlationID string, errorCode int, errorMsg string) {
	logger.ErrorContext(ctx, "mcp_error",
		"component", "mcp-provider",
		"tool_name", tool,
		"asset_id", assetID,
		"correlation_id", correlationID,
		"error_code", errorCode,
		"error_message", errorMsg,
	)
}
