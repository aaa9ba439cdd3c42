package mcp

import (
	"context"
	"encoding/json"

	"cryptodash/internal/gateway"
)

// ToolInvoker validates tool arguments and dispatches to the executor.
type ToolInvoker struct {
	executor   *ToolExecutor
	validators map[string]*gateway.SchemaValidator
}

// NewToolInvoker compiles every tool's input schema.
func NewToolInvoker(executor *ToolExecutor) (*ToolInvoker, error) {
	validators := make(map[string]*gateway.SchemaValidator)
	for _, tool := range Tools() {
		v, err := gateway.NewSchemaValidator(tool.Name, tool.InputSchema)
		if err != nil {
			return nil, err
		}
		validators[tool.Name] = v
	}

	return &ToolInvoker{
		executor:   executor,
		validators: validators,
	}, nil
}

// InvokeTool validates args against the named tool's schema and runs it.
func (ti *ToolInvoker) InvokeTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	validator, ok := ti.validators[toolName]
	if !ok {
		return nil, &RPCError{
			Code:    MethodNotFound,
			Message: "Unknown tool",
			Data:    toolName,
		}
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: "Unencodable arguments", Data: err.Error()}
	}
	if err := validator.ValidateJSON(raw); err != nil {
		return nil, ErrorFromValidation(err)
	}

	switch toolName {
	case ToolMarketSnapshot:
		return ti.executor.ExecuteMarketSnapshot(ctx)
	case ToolGetAsset:
		id, _ := args["id"].(string)
		return ti.executor.ExecuteGetAsset(ctx, id)
	case ToolSelectedDetail:
		return ti.executor.ExecuteSelectedDetail(ctx)
	}

	return nil, &RPCError{Code: MethodNotFound, Message: "Unknown tool", Data: toolName}
}
