package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"cryptodash/internal/dashboard"
	"cryptodash/internal/models"
)

// DashboardReader is the read-only view of the dashboard the tools need.
type DashboardReader interface {
	View() dashboard.View
	Asset(id string) (models.Asset, bool)
}

// ToolExecutor runs tools against the dashboard's current state. Tools
// never trigger a model call.
type ToolExecutor struct {
	dash DashboardReader
}

// NewToolExecutor creates a tool executor.
func NewToolExecutor(dash DashboardReader) *ToolExecutor {
	return &ToolExecutor{dash: dash}
}

type snapshotResult struct {
	Assets      []dashboard.AssetRow    `json:"assets"`
	Deltas      map[string]models.Delta `json:"deltas"`
	LastUpdated string                  `json:"lastUpdated"`
	Refreshing  bool                    `json:"refreshing"`
}

type detailResult struct {
	Selected *models.Asset        `json:"selected"`
	Detail   dashboard.DetailView `json:"detail"`
}

// ExecuteMarketSnapshot returns the current asset list.
func (te *ToolExecutor) ExecuteMarketSnapshot(ctx context.Context) (*CallToolResult, error) {
	v := te.dash.View()
	if err := ready(v); err != nil {
		return nil, err
	}

	return textResult(snapshotResult{
		Assets:      v.Coins,
		Deltas:      v.Deltas,
		LastUpdated: v.LastUpdatedText,
		Refreshing:  v.Refreshing,
	})
}

// ExecuteGetAsset returns one asset by id.
func (te *ToolExecutor) ExecuteGetAsset(ctx context.Context, id string) (*CallToolResult, error) {
	if err := ready(te.dash.View()); err != nil {
		return nil, err
	}

	asset, ok := te.dash.Asset(id)
	if !ok {
		return nil, &RPCError{
			Code:    AssetNotFound,
			Message: fmt.Sprintf("Asset '%s' not in the current snapshot", id),
			Data:    id,
		}
	}
	return textResult(asset)
}

// ExecuteSelectedDetail returns the selected asset and its detail slots.
func (te *ToolExecutor) ExecuteSelectedDetail(ctx context.Context) (*CallToolResult, error) {
	v := te.dash.View()
	if err := ready(v); err != nil {
		return nil, err
	}

	return textResult(detailResult{Selected: v.Selected, Detail: v.Detail})
}

func ready(v dashboard.View) error {
	if v.LoadingCoins && len(v.Coins) == 0 {
		return &RPCError{
			Code:    DataUnavailable,
			Message: "No market snapshot loaded yet",
		}
	}
	return nil
}

func textResult(v interface{}) (*CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &RPCError{
			Code:    InternalError,
			Message: "Failed to serialize result",
			Data:    err.Error(),
		}
	}

	return &CallToolResult{
		Content: []TextContent{{Type: "text", Text: string(data)}},
	}, nil
}
