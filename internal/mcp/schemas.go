package mcp

// Tool names.
const (
	ToolMarketSnapshot = "get_market_snapshot"
	ToolGetAsset       = "get_asset"
	ToolSelectedDetail = "get_selected_detail"
)

func noArgsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": false,
	}
}

// GetAssetToolSchema returns the JSON Schema for get_asset parameters.
func GetAssetToolSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type":        "string",
				"description": "Asset id as listed by get_market_snapshot (e.g., bitcoin)",
				"minLength":   1,
			},
		},
		"required": []string{"id"},
	}
}

// Tools returns every tool definition in listing order.
func Tools() []Tool {
	return []Tool{
		{
			Name:        ToolMarketSnapshot,
			Description: "List every tracked asset with price, 24h change, market cap and the current up/down flags",
			InputSchema: noArgsSchema(),
		},
		{
			Name:        ToolGetAsset,
			Description: "Retrieve one tracked asset by id from the latest snapshot",
			InputSchema: GetAssetToolSchema(),
		},
		{
			Name:        ToolSelectedDetail,
			Description: "Retrieve the selected asset with its price history, sentiment and forecast",
			InputSchema: noArgsSchema(),
		},
	}
}
