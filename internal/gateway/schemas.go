package gateway

// Output schemas sent to the model and used to validate its replies.
// Types follow JSON Schema draft 7.

// CoinListSchema returns the schema for the asset collection reply.
func CoinListSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":             map[string]interface{}{"type": "string", "description": "Unique identifier, e.g., 'bitcoin'"},
				"rank":           map[string]interface{}{"type": "integer", "description": "Cryptocurrency rank by market cap"},
				"name":           map[string]interface{}{"type": "string", "description": "Full name, e.g., 'Bitcoin'"},
				"symbol":         map[string]interface{}{"type": "string", "description": "Ticker symbol, e.g., 'BTC'"},
				"price":          map[string]interface{}{"type": "number", "description": "Current price in USD"},
				"priceChange24h": map[string]interface{}{"type": "number", "description": "Percentage change in the last 24 hours"},
				"marketCap":      map[string]interface{}{"type": "number", "description": "Total market capitalization in USD"},
			},
			"required": []string{"id", "rank", "name", "symbol", "price", "priceChange24h", "marketCap"},
		},
	}
}

// HistorySchema returns the schema for the daily price series reply.
func HistorySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Date in 'YYYY-MM-DD' format",
					"pattern":     `^\d{4}-\d{2}-\d{2}$`,
				},
				"price": map[string]interface{}{"type": "number", "description": "Price in USD on that date"},
			},
			"required": []string{"date", "price"},
		},
	}
}

// SentimentSchema returns the schema for the news and sentiment reply.
func SentimentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"sentiment": map[string]interface{}{
				"type":        "string",
				"description": "Overall market sentiment for the coin. Must be one of: 'Bullish', 'Bearish', 'Neutral'.",
				"enum":        []string{"Bullish", "Bearish", "Neutral"},
			},
			"summary": map[string]interface{}{
				"type":        "string",
				"description": "A 2-3 sentence summary explaining the current sentiment based on the news.",
			},
			"news": map[string]interface{}{
				"type":        "array",
				"description": "A list of 3 recent news articles.",
				"minItems":    3,
				"maxItems":    3,
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"headline": map[string]interface{}{"type": "string", "description": "The news headline."},
						"source":   map[string]interface{}{"type": "string", "description": "A plausible-sounding news source, e.g., 'Crypto Daily'."},
					},
					"required": []string{"headline", "source"},
				},
			},
		},
		"required": []string{"sentiment", "summary", "news"},
	}
}

// ForecastSchema returns the schema for the price forecast reply.
func ForecastSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"summary":    map[string]interface{}{"type": "string", "description": "A 2-3 sentence summary of the short-term price forecast."},
			"support":    map[string]interface{}{"type": "number", "description": "A key support price level in USD."},
			"resistance": map[string]interface{}{"type": "number", "description": "A key resistance price level in USD."},
			"confidence": map[string]interface{}{
				"type":        "integer",
				"description": "A confidence score for this forecast, from 0 to 100.",
				"minimum":     0,
				"maximum":     100,
			},
		},
		"required": []string{"summary", "support", "resistance", "confidence"},
	}
}
