package models

import "time"

// Asset is one tracked cryptocurrency with its generated market figures.
// Identity is ID, stable across snapshots.
type Asset struct {
	ID             string  `json:"id"`
	Rank           int     `json:"rank"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCap      float64 `json:"marketCap"`
}

// PricePoint is one day of the historical series. Date is YYYY-MM-DD.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Sentiment labels.
const (
	SentimentBullish = "Bullish"
	SentimentBearish = "Bearish"
	SentimentNeutral = "Neutral"
)

// NewsArticle is a generated headline with a plausible source.
type NewsArticle struct {
	Headline string `json:"headline"`
	Source   string `json:"source"`
}

// Sentiment is the sentiment analysis for one asset.
type Sentiment struct {
	Sentiment string        `json:"sentiment"`
	Summary   string        `json:"summary"`
	News      []NewsArticle `json:"news"`
}

// Forecast is the short-term price forecast for one asset.
type Forecast struct {
	Summary    string  `json:"summary"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Confidence int     `json:"confidence"` // 0..100
}

// Delta is the direction of a price move between two snapshots.
type Delta string

const (
	DeltaUp   Delta = "up"
	DeltaDown Delta = "down"
)

// Snapshot is one full asset collection fetched at a point in time.
type Snapshot struct {
	Assets    []Asset   `json:"assets"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
