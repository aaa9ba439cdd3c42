package dashboard

import (
	"time"

	"cryptodash/internal/format"
	"cryptodash/internal/models"
)

// AssetRow is one line of the asset list.
type AssetRow struct {
	models.Asset
	PriceText     string       `json:"priceText"`
	MarketCapText string       `json:"marketCapText"`
	ChangeText    string       `json:"changeText"`
	Delta         models.Delta `json:"delta,omitempty"`
	Selected      bool         `json:"selected"`
}

// DetailView is the detail panel for the selected asset.
type DetailView struct {
	AssetID         string              `json:"assetId,omitempty"`
	History         []models.PricePoint `json:"history"`
	HistoryStatus   SlotStatus          `json:"historyStatus"`
	Sentiment       *models.Sentiment   `json:"sentiment"`
	SentimentStatus SlotStatus          `json:"sentimentStatus"`
	Forecast        *models.Forecast    `json:"forecast"`
	ForecastStatus  SlotStatus          `json:"forecastStatus"`
}

// View is the complete dashboard state handed to the presentation layer.
type View struct {
	Coins           []AssetRow              `json:"coins"`
	Deltas          map[string]models.Delta `json:"deltas"`
	LoadingCoins    bool                    `json:"loadingCoins"`
	Refreshing      bool                    `json:"refreshing"`
	LastUpdated     *time.Time              `json:"lastUpdated"`
	LastUpdatedText string                  `json:"lastUpdatedText"`
	Selected        *models.Asset           `json:"selected"`
	SelectedPrice   string                  `json:"selectedPriceText,omitempty"`
	Detail          DetailView              `json:"detail"`
}

// BuildView merges orchestrator and loader state into a View.
func BuildView(o OrchestratorState, l LoaderState, now time.Time) View {
	v := View{
		Coins:           make([]AssetRow, 0, len(o.Assets)),
		Deltas:          o.Deltas,
		LoadingCoins:    o.LoadingCoins,
		Refreshing:      o.Refreshing,
		LastUpdatedText: format.TimeAgo(o.LastUpdated, now),
		Selected:        o.Selected,
		Detail: DetailView{
			AssetID:         l.AssetID,
			History:         l.History,
			HistoryStatus:   l.HistoryStatus,
			Sentiment:       l.Sentiment,
			SentimentStatus: l.SentimentStatus,
			Forecast:        l.Forecast,
			ForecastStatus:  l.ForecastStatus,
		},
	}

	if v.Detail.History == nil {
		v.Detail.History = []models.PricePoint{}
	}

	if !o.LastUpdated.IsZero() {
		t := o.LastUpdated
		v.LastUpdated = &t
	}

	if o.Selected != nil {
		v.SelectedPrice = format.Currency(o.Selected.Price)
	}

	for _, a := range o.Assets {
		v.Coins = append(v.Coins, AssetRow{
			Asset:         a,
			PriceText:     format.Currency(a.Price),
			MarketCapText: format.MarketCap(a.MarketCap),
			ChangeText:    format.Change(a.PriceChange24h),
			Delta:         o.Deltas[a.ID],
			Selected:      o.Selected != nil && o.Selected.ID == a.ID,
		})
	}

	return v
}
