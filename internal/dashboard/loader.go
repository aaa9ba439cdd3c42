package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"cryptodash/internal/instrumentation"
	"cryptodash/internal/models"
)

// DetailSource fetches per-asset details. Empty or nil results are the only
// failure signal.
type DetailSource interface {
	History(ctx context.Context, name string) []models.PricePoint
	Sentiment(ctx context.Context, name string) *models.Sentiment
	Forecast(ctx context.Context, name string) *models.Forecast
}

// SlotStatus is the display state of one detail slot.
type SlotStatus string

const (
	StatusIdle        SlotStatus = "idle"
	StatusLoading     SlotStatus = "loading"
	StatusReady       SlotStatus = "ready"
	StatusUnavailable SlotStatus = "unavailable"
)

const (
	slotHistory   = "history"
	slotSentiment = "sentiment"
	slotForecast  = "forecast"
)

// LoaderState is a copy of the loader's slots.
type LoaderState struct {
	AssetID         string
	History         []models.PricePoint
	HistoryStatus   SlotStatus
	Sentiment       *models.Sentiment
	SentimentStatus SlotStatus
	Forecast        *models.Forecast
	ForecastStatus  SlotStatus
}

// Loader fetches history, sentiment and forecast for the selected asset.
// Each load bumps a generation counter; completions from an older
// generation are dropped.
type Loader struct {
	source   DetailSource
	notifier Notifier
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu               sync.Mutex
	gen              uint64
	assetID          string
	history          []models.PricePoint
	historyLoading   bool
	sentiment        *models.Sentiment
	sentimentLoading bool
	forecast         *models.Forecast
	forecastLoading  bool

	wg sync.WaitGroup
}

// NewLoader creates a loader. notifier and metrics may be nil.
func NewLoader(source DetailSource, notifier Notifier, logger *slog.Logger, metrics *instrumentation.Metrics) *Loader {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Loader{
		source:   source,
		notifier: notifier,
		logger:   logger.With("component", "detail_loader"),
		metrics:  metrics,
	}
}

// Load clears all three slots, marks them loading and dispatches the three
// fetches independently.
func (l *Loader) Load(ctx context.Context, asset models.Asset) {
	l.start(ctx, l.begin(asset), asset)
}

// begin claims the slots for asset and returns the new generation. It does
// not block, so callers may hold their own lock around it.
func (l *Loader) begin(asset models.Asset) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	l.assetID = asset.ID
	l.history, l.sentiment, l.forecast = nil, nil, nil
	l.historyLoading, l.sentimentLoading, l.forecastLoading = true, true, true
	return l.gen
}

// start dispatches the fetches for a generation claimed by begin.
func (l *Loader) start(ctx context.Context, gen uint64, asset models.Asset) {
	l.notifier.Notify()
	l.logger.Info("detail_load_started", "asset_id", asset.ID, "asset", asset.Name, "generation", gen)

	l.dispatch(gen, asset, slotHistory, func() func() {
		h := l.source.History(ctx, asset.Name)
		return func() {
			l.history = h
			l.historyLoading = false
		}
	})
	l.dispatch(gen, asset, slotSentiment, func() func() {
		s := l.source.Sentiment(ctx, asset.Name)
		return func() {
			l.sentiment = s
			l.sentimentLoading = false
		}
	})
	l.dispatch(gen, asset, slotForecast, func() func() {
		f := l.source.Forecast(ctx, asset.Name)
		return func() {
			l.forecast = f
			l.forecastLoading = false
		}
	})
}

// dispatch runs fetch in its own goroutine and applies its result only if
// no newer load started meanwhile.
func (l *Loader) dispatch(gen uint64, asset models.Asset, slot string, fetch func() (apply func())) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		apply := fetch()

		l.mu.Lock()
		if gen != l.gen {
			current := l.assetID
			l.mu.Unlock()
			l.logger.Debug("stale_detail_discarded",
				"slot", slot,
				"asset_id", asset.ID,
				"current_asset_id", current,
			)
			l.metrics.RecordStale(slot)
			return
		}
		apply()
		l.mu.Unlock()

		l.logger.Debug("detail_slot_settled", "slot", slot, "asset_id", asset.ID)
		l.notifier.Notify()
	}()
}

// Wait blocks until every dispatched fetch has settled.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Failed reports whether the slots belong to assetID, have all settled and
// at least one could not be loaded.
func (l *Loader) Failed(assetID string) bool {
	s := l.State()
	if s.AssetID != assetID {
		return false
	}
	return s.HistoryStatus == StatusUnavailable ||
		s.SentimentStatus == StatusUnavailable ||
		s.ForecastStatus == StatusUnavailable
}

// State returns a copy of the slots with their statuses.
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := LoaderState{
		AssetID:         l.assetID,
		HistoryStatus:   StatusIdle,
		SentimentStatus: StatusIdle,
		ForecastStatus:  StatusIdle,
	}
	if l.assetID == "" {
		return state
	}

	if l.history != nil {
		state.History = make([]models.PricePoint, len(l.history))
		copy(state.History, l.history)
	}
	state.HistoryStatus = slotStatus(l.historyLoading, len(l.history) > 0)

	if l.sentiment != nil {
		s := *l.sentiment
		s.News = append([]models.NewsArticle(nil), l.sentiment.News...)
		state.Sentiment = &s
	}
	state.SentimentStatus = slotStatus(l.sentimentLoading, l.sentiment != nil)

	if l.forecast != nil {
		f := *l.forecast
		state.Forecast = &f
	}
	state.ForecastStatus = slotStatus(l.forecastLoading, l.forecast != nil)

	return state
}

func slotStatus(loading, present bool) SlotStatus {
	switch {
	case loading:
		return StatusLoading
	case present:
		return StatusReady
	}
	return StatusUnavailable
}
