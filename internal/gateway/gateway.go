package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"cryptodash/internal/instrumentation"
	"cryptodash/internal/models"
	"cryptodash/internal/prompts"
)

// Data kinds requested from the model.
const (
	KindCoins     = "coins"
	KindHistory   = "history"
	KindSentiment = "sentiment"
	KindForecast  = "forecast"
)

const dateLayout = "2006-01-02"

// Generator produces a JSON document for a prompt, shaped by schema.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema map[string]interface{}) (string, error)
}

// DetailCache stores per-asset detail replies. Implementations must treat a
// missing key as (false, nil).
type DetailCache interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Store(ctx context.Context, key string, value any) error
}

type request struct {
	schema    map[string]interface{}
	validator *SchemaValidator
}

// Gateway translates dashboard data requests into model calls.
//
// Every public operation swallows transport, schema and decode failures and
// returns an empty slice or nil instead. The failure is logged and counted.
type Gateway struct {
	gen      Generator
	prompts  *prompts.Catalogue
	cache    DetailCache
	requests map[string]request
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// New creates a gateway. cache and metrics may be nil.
func New(gen Generator, catalogue *prompts.Catalogue, cache DetailCache, logger *slog.Logger, metrics *instrumentation.Metrics) (*Gateway, error) {
	schemas := map[string]map[string]interface{}{
		KindCoins:     CoinListSchema(),
		KindHistory:   HistorySchema(),
		KindSentiment: SentimentSchema(),
		KindForecast:  ForecastSchema(),
	}

	requests := make(map[string]request, len(schemas))
	for kind, schema := range schemas {
		validator, err := NewSchemaValidator(kind, schema)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		requests[kind] = request{schema: schema, validator: validator}
	}

	return &Gateway{
		gen:      gen,
		prompts:  catalogue,
		cache:    cache,
		requests: requests,
		logger:   logger.With("component", "gateway"),
		metrics:  metrics,
	}, nil
}

// Coins fetches a fresh asset collection. Never cached.
func (g *Gateway) Coins(ctx context.Context) []models.Asset {
	var assets []models.Asset
	if err := g.call(ctx, KindCoins, "", g.prompts.CoinList, &assets); err != nil {
		g.logger.Error("gateway_call_failed", "kind", KindCoins, "error", err)
		return []models.Asset{}
	}
	return assets
}

// History fetches the 90-day daily series for the named asset, sorted
// ascending by date.
func (g *Gateway) History(ctx context.Context, name string) []models.PricePoint {
	var points []models.PricePoint
	if g.loadCached(ctx, KindHistory, name, &points) {
		return points
	}

	prompt := prompts.Render(g.prompts.History, name)
	if err := g.call(ctx, KindHistory, name, prompt, &points); err != nil {
		g.logger.Error("gateway_call_failed", "kind", KindHistory, "asset", name, "error", err)
		return []models.PricePoint{}
	}

	sorted, err := SortByDate(points)
	if err != nil {
		g.logger.Error("gateway_call_failed", "kind", KindHistory, "asset", name, "error", err)
		return []models.PricePoint{}
	}

	g.storeCached(ctx, KindHistory, name, sorted)
	return sorted
}

// Sentiment fetches the sentiment analysis for the named asset.
func (g *Gateway) Sentiment(ctx context.Context, name string) *models.Sentiment {
	var s models.Sentiment
	if g.loadCached(ctx, KindSentiment, name, &s) {
		return &s
	}

	prompt := prompts.Render(g.prompts.Sentiment, name)
	if err := g.call(ctx, KindSentiment, name, prompt, &s); err != nil {
		g.logger.Error("gateway_call_failed", "kind", KindSentiment, "asset", name, "error", err)
		return nil
	}

	g.storeCached(ctx, KindSentiment, name, &s)
	return &s
}

// Forecast fetches the short-term forecast for the named asset.
func (g *Gateway) Forecast(ctx context.Context, name string) *models.Forecast {
	var f models.Forecast
	if g.loadCached(ctx, KindForecast, name, &f) {
		return &f
	}

	prompt := prompts.Render(g.prompts.Forecast, name)
	if err := g.call(ctx, KindForecast, name, prompt, &f); err != nil {
		g.logger.Error("gateway_call_failed", "kind", KindForecast, "asset", name, "error", err)
		return nil
	}

	g.storeCached(ctx, KindForecast, name, &f)
	return &f
}

// call sends one prompt, validates the reply against the kind's schema and
// decodes it into dst. Panics from the generator are converted to errors.
func (g *Gateway) call(ctx context.Context, kind, asset, prompt string, dst any) (err error) {
	req := g.requests[kind]
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		g.metrics.RecordGatewayCall(kind, outcome, float64(time.Since(start).Milliseconds()))
	}()

	g.logger.Debug("gateway_request", "kind", kind, "asset", asset)

	text, err := g.gen.GenerateJSON(ctx, prompt, req.schema)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	raw := []byte(strings.TrimSpace(text))
	if err := req.validator.Decode(raw, dst); err != nil {
		return fmt.Errorf("reply rejected: %w", err)
	}

	g.logger.Debug("gateway_response",
		"kind", kind,
		"asset", asset,
		"latency_ms", time.Since(start).Milliseconds(),
		"size_bytes", len(raw),
	)

	return nil
}

func cacheKey(kind, name string) string {
	return fmt.Sprintf("detail:%s:%s", kind, strings.ToLower(name))
}

func (g *Gateway) loadCached(ctx context.Context, kind, name string, dst any) bool {
	if g.cache == nil {
		return false
	}
	hit, err := g.cache.Load(ctx, cacheKey(kind, name), dst)
	if err != nil {
		g.logger.Warn("cache_load_failed", "kind", kind, "asset", name, "error", err)
		return false
	}
	g.metrics.RecordCacheLookup(kind, hit)
	return hit
}

func (g *Gateway) storeCached(ctx context.Context, kind, name string, value any) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Store(ctx, cacheKey(kind, name), value); err != nil {
		g.logger.Warn("cache_store_failed", "kind", kind, "asset", name, "error", err)
	}
}

// SortByDate returns the points ordered ascending by calendar day. Points
// with equal dates keep their relative order. An unparseable date is an error.
func SortByDate(points []models.PricePoint) ([]models.PricePoint, error) {
	type dated struct {
		day   time.Time
		point models.PricePoint
	}

	items := make([]dated, 0, len(points))
	for _, p := range points {
		day, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", p.Date, err)
		}
		items = append(items, dated{day: day, point: p})
	}

	slices.SortStableFunc(items, func(a, b dated) int {
		return a.day.Compare(b.day)
	})

	sorted := make([]models.PricePoint, len(items))
	for i, item := range items {
		sorted[i] = item.point
	}
	return sorted, nil
}
