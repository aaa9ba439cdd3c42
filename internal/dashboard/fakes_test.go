package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cryptodash/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedCoins returns queued snapshots in order; once the queue is drained
// it keeps returning the last one. A non-nil gate blocks each call until it
// receives a value.
type scriptedCoins struct {
	mu    sync.Mutex
	queue [][]models.Asset
	last  []models.Asset
	gate  chan struct{}
	calls atomic.Int32
}

func (s *scriptedCoins) push(assets ...models.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, assets)
}

func (s *scriptedCoins) Coins(ctx context.Context) []models.Asset {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return []models.Asset{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		s.last = s.queue[0]
		s.queue = s.queue[1:]
	}
	out := make([]models.Asset, len(s.last))
	copy(out, s.last)
	return out
}

// gatedDetails answers per asset name. Names listed in gates block until
// their channel is closed.
type gatedDetails struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	failSlots map[string]bool
	calls     map[string]int
}

func newGatedDetails() *gatedDetails {
	return &gatedDetails{
		gates:     map[string]chan struct{}{},
		failSlots: map[string]bool{},
		calls:     map[string]int{},
	}
}

func (g *gatedDetails) wait(name, slot string) bool {
	g.mu.Lock()
	g.calls[name+"/"+slot]++
	gate := g.gates[name]
	fail := g.failSlots[slot]
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return !fail
}

func (g *gatedDetails) callCount(name, slot string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name+"/"+slot]
}

func (g *gatedDetails) History(ctx context.Context, name string) []models.PricePoint {
	if !g.wait(name, slotHistory) {
		return []models.PricePoint{}
	}
	return []models.PricePoint{{Date: "2024-01-01", Price: 1}, {Date: "2024-01-02", Price: 2}}
}

func (g *gatedDetails) Sentiment(ctx context.Context, name string) *models.Sentiment {
	if !g.wait(name, slotSentiment) {
		return nil
	}
	return &models.Sentiment{
		Sentiment: models.SentimentNeutral,
		Summary:   name + " summary",
		News:      []models.NewsArticle{{Headline: name, Source: "s"}, {Headline: "b", Source: "s"}, {Headline: "c", Source: "s"}},
	}
}

func (g *gatedDetails) Forecast(ctx context.Context, name string) *models.Forecast {
	if !g.wait(name, slotForecast) {
		return nil
	}
	return &models.Forecast{Summary: name + " forecast", Support: 1, Resistance: 2, Confidence: 50}
}

type countingNotifier struct {
	n atomic.Int64
}

func (c *countingNotifier) Notify() { c.n.Add(1) }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting: %s", msg)
}

func asset(id string, price float64) models.Asset {
	return models.Asset{ID: id, Name: id, Symbol: id, Price: price}
}
