package dashboard

import (
	"context"
	"testing"
	"time"
)

func TestLoader_LoadsAllSlots(t *testing.T) {
	details := newGatedDetails()
	notifier := &countingNotifier{}
	l := NewLoader(details, notifier, discardLogger(), nil)

	if s := l.State(); s.HistoryStatus != StatusIdle {
		t.Errorf("Expected idle before any load, got %s", s.HistoryStatus)
	}

	l.Load(context.Background(), asset("bitcoin", 1))
	l.Wait()

	s := l.State()
	if s.AssetID != "bitcoin" {
		t.Errorf("Expected bitcoin, got %s", s.AssetID)
	}
	if s.HistoryStatus != StatusReady || len(s.History) != 2 {
		t.Errorf("Expected ready history, got %s %v", s.HistoryStatus, s.History)
	}
	if s.SentimentStatus != StatusReady || s.Sentiment.Summary != "bitcoin summary" {
		t.Errorf("Expected ready sentiment, got %s %+v", s.SentimentStatus, s.Sentiment)
	}
	if s.ForecastStatus != StatusReady || s.Forecast.Summary != "bitcoin forecast" {
		t.Errorf("Expected ready forecast, got %s %+v", s.ForecastStatus, s.Forecast)
	}
	if notifier.n.Load() < 4 {
		t.Errorf("Expected a notification for the start and each slot, got %d", notifier.n.Load())
	}
}

func TestLoader_SlotsAreIndependent(t *testing.T) {
	details := newGatedDetails()
	details.failSlots[slotSentiment] = true
	l := NewLoader(details, nil, discardLogger(), nil)

	l.Load(context.Background(), asset("eth", 1))
	l.Wait()

	s := l.State()
	if s.SentimentStatus != StatusUnavailable || s.Sentiment != nil {
		t.Errorf("Expected sentiment unavailable, got %s", s.SentimentStatus)
	}
	if s.HistoryStatus != StatusReady || s.ForecastStatus != StatusReady {
		t.Errorf("A failed slot should not affect the others: history=%s forecast=%s", s.HistoryStatus, s.ForecastStatus)
	}
	if !l.Failed("eth") {
		t.Error("Expected Failed to report the unavailable slot")
	}
	if l.Failed("bitcoin") {
		t.Error("Failed should only report for the loaded asset")
	}
}

func TestLoader_EmptyHistoryIsUnavailable(t *testing.T) {
	details := newGatedDetails()
	details.failSlots[slotHistory] = true
	l := NewLoader(details, nil, discardLogger(), nil)

	l.Load(context.Background(), asset("sol", 1))
	l.Wait()

	s := l.State()
	if s.HistoryStatus != StatusUnavailable {
		t.Errorf("Expected history unavailable, got %s", s.HistoryStatus)
	}
	if len(s.History) != 0 {
		t.Errorf("Expected empty history, got %v", s.History)
	}
}

func TestLoader_LoadingWhileInFlight(t *testing.T) {
	details := newGatedDetails()
	gate := make(chan struct{})
	details.gates["bitcoin"] = gate
	l := NewLoader(details, nil, discardLogger(), nil)

	l.Load(context.Background(), asset("bitcoin", 1))

	s := l.State()
	if s.HistoryStatus != StatusLoading || s.SentimentStatus != StatusLoading || s.ForecastStatus != StatusLoading {
		t.Errorf("Expected all slots loading, got %+v", s)
	}
	if s.History != nil || s.Sentiment != nil || s.Forecast != nil {
		t.Error("Slots should be cleared when a load starts")
	}

	close(gate)
	l.Wait()
}

func TestLoader_StaleResultsDiscarded(t *testing.T) {
	details := newGatedDetails()
	gateA := make(chan struct{})
	details.gates["A"] = gateA
	l := NewLoader(details, nil, discardLogger(), nil)

	l.Load(context.Background(), asset("A", 1))
	l.Load(context.Background(), asset("B", 2))

	waitFor(t, time.Second, func() bool {
		return l.State().ForecastStatus == StatusReady
	}, "B results")

	close(gateA)
	l.Wait()

	s := l.State()
	if s.AssetID != "B" {
		t.Fatalf("Expected B, got %s", s.AssetID)
	}
	if s.Sentiment == nil || s.Sentiment.Summary != "B summary" {
		t.Errorf("A's sentiment overwrote B's: %+v", s.Sentiment)
	}
	if s.Forecast == nil || s.Forecast.Summary != "B forecast" {
		t.Errorf("A's forecast overwrote B's: %+v", s.Forecast)
	}
}

func TestLoader_ReturnToEarlierAssetIgnoresOldRequest(t *testing.T) {
	details := newGatedDetails()
	gate := make(chan struct{})
	details.gates["A"] = gate
	l := NewLoader(details, nil, discardLogger(), nil)

	// A -> B -> A: the first A request must not settle the second A load.
	l.Load(context.Background(), asset("A", 1))
	l.Load(context.Background(), asset("B", 1))
	l.Load(context.Background(), asset("A", 1))

	s := l.State()
	if s.ForecastStatus != StatusLoading {
		t.Errorf("Expected loading, got %s", s.ForecastStatus)
	}

	close(gate)
	l.Wait()

	if details.callCount("A", slotForecast) != 2 {
		t.Errorf("Expected two forecast requests for A, got %d", details.callCount("A", slotForecast))
	}
	if s := l.State(); s.ForecastStatus != StatusReady {
		t.Errorf("Expected ready after the latest load, got %s", s.ForecastStatus)
	}
}
