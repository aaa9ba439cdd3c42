package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cryptodash/internal/instrumentation"
	"cryptodash/internal/models"
)

// ErrUnknownAsset is returned when selecting an id absent from the snapshot.
var ErrUnknownAsset = errors.New("asset not in current snapshot")

// CoinSource fetches a fresh asset collection. An empty result is the only
// failure signal.
type CoinSource interface {
	Coins(ctx context.Context) []models.Asset
}

// SnapshotPublisher receives every successful snapshot.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// Notifier is told whenever observable state changes.
type Notifier interface {
	Notify()
}

type nopNotifier struct{}

func (nopNotifier) Notify() {}

// OrchestratorState is a copy of the orchestrator's observable state.
type OrchestratorState struct {
	Assets       []models.Asset
	Deltas       map[string]models.Delta
	Selected     *models.Asset
	LoadingCoins bool
	Refreshing   bool
	LastUpdated  time.Time
}

// Orchestrator owns the asset collection, the delta flags and the selected
// asset. At most one refresh is in flight at a time.
type Orchestrator struct {
	source    CoinSource
	publisher SnapshotPublisher
	notifier  Notifier
	interval  time.Duration
	flash     time.Duration
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	now       func() time.Time

	// onSelect runs under mu whenever the selected id changes, and on a
	// re-select of the current id when retry reports true. The returned
	// func, if any, runs once mu is released.
	onSelect func(ctx context.Context, asset models.Asset) (dispatch func())
	retry    func(asset models.Asset) bool

	mu           sync.Mutex
	assets       []models.Asset
	baseline     []models.Asset
	deltas       map[string]models.Delta
	selected     *models.Asset
	loadingCoins bool
	refreshing   bool
	inFlight     bool
	lastUpdated  time.Time
	flashTimer   *time.Timer
	flashSeq     uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. publisher, notifier and metrics may be nil.
func NewOrchestrator(source CoinSource, publisher SnapshotPublisher, notifier Notifier, interval, flash time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *Orchestrator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Orchestrator{
		source:       source,
		publisher:    publisher,
		notifier:     notifier,
		interval:     interval,
		flash:        flash,
		logger:       logger.With("component", "orchestrator"),
		metrics:      metrics,
		now:          time.Now,
		deltas:       map[string]models.Delta{},
		loadingCoins: true,
	}
}

// Start issues the initial manual-equivalent refresh and schedules automatic
// refreshes every interval until Stop.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.Refresh(ctx, true)
	}()
	go func() {
		defer o.wg.Done()
		o.loop(ctx)
	}()

	o.logger.Info("orchestrator_started",
		"refresh_interval_sec", o.interval.Seconds(),
		"flash_window_ms", o.flash.Milliseconds(),
	)
}

func (o *Orchestrator) loop(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Refresh(ctx, false)
		}
	}
}

// Stop cancels the periodic task, waits for in-flight refreshes and stops
// the pending delta clear.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	o.mu.Lock()
	if o.flashTimer != nil {
		o.flashTimer.Stop()
		o.flashTimer = nil
	}
	o.mu.Unlock()

	o.logger.Info("orchestrator_stopped")
}

// SeedBaseline sets the collection the first successful refresh compares
// against, typically the snapshot a previous run published. The seeded
// assets are not shown and the coins-loading state is kept.
func (o *Orchestrator) SeedBaseline(snapshot models.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.assets) > 0 {
		return
	}
	o.baseline = cloneAssets(snapshot.Assets)
	o.logger.Info("baseline_seeded", "assets", len(snapshot.Assets), "fetched_at", snapshot.FetchedAt)
}

// Refresh fetches a new snapshot and applies it. It returns false without
// fetching when another refresh is already in flight.
func (o *Orchestrator) Refresh(ctx context.Context, manual bool) bool {
	if !o.begin(manual) {
		return false
	}
	o.finish(ctx, manual)
	return true
}

// RefreshAsync is Refresh with the fetch running in the background. The
// in-flight check happens before it returns.
func (o *Orchestrator) RefreshAsync(ctx context.Context, manual bool) bool {
	if !o.begin(manual) {
		return false
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.finish(ctx, manual)
	}()
	return true
}

func (o *Orchestrator) begin(manual bool) bool {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		o.logger.Debug("refresh_skipped_in_flight", "manual", manual)
		o.metrics.RecordRefresh(manual, "skipped")
		return false
	}
	o.inFlight = true
	if manual {
		o.refreshing = true
	}
	o.mu.Unlock()

	if manual {
		o.notifier.Notify()
	}
	return true
}

func (o *Orchestrator) finish(ctx context.Context, manual bool) {
	start := time.Now()
	assets := o.source.Coins(ctx)

	o.mu.Lock()
	o.inFlight = false
	if manual {
		o.refreshing = false
	}

	if len(assets) == 0 {
		o.mu.Unlock()
		o.logger.Warn("refresh_failed", "manual", manual, "latency_ms", time.Since(start).Milliseconds())
		o.metrics.RecordRefresh(manual, "empty")
		o.notifier.Notify()
		return
	}

	prev := o.assets
	if len(prev) == 0 {
		prev = o.baseline
	}
	o.baseline = nil

	var up, down int
	if len(prev) > 0 {
		deltas := ComputeDeltas(prev, assets)
		for _, d := range deltas {
			if d == models.DeltaUp {
				up++
			} else {
				down++
			}
		}
		o.publishDeltasLocked(deltas)
	}

	o.assets = assets
	o.lastUpdated = o.now()
	o.loadingCoins = false

	var dispatch func()
	if o.selected != nil {
		if fresh, ok := findAsset(assets, o.selected.ID); ok {
			o.selected = &fresh
		}
	} else {
		first := assets[0]
		o.selected = &first
		dispatch = o.selectedLocked(ctx, first)
	}

	snapshot := models.Snapshot{Assets: cloneAssets(assets), FetchedAt: o.lastUpdated}
	o.mu.Unlock()

	o.logger.Info("refresh_completed",
		"manual", manual,
		"assets", len(assets),
		"up", up,
		"down", down,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	o.metrics.RecordRefresh(manual, "ok")
	o.metrics.RecordSnapshot(len(assets), up, down)

	if o.publisher != nil {
		if err := o.publisher.PublishSnapshot(ctx, snapshot); err != nil {
			o.logger.Warn("snapshot_publish_failed", "error", err)
		}
	}

	o.notifier.Notify()

	if dispatch != nil {
		dispatch()
	}
}

// selectedLocked hands a selection to onSelect. Caller holds o.mu, so no
// other selection can claim the detail slots in between.
func (o *Orchestrator) selectedLocked(ctx context.Context, asset models.Asset) func() {
	if o.onSelect == nil {
		return nil
	}
	return o.onSelect(ctx, asset)
}

// publishDeltasLocked replaces the delta map and reschedules its clear.
// The previous clear timer is cancelled so only the newest publish decides
// when flags disappear. Caller holds o.mu.
func (o *Orchestrator) publishDeltasLocked(deltas map[string]models.Delta) {
	o.deltas = deltas
	o.flashSeq++
	seq := o.flashSeq

	if o.flashTimer != nil {
		o.flashTimer.Stop()
	}
	o.flashTimer = time.AfterFunc(o.flash, func() {
		o.clearDeltas(seq)
	})
}

func (o *Orchestrator) clearDeltas(seq uint64) {
	o.mu.Lock()
	// A timer that fired concurrently with a newer publish loses.
	if seq != o.flashSeq {
		o.mu.Unlock()
		return
	}
	o.deltas = map[string]models.Delta{}
	o.flashTimer = nil
	o.mu.Unlock()

	o.notifier.Notify()
}

// Select makes the asset with id the current selection. changed reports
// whether the selected id differs from before.
func (o *Orchestrator) Select(ctx context.Context, id string) (asset models.Asset, changed bool, err error) {
	o.mu.Lock()
	found, ok := findAsset(o.assets, id)
	if !ok {
		o.mu.Unlock()
		return models.Asset{}, false, ErrUnknownAsset
	}
	changed = o.selected == nil || o.selected.ID != id
	o.selected = &found

	var dispatch func()
	if changed || (o.retry != nil && o.retry(found)) {
		dispatch = o.selectedLocked(ctx, found)
	}
	o.mu.Unlock()

	o.notifier.Notify()

	if dispatch != nil {
		dispatch()
	}
	return found, changed, nil
}

// State returns a copy of the observable state.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	deltas := make(map[string]models.Delta, len(o.deltas))
	for id, d := range o.deltas {
		deltas[id] = d
	}

	var selected *models.Asset
	if o.selected != nil {
		s := *o.selected
		selected = &s
	}

	return OrchestratorState{
		Assets:       cloneAssets(o.assets),
		Deltas:       deltas,
		Selected:     selected,
		LoadingCoins: o.loadingCoins,
		Refreshing:   o.refreshing,
		LastUpdated:  o.lastUpdated,
	}
}

// ComputeDeltas flags every asset present in both snapshots whose price
// moved. Equal prices and new assets carry no flag.
func ComputeDeltas(prev, next []models.Asset) map[string]models.Delta {
	old := make(map[string]float64, len(prev))
	for _, a := range prev {
		old[a.ID] = a.Price
	}

	deltas := make(map[string]models.Delta)
	for _, a := range next {
		price, ok := old[a.ID]
		if !ok {
			continue
		}
		switch {
		case a.Price > price:
			deltas[a.ID] = models.DeltaUp
		case a.Price < price:
			deltas[a.ID] = models.DeltaDown
		}
	}
	return deltas
}

func findAsset(assets []models.Asset, id string) (models.Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a, true
		}
	}
	return models.Asset{}, false
}

func cloneAssets(assets []models.Asset) []models.Asset {
	out := make([]models.Asset, len(assets))
	copy(out, assets)
	return out
}
