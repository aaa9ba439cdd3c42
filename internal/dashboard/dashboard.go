package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cryptodash/internal/instrumentation"
	"cryptodash/internal/models"
)

// Config holds the timing knobs of the dashboard.
type Config struct {
	RefreshInterval time.Duration
	FlashWindow     time.Duration
}

// Dashboard wires the orchestrator's selection changes into the detail
// loader and exposes the combined view.
type Dashboard struct {
	orch   *Orchestrator
	loader *Loader
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
}

// New creates a dashboard. publisher, notifier and metrics may be nil.
func New(cfg Config, coins CoinSource, details DetailSource, publisher SnapshotPublisher, notifier Notifier, logger *slog.Logger, metrics *instrumentation.Metrics) *Dashboard {
	d := &Dashboard{
		orch:    NewOrchestrator(coins, publisher, notifier, cfg.RefreshInterval, cfg.FlashWindow, logger, metrics),
		loader:  NewLoader(details, notifier, logger, metrics),
		logger:  logger.With("component", "dashboard"),
		now:     time.Now,
		baseCtx: context.Background(),
	}
	d.orch.onSelect = func(ctx context.Context, asset models.Asset) func() {
		gen := d.loader.begin(asset)
		return func() { d.loader.start(ctx, gen, asset) }
	}
	d.orch.retry = func(asset models.Asset) bool {
		if !d.loader.Failed(asset.ID) {
			return false
		}
		d.logger.Info("detail_reload_requested", "asset_id", asset.ID)
		return true
	}
	return d
}

// Start begins refreshing. Detail fetches run under ctx rather than under
// the request that triggered them.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()

	d.orch.Start(ctx)
}

// SeedBaseline forwards a previously published snapshot to the orchestrator
// so the first refresh can flag price moves. Call it before Start.
func (d *Dashboard) SeedBaseline(snapshot models.Snapshot) {
	d.orch.SeedBaseline(snapshot)
}

// Stop halts the periodic refresh and waits for outstanding fetches.
func (d *Dashboard) Stop() {
	d.orch.Stop()
	d.loader.Wait()
}

func (d *Dashboard) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseCtx
}

// Refresh starts a manual refresh in the background. It returns false when
// a refresh is already in flight.
func (d *Dashboard) Refresh() bool {
	return d.orch.RefreshAsync(d.context(), true)
}

// Select changes the selected asset. Re-selecting the current asset reloads
// its details only when a slot could not be loaded.
func (d *Dashboard) Select(id string) (models.Asset, error) {
	asset, _, err := d.orch.Select(d.context(), id)
	if err != nil {
		return models.Asset{}, err
	}
	return asset, nil
}

// Asset looks up an asset in the current snapshot.
func (d *Dashboard) Asset(id string) (models.Asset, bool) {
	return findAsset(d.orch.State().Assets, id)
}

// View builds the presentation view at the current time.
func (d *Dashboard) View() View {
	return BuildView(d.orch.State(), d.loader.State(), d.now())
}

// Orchestrator and Loader expose the components for direct use.
func (d *Dashboard) Orchestrator() *Orchestrator { return d.orch }
func (d *Dashboard) Loader() *Loader             { return d.loader }
