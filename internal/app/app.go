package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/config"
	"github.com/avramidis/folio/internal/database"
	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/events"
	"github.com/avramidis/folio/internal/modules/allocation"
	"github.com/avramidis/folio/internal/modules/health"
	"github.com/avramidis/folio/internal/modules/portfolio"
	"github.com/avramidis/folio/internal/modules/prices"
	"github.com/avramidis/folio/internal/modules/rebalancing"
	"github.com/avramidis/folio/internal/modules/recommendations"
	"github.com/avramidis/folio/internal/modules/transactions"
)

// recomputeDebounce is the settle window for recomputation triggers: rapid
// successive transactions collapse into one recompute.
const recomputeDebounce = 2 * time.Second

// App is the application context: it owns one-time setup of the store and
// the wiring of every service. Initialize is explicitly idempotent. The
// first call does the work and every later call returns the cached result,
// so callers share one handle instead of relying on package-level state.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	initOnce sync.Once
	initErr  error

	DB *database.DB

	Events *events.Handler

	Portfolios      *portfolio.Service
	PortfolioRepo   *portfolio.PortfolioRepository
	Holdings        *portfolio.HoldingRepository
	Transactions    *transactions.Service
	Allocation      *allocation.Service
	Rebalancing     *rebalancing.Service
	Targets         *rebalancing.TargetRepository
	Exclusions      *rebalancing.ExclusionStore
	Health          *health.Service
	Recommendations *recommendations.Service
	Prices          *prices.Service
}

// New creates an uninitialized application context.
func New(cfg *config.Config, log zerolog.Logger) *App {
	return &App{cfg: cfg, log: log}
}

// Initialize opens the store, runs migrations, and wires all services.
// Safe to call from any number of callers; setup runs once.
func (a *App) Initialize() error {
	a.initOnce.Do(func() {
		a.initErr = a.initialize()
	})
	return a.initErr
}

func (a *App) initialize() error {
	db, err := database.New(a.cfg.DatabasePath)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		return err
	}
	a.DB = db
	conn := db.Conn()

	settings := repositories.NewSettingsRepository(conn, a.log)

	a.PortfolioRepo = portfolio.NewPortfolioRepository(conn, a.log)
	a.Holdings = portfolio.NewHoldingRepository(conn, a.log)
	a.Targets = rebalancing.NewTargetRepository(conn, a.log)
	a.Exclusions = rebalancing.NewExclusionStore(settings, a.log)
	snapshots := prices.NewSnapshotRepository(conn, a.log)

	a.Events = events.NewHandler(recomputeDebounce, a.recompute, a.log)

	a.Portfolios = portfolio.NewService(a.PortfolioRepo, a.Holdings, a.Exclusions, a.log)
	txRepo := transactions.NewRepository(conn, a.log)
	a.Transactions = transactions.NewService(txRepo, a.Holdings, a.Events, a.log)

	a.Allocation = allocation.NewService(a.Holdings, a.Exclusions, a.log)

	epsilon := decimal.NewFromFloat(a.cfg.Analytics.DriftEpsilonPct)
	a.Rebalancing = rebalancing.NewService(a.Targets, a.Exclusions, a.Holdings, epsilon, a.log)

	a.Health = health.NewService(a.Holdings, a.Exclusions, snapshots, settings, a.log)

	a.Recommendations = recommendations.NewService(
		a.Health, a.Rebalancing, a.Allocation,
		recommendations.Thresholds{
			RebalanceMaterialityPct: decimal.NewFromFloat(a.cfg.Analytics.RebalanceMaterialityPct),
			CashDragPct:             decimal.NewFromFloat(a.cfg.Analytics.CashDragThresholdPct),
		},
		a.log,
	)

	client := prices.NewClient(
		a.cfg.Prices.QuoteURL,
		time.Duration(a.cfg.Prices.TimeoutSecs)*time.Second,
		a.log,
	)
	a.Prices = prices.NewService(client, a.Holdings, snapshots, a.Events, a.log)

	return nil
}

// recompute runs after a settled burst of triggers. The engines are pure, so
// this only warms the derived figures and surfaces them in the log; callers
// that need fresh numbers get them on request.
func (a *App) recompute(triggers []events.Trigger) {
	ph, err := a.Health.Calculate("")
	if err != nil {
		a.log.Error().Err(err).Msg("Recompute failed")
		return
	}

	a.log.Info().
		Int("triggers", len(triggers)).
		Float64("health_score", ph.OverallScore).
		Msg("Recomputed portfolio analytics")
}

// Close releases the store.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
