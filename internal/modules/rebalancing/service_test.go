package rebalancing

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/folio/internal/database"
	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
	"github.com/avramidis/folio/internal/modules/portfolio"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

type planFixture struct {
	service    *Service
	exclusions *ExclusionStore
	holdings   *portfolio.HoldingRepository
	included   int64
	excluded   int64
}

// Two portfolios of $5,000 each: the first holds stock, the second bond.
// A 60/40 default model is saved so Plan(0) resolves.
func setupPlanFixture(t *testing.T) planFixture {
	t.Helper()
	db := setupTestDB(t)

	portfolios := portfolio.NewPortfolioRepository(db.Conn(), zerolog.Nop())
	holdings := portfolio.NewHoldingRepository(db.Conn(), zerolog.Nop())
	settings := repositories.NewSettingsRepository(db.Conn(), zerolog.Nop())
	exclusions := NewExclusionStore(settings, zerolog.Nop())
	targets := NewTargetRepository(db.Conn(), zerolog.Nop())

	core := domain.Portfolio{Name: "Core"}
	require.NoError(t, portfolios.Create(&core))
	side := domain.Portfolio{Name: "Side"}
	require.NoError(t, portfolios.Create(&side))

	require.NoError(t, holdings.Upsert(&domain.Holding{
		PortfolioID:  core.ID,
		Symbol:       "VTI",
		Quantity:     decimal.NewFromInt(50),
		CurrentPrice: decimal.NewFromInt(100),
		CurrentValue: decimal.NewFromInt(5000),
		AssetType:    "stock",
	}))
	require.NoError(t, holdings.Upsert(&domain.Holding{
		PortfolioID:  side.ID,
		Symbol:       "BND",
		Quantity:     decimal.NewFromInt(50),
		CurrentPrice: decimal.NewFromInt(100),
		CurrentValue: decimal.NewFromInt(5000),
		AssetType:    "bond",
	}))

	model := domain.TargetModel{
		Name:      "60/40",
		IsDefault: true,
		Allocations: []domain.Allocation{
			{Category: "stock", TargetPct: decimal.NewFromInt(60)},
			{Category: "bond", TargetPct: decimal.NewFromInt(40)},
		},
	}
	require.NoError(t, targets.Save(&model))

	return planFixture{
		service:    NewService(targets, exclusions, holdings, testEpsilon, zerolog.Nop()),
		exclusions: exclusions,
		holdings:   holdings,
		included:   core.ID,
		excluded:   side.ID,
	}
}

func TestPlan_ExcludedPortfolioContributesNothing(t *testing.T) {
	f := setupPlanFixture(t)

	// Both portfolios in: $10,000 at stock 50 / bond 50.
	plan, err := f.service.Plan(0)
	require.NoError(t, err)
	assert.True(t, plan.TotalValue.Equal(decimal.NewFromInt(10000)), "total %s", plan.TotalValue)

	excluded, err := f.exclusions.Toggle(f.excluded)
	require.NoError(t, err)
	require.True(t, excluded)

	// With the bond portfolio out, the plan sees only the $5,000 of stock:
	// stock 100% drifts +40 (SELL $2,000), bond 0% drifts -40 (BUY $2,000).
	// Had the excluded $5,000 leaked in, the bond BUY would be $4,000.
	plan, err = f.service.Plan(0)
	require.NoError(t, err)
	assert.True(t, plan.TotalValue.Equal(decimal.NewFromInt(5000)), "total %s", plan.TotalValue)

	stock := actionFor(t, plan, "stock")
	assert.Equal(t, domain.ActionSell, stock.Action)
	assert.True(t, stock.DriftPercent.Equal(decimal.NewFromInt(40)), "drift %s", stock.DriftPercent)
	assert.True(t, stock.Amount.Equal(decimal.NewFromInt(2000)), "amount %s", stock.Amount)

	bond := actionFor(t, plan, "bond")
	assert.Equal(t, domain.ActionBuy, bond.Action)
	assert.True(t, bond.CurrentValue.IsZero(), "excluded bond value leaked: %s", bond.CurrentValue)
	assert.True(t, bond.Amount.Equal(decimal.NewFromInt(2000)), "amount %s", bond.Amount)
}

func TestPlan_ToggleRoundTripRestoresPortfolio(t *testing.T) {
	f := setupPlanFixture(t)

	excluded, err := f.exclusions.Toggle(f.excluded)
	require.NoError(t, err)
	require.True(t, excluded)

	excluded, err = f.exclusions.Toggle(f.excluded)
	require.NoError(t, err)
	require.False(t, excluded)

	ids, err := f.exclusions.ExcludedPortfolios()
	require.NoError(t, err)
	assert.Empty(t, ids)

	plan, err := f.service.Plan(0)
	require.NoError(t, err)
	assert.True(t, plan.TotalValue.Equal(decimal.NewFromInt(10000)), "total %s", plan.TotalValue)
}

func TestHoldingsExcluding_FiltersExcludedPortfolios(t *testing.T) {
	f := setupPlanFixture(t)

	all, err := f.holdings.HoldingsExcluding(nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	remaining, err := f.holdings.HoldingsExcluding([]int64{f.excluded})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, f.included, remaining[0].PortfolioID)

	// The aggregation total over the filtered set must not carry the
	// excluded $5,000.
	b := allocation.Aggregate(remaining, allocation.ByAssetClass)
	assert.True(t, b.TotalValue.Equal(decimal.NewFromInt(5000)), "total %s", b.TotalValue)
	_, hasBond := b.ValueFor("bond")
	assert.False(t, hasBond)
}
