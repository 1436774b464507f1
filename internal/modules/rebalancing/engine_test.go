package rebalancing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
)

var testEpsilon = decimal.NewFromFloat(0.5)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func model(allocs ...domain.Allocation) domain.TargetModel {
	return domain.TargetModel{ID: 1, Name: "test", Allocations: allocs}
}

func breakdownOf(holdings ...domain.Holding) allocation.Breakdown {
	return allocation.Aggregate(holdings, allocation.ByAssetClass)
}

func classHolding(assetType string, value float64) domain.Holding {
	return domain.Holding{
		PortfolioID:  1,
		Symbol:       assetType,
		AssetType:    assetType,
		CurrentValue: dec(value),
	}
}

func actionFor(t *testing.T, plan domain.RebalancingPlan, category string) domain.RebalancingAction {
	t.Helper()
	for _, a := range plan.Actions {
		if a.Category == category {
			return a
		}
	}
	t.Fatalf("category %s missing from plan", category)
	return domain.RebalancingAction{}
}

func TestBuildPlan_SpecScenario(t *testing.T) {
	// $10,000 portfolio at stock 70% / bond 20% / Unclassified 10%
	// against a 60/40 target.
	b := breakdownOf(
		classHolding("stock", 7000),
		classHolding("bond", 2000),
		domain.Holding{PortfolioID: 1, Symbol: "XYZ", CurrentValue: dec(1000)},
	)
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(60)},
		domain.Allocation{Category: "bond", TargetPct: dec(40)},
	)

	plan := BuildPlan(b, m, testEpsilon)

	stock := actionFor(t, plan, "stock")
	assert.Equal(t, domain.ActionSell, stock.Action)
	assert.True(t, stock.DriftPercent.Equal(dec(10)), "drift %s", stock.DriftPercent)
	assert.True(t, stock.Amount.Equal(dec(1000)), "amount %s", stock.Amount)

	bond := actionFor(t, plan, "bond")
	assert.Equal(t, domain.ActionBuy, bond.Action)
	assert.True(t, bond.DriftPercent.Equal(dec(-20)))
	assert.True(t, bond.Amount.Equal(dec(2000)))

	unclassified := actionFor(t, plan, domain.Unclassified)
	assert.Equal(t, domain.ActionSell, unclassified.Action)
	assert.True(t, unclassified.TargetPercent.IsZero())
	assert.True(t, unclassified.Amount.Equal(dec(1000)))

	assert.True(t, plan.TotalBuy.Equal(dec(2000)), "total buy %s", plan.TotalBuy)
	assert.True(t, plan.TotalSell.Equal(dec(2000)), "total sell %s", plan.TotalSell)
}

func TestBuildPlan_ZeroValuePortfolio(t *testing.T) {
	// Maximal drift but zero amounts: the denominator is zero.
	b := breakdownOf()
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(60)},
		domain.Allocation{Category: "bond", TargetPct: dec(40)},
	)

	plan := BuildPlan(b, m, testEpsilon)

	require.Len(t, plan.Actions, 2)
	for _, a := range plan.Actions {
		assert.True(t, a.CurrentPercent.IsZero())
		assert.Equal(t, domain.ActionBuy, a.Action)
		assert.True(t, a.Amount.IsZero(), "amount must be zero for %s", a.Category)
	}
	assert.True(t, plan.TotalBuy.IsZero())
}

func TestBuildPlan_EpsilonBand(t *testing.T) {
	tests := []struct {
		name     string
		stockPct float64
		want     domain.RebalanceAction
	}{
		{"drift above epsilon sells", 61, domain.ActionSell},
		{"drift below negative epsilon buys", 59, domain.ActionBuy},
		{"drift inside band holds", 60.4, domain.ActionHold},
		{"drift at zero holds", 60, domain.ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := breakdownOf(
				classHolding("stock", tt.stockPct*100),
				classHolding("bond", (100-tt.stockPct)*100),
			)
			m := model(
				domain.Allocation{Category: "stock", TargetPct: dec(60)},
				domain.Allocation{Category: "bond", TargetPct: dec(40)},
			)

			plan := BuildPlan(b, m, testEpsilon)
			assert.Equal(t, tt.want, actionFor(t, plan, "stock").Action)
		})
	}
}

func TestBuildPlan_CategoryCompleteness(t *testing.T) {
	// Output categories = union of held and targeted categories.
	b := breakdownOf(
		classHolding("stock", 5000),
		classHolding("gold", 5000),
	)
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(50)},
		domain.Allocation{Category: "bond", TargetPct: dec(50)},
	)

	plan := BuildPlan(b, m, testEpsilon)

	require.Len(t, plan.Actions, 3)
	// Model order first, extras appended.
	assert.Equal(t, "stock", plan.Actions[0].Category)
	assert.Equal(t, "bond", plan.Actions[1].Category)
	assert.Equal(t, "gold", plan.Actions[2].Category)

	bond := actionFor(t, plan, "bond")
	assert.Equal(t, domain.ActionBuy, bond.Action)
	assert.True(t, bond.CurrentValue.IsZero())

	gold := actionFor(t, plan, "gold")
	assert.Equal(t, domain.ActionSell, gold.Action)
}

func TestBuildPlan_AmountConsistency(t *testing.T) {
	b := breakdownOf(
		classHolding("stock", 7321.55),
		classHolding("bond", 2678.45),
	)
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(60)},
		domain.Allocation{Category: "bond", TargetPct: dec(40)},
	)

	plan := BuildPlan(b, m, testEpsilon)

	for _, a := range plan.Actions {
		if a.Action == domain.ActionHold {
			continue
		}
		expected := a.DriftPercent.Abs().Div(decimal.NewFromInt(100)).Mul(plan.TotalValue)
		assert.True(t, a.Amount.Equal(expected),
			"category %s amount %s != %s", a.Category, a.Amount, expected)
	}
}

func TestBuildPlan_DoesNotRenormalizeInvalidModel(t *testing.T) {
	// A stale model summing to 80 computes as-is.
	b := breakdownOf(
		classHolding("stock", 5000),
		classHolding("bond", 5000),
	)
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(40)},
		domain.Allocation{Category: "bond", TargetPct: dec(40)},
	)

	plan := BuildPlan(b, m, testEpsilon)

	stock := actionFor(t, plan, "stock")
	assert.True(t, stock.TargetPercent.Equal(dec(40)))
	assert.True(t, stock.DriftPercent.Equal(dec(10)))
	assert.Equal(t, domain.ActionSell, stock.Action)
}

func TestBuildPlan_Idempotent(t *testing.T) {
	b := breakdownOf(
		classHolding("stock", 7000),
		classHolding("bond", 3000),
	)
	m := model(
		domain.Allocation{Category: "stock", TargetPct: dec(60)},
		domain.Allocation{Category: "bond", TargetPct: dec(40)},
	)

	first := BuildPlan(b, m, testEpsilon)
	second := BuildPlan(b, m, testEpsilon)

	assert.Equal(t, first, second)
}

func TestValidateModel(t *testing.T) {
	tests := []struct {
		name    string
		model   domain.TargetModel
		wantErr bool
	}{
		{
			name: "valid 60/40",
			model: model(
				domain.Allocation{Category: "stock", TargetPct: dec(60)},
				domain.Allocation{Category: "bond", TargetPct: dec(40)},
			),
			wantErr: false,
		},
		{
			name: "fractional percentages summing to 100",
			model: model(
				domain.Allocation{Category: "stock", TargetPct: dec(33.5)},
				domain.Allocation{Category: "bond", TargetPct: dec(33.5)},
				domain.Allocation{Category: "gold", TargetPct: dec(33)},
			),
			wantErr: false,
		},
		{
			name: "sum below 100",
			model: model(
				domain.Allocation{Category: "stock", TargetPct: dec(60)},
				domain.Allocation{Category: "bond", TargetPct: dec(30)},
			),
			wantErr: true,
		},
		{
			name: "negative percentage",
			model: model(
				domain.Allocation{Category: "stock", TargetPct: dec(110)},
				domain.Allocation{Category: "bond", TargetPct: dec(-10)},
			),
			wantErr: true,
		},
		{
			name: "duplicate category",
			model: model(
				domain.Allocation{Category: "stock", TargetPct: dec(50)},
				domain.Allocation{Category: "stock", TargetPct: dec(50)},
			),
			wantErr: true,
		},
		{
			name:    "no allocations",
			model:   model(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.model.Name = "m"
			err := ValidateModel(tt.model)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
