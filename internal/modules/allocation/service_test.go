package allocation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/folio/internal/domain"
)

func holding(portfolioID int64, symbol, assetType, sector, region string, value float64) domain.Holding {
	return domain.Holding{
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		AssetType:    assetType,
		Sector:       sector,
		Region:       region,
		CurrentValue: decimal.NewFromFloat(value),
	}
}

func TestAggregate_GroupsByAssetClass(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "Broad", "US", 6000),
		holding(1, "VXUS", "Stock", "Broad", "Intl", 1000),
		holding(1, "BND", "Bond", "Broad", "US", 3000),
	}

	b := Aggregate(holdings, ByAssetClass)

	assert.True(t, b.TotalValue.Equal(decimal.NewFromInt(10000)))
	require.Len(t, b.Slices, 2)

	stock, ok := b.ValueFor("Stock")
	require.True(t, ok)
	assert.True(t, stock.Value.Equal(decimal.NewFromInt(7000)))
	assert.True(t, stock.Percent.Equal(decimal.NewFromInt(70)))

	bond, ok := b.ValueFor("Bond")
	require.True(t, ok)
	assert.True(t, bond.Percent.Equal(decimal.NewFromInt(30)))
}

func TestAggregate_TotalInvariant(t *testing.T) {
	// Sum of slice values must equal the sum of all included holdings,
	// cash netting included.
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "", "", 4000),
		holding(1, "AAPL", "", "Technology", "US", 1500),
		holding(1, "CASH", domain.AssetTypeCash, "", "", 700),
		holding(2, "MARGIN", domain.AssetTypeCash, "", "", -200),
	}

	b := Aggregate(holdings, ByAssetClass)

	sum := decimal.Zero
	for _, s := range b.Slices {
		sum = sum.Add(s.Value)
	}
	assert.True(t, sum.Equal(b.TotalValue), "slice sum %s != total %s", sum, b.TotalValue)
	assert.True(t, b.TotalValue.Equal(decimal.NewFromInt(6000)))
}

func TestAggregate_PercentagesSumTo100(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "A", "Stock", "", "", 3333),
		holding(1, "B", "Bond", "", "", 3333),
		holding(1, "C", "Commodity", "", "", 3334),
	}

	b := Aggregate(holdings, ByAssetClass)

	sum := decimal.Zero
	for _, s := range b.Slices {
		sum = sum.Add(s.Percent)
	}
	diff := sum.Sub(decimal.NewFromInt(100)).Abs()
	assert.True(t, diff.LessThan(decimal.NewFromFloat(0.0001)), "percent sum %s", sum)
}

func TestAggregate_UnclassifiedNotDropped(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "", "", 9000),
		holding(1, "XYZ", "", "", "", 1000),
	}

	b := Aggregate(holdings, ByAssetClass)

	unclassified, ok := b.ValueFor(domain.Unclassified)
	require.True(t, ok, "unclassified value must appear as its own category")
	assert.True(t, unclassified.Value.Equal(decimal.NewFromInt(1000)))
	assert.True(t, unclassified.Percent.Equal(decimal.NewFromInt(10)))
}

func TestAggregate_NetCashPositive(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "", "", 8000),
		holding(1, "CASH", domain.AssetTypeCash, "", "", 1500),
		holding(2, "CASH", domain.AssetTypeCash, "", "", 500),
	}

	b := Aggregate(holdings, ByAssetClass)

	netCash, ok := b.ValueFor(domain.CategoryNetCash)
	require.True(t, ok)
	assert.True(t, netCash.Value.Equal(decimal.NewFromInt(2000)))
	assert.True(t, b.NetCash.Equal(decimal.NewFromInt(2000)))

	_, hasMargin := b.ValueFor(domain.CategoryMargin)
	assert.False(t, hasMargin)
}

func TestAggregate_NegativeNetCashBecomesMargin(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "", "", 10000),
		holding(1, "CASH", domain.AssetTypeCash, "", "", 500),
		holding(1, "MARGIN", domain.AssetTypeCash, "", "", -2000),
	}

	b := Aggregate(holdings, ByAssetClass)

	margin, ok := b.ValueFor(domain.CategoryMargin)
	require.True(t, ok)
	assert.True(t, margin.Value.Equal(decimal.NewFromInt(-1500)))
	assert.True(t, b.NetCash.IsNegative())

	// Proportional view drops the margin slice, additive view keeps it.
	for _, s := range b.ProportionalSlices() {
		assert.NotEqual(t, domain.CategoryMargin, s.Category)
	}
	assert.Len(t, b.Slices, len(b.ProportionalSlices())+1)
}

func TestAggregate_ZeroTotalValue(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "VTI", "Stock", "", "", 0),
		holding(1, "BND", "Bond", "", "", 0),
	}

	b := Aggregate(holdings, ByAssetClass)

	assert.True(t, b.TotalValue.IsZero())
	for _, s := range b.Slices {
		assert.True(t, s.Percent.IsZero(), "category %s percent must be zero", s.Category)
	}
}

func TestAggregate_EmptyHoldings(t *testing.T) {
	b := Aggregate(nil, BySector)

	assert.True(t, b.TotalValue.IsZero())
	assert.Empty(t, b.Slices)
}

func TestAggregate_SectorAndRegionDimensions(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "AAPL", "Stock", "Technology", "US", 5000),
		holding(1, "SAP", "Stock", "Technology", "EU", 3000),
		holding(1, "XOM", "Stock", "Energy", "US", 2000),
	}

	bySector := Aggregate(holdings, BySector)
	tech, ok := bySector.ValueFor("Technology")
	require.True(t, ok)
	assert.True(t, tech.Value.Equal(decimal.NewFromInt(8000)))

	byRegion := Aggregate(holdings, ByRegion)
	us, ok := byRegion.ValueFor("US")
	require.True(t, ok)
	assert.True(t, us.Value.Equal(decimal.NewFromInt(7000)))
}

func TestAggregate_Deterministic(t *testing.T) {
	holdings := []domain.Holding{
		holding(1, "A", "Stock", "", "", 5000),
		holding(1, "B", "Bond", "", "", 5000),
		holding(1, "C", "Commodity", "", "", 2000),
	}

	first := Aggregate(holdings, ByAssetClass)
	second := Aggregate(holdings, ByAssetClass)

	require.Equal(t, len(first.Slices), len(second.Slices))
	for i := range first.Slices {
		assert.Equal(t, first.Slices[i].Category, second.Slices[i].Category)
	}
	// Equal-value categories break ties by name.
	assert.Equal(t, "Bond", first.Slices[0].Category)
	assert.Equal(t, "Stock", first.Slices[1].Category)
}

func TestParseDimension(t *testing.T) {
	tests := []struct {
		input string
		want  Dimension
	}{
		{"asset_class", ByAssetClass},
		{"sector", BySector},
		{"region", ByRegion},
		{"", ByAssetClass},
		{"bogus", ByAssetClass},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDimension(tt.input))
		})
	}
}
