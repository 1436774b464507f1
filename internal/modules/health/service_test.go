package health

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
)

func balanced(t *testing.T) domain.AnalysisProfile {
	t.Helper()
	p, err := ProfileByID("balanced")
	require.NoError(t, err)
	return p
}

func snapshotOf(holdings []domain.Holding, history []domain.ValueSnapshot) Snapshot {
	return Snapshot{
		Breakdown: allocation.Aggregate(holdings, allocation.ByAssetClass),
		Holdings:  holdings,
		History:   history,
	}
}

func testHolding(assetType string, value, cost float64) domain.Holding {
	return domain.Holding{
		PortfolioID:  1,
		Symbol:       assetType,
		AssetType:    assetType,
		CurrentValue: decimal.NewFromFloat(value),
		CostBasis:    decimal.NewFromFloat(cost),
	}
}

func historyOf(values ...float64) []domain.ValueSnapshot {
	history := make([]domain.ValueSnapshot, len(values))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		history[i] = domain.ValueSnapshot{
			Date:       base.AddDate(0, 0, i),
			TotalValue: decimal.NewFromFloat(v),
		}
	}
	return history
}

func metricByID(t *testing.T, ph domain.PortfolioHealth, id domain.MetricID) domain.HealthMetric {
	t.Helper()
	for _, m := range ph.Metrics {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("metric %s missing", id)
	return domain.HealthMetric{}
}

func TestScore_EmptyPortfolioScoresZero(t *testing.T) {
	ph := Score(snapshotOf(nil, nil), balanced(t))

	assert.Zero(t, ph.OverallScore)
	require.Len(t, ph.Metrics, 3)
	for _, m := range ph.Metrics {
		assert.Zero(t, m.Score)
		assert.Equal(t, domain.StatusCritical, m.Status)
	}
}

func TestScore_DiversificationPenalizesConcentration(t *testing.T) {
	concentrated := snapshotOf([]domain.Holding{
		testHolding("Stock", 10000, 9000),
	}, nil)
	spread := snapshotOf([]domain.Holding{
		testHolding("Stock", 2500, 2000),
		testHolding("Bond", 2500, 2400),
		testHolding("Commodity", 2500, 2600),
		testHolding("REIT", 2500, 2300),
	}, nil)

	profile := balanced(t)
	concentratedScore := metricByID(t, Score(concentrated, profile), domain.MetricDiversification)
	spreadScore := metricByID(t, Score(spread, profile), domain.MetricDiversification)

	// Single category: HHI = 1, score 0.
	assert.Zero(t, concentratedScore.Score)
	assert.Equal(t, domain.StatusCritical, concentratedScore.Status)

	// Four equal categories: HHI = 0.25, score 75.
	assert.InDelta(t, 75, spreadScore.Score, 0.1)
	assert.Equal(t, domain.StatusGood, spreadScore.Status)
}

func TestScore_PerformanceAgainstBaseline(t *testing.T) {
	// 7% unrealized return matches the baseline: score 50.
	atBaseline := snapshotOf([]domain.Holding{
		testHolding("Stock", 10700, 10000),
	}, nil)
	ph := Score(atBaseline, balanced(t))
	perf := metricByID(t, ph, domain.MetricPerformance)
	assert.InDelta(t, 50, perf.Score, 0.1)

	// A 27% return sits 20 points of excess x 2.5 slope above the centre.
	outperforming := snapshotOf([]domain.Holding{
		testHolding("Stock", 12700, 10000),
	}, nil)
	perf = metricByID(t, Score(outperforming, balanced(t)), domain.MetricPerformance)
	assert.InDelta(t, 100, perf.Score, 0.1)
}

func TestScore_PerformanceWithoutCostBasisIsNeutral(t *testing.T) {
	snap := snapshotOf([]domain.Holding{
		testHolding("Stock", 5000, 0),
	}, nil)

	perf := metricByID(t, Score(snap, balanced(t)), domain.MetricPerformance)
	assert.Equal(t, 50.0, perf.Score)
}

func TestScore_VolatilityPrefersStability(t *testing.T) {
	holdings := []domain.Holding{testHolding("Stock", 10000, 9000)}

	steady := snapshotOf(holdings, historyOf(10000, 10010, 9990, 10005, 10000))
	choppy := snapshotOf(holdings, historyOf(10000, 7000, 13000, 6000, 14000))

	profile := balanced(t)
	steadyVol := metricByID(t, Score(steady, profile), domain.MetricVolatility)
	choppyVol := metricByID(t, Score(choppy, profile), domain.MetricVolatility)

	assert.Greater(t, steadyVol.Score, choppyVol.Score)
	assert.Equal(t, domain.StatusGood, steadyVol.Status)

	// The history is the all-portfolio total; the detail says so.
	assert.Contains(t, steadyVol.Detail, "all portfolios")
}

func TestScore_VolatilityWithShortHistory(t *testing.T) {
	snap := snapshotOf([]domain.Holding{testHolding("Stock", 10000, 9000)}, historyOf(10000))

	vol := metricByID(t, Score(snap, balanced(t)), domain.MetricVolatility)
	assert.Equal(t, MaxScore, vol.Score)
	assert.Equal(t, domain.StatusGood, vol.Status)
}

func TestScore_OverallIsWeightedSum(t *testing.T) {
	snap := snapshotOf([]domain.Holding{
		testHolding("Stock", 5000, 4000),
		testHolding("Bond", 5000, 5000),
	}, historyOf(9900, 10000, 10100))

	ph := Score(snap, balanced(t))

	expected := 0.0
	for _, m := range ph.Metrics {
		expected += m.Score * m.Weight
	}
	assert.InDelta(t, expected, ph.OverallScore, 0.1)
}

func TestScore_UsesSuppliedWeightsAsIs(t *testing.T) {
	// Weights that do not sum to 1 are not rejected or renormalized.
	snap := snapshotOf([]domain.Holding{
		testHolding("Stock", 5000, 4000),
		testHolding("Bond", 5000, 5000),
	}, nil)

	lopsided := domain.AnalysisProfile{
		ID:      "custom",
		Weights: domain.ProfileWeights{Diversification: 2, Performance: 0, Volatility: 0},
	}

	ph := Score(snap, lopsided)
	div := metricByID(t, ph, domain.MetricDiversification)
	assert.InDelta(t, div.Score*2, ph.OverallScore, 0.1)
}

func TestScore_Idempotent(t *testing.T) {
	snap := snapshotOf([]domain.Holding{
		testHolding("Stock", 6000, 5000),
		testHolding("Bond", 4000, 4100),
	}, historyOf(9800, 9900, 10000))

	first := Score(snap, balanced(t))
	second := Score(snap, balanced(t))

	assert.Equal(t, first, second)
}

func TestProfileByID(t *testing.T) {
	for _, id := range []string{"balanced", "growth", "conservative"} {
		p, err := ProfileByID(id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)

		sum := p.Weights.Diversification + p.Weights.Performance + p.Weights.Volatility
		assert.InDelta(t, 1.0, sum, 0.0001, "profile %s weights must sum to 1", id)
	}

	_, err := ProfileByID("bogus")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}
