package health

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
)

// Sub-score thresholds and formula constants. The concentration and
// volatility formulas (Herfindahl index, coefficient of variation) are fixed;
// these constants are the tunable part.
const (
	MaxScore = 100.0

	DiversificationGood = 70.0
	DiversificationWarn = 40.0

	PerformanceGood = 60.0
	PerformanceWarn = 40.0

	VolatilityGood = 70.0
	VolatilityWarn = 40.0

	// BaselineReturnPct is the benchmark return the performance score is
	// centered on: matching it scores 50.
	BaselineReturnPct = 7.0
	// PerformanceSlope converts percentage points of excess return into
	// score points.
	PerformanceSlope = 2.5

	// VolatilityScale converts the coefficient of variation into a score
	// deduction: CV 0.25 exhausts the 100-point scale.
	VolatilityScale = 400.0
)

// Snapshot is the immutable input of one health calculation.
type Snapshot struct {
	Breakdown allocation.Breakdown
	Holdings  []domain.Holding
	History   []domain.ValueSnapshot
}

// Score computes portfolio health for one snapshot under one profile. Pure
// and idempotent: no clock, no I/O, identical inputs give identical output.
// Profile weights are used as supplied, whether or not they sum to 1.
func Score(snap Snapshot, profile domain.AnalysisProfile) domain.PortfolioHealth {
	if len(snap.Holdings) == 0 {
		// Empty portfolio: zero scores rather than indeterminate results.
		return domain.PortfolioHealth{
			ProfileID: profile.ID,
			Metrics: []domain.HealthMetric{
				emptyMetric(domain.MetricDiversification, profile.Weights.Diversification),
				emptyMetric(domain.MetricPerformance, profile.Weights.Performance),
				emptyMetric(domain.MetricVolatility, profile.Weights.Volatility),
			},
		}
	}

	metrics := []domain.HealthMetric{
		diversificationMetric(snap.Breakdown, profile.Weights.Diversification),
		performanceMetric(snap.Holdings, profile.Weights.Performance),
		volatilityMetric(snap.History, profile.Weights.Volatility),
	}

	overall := 0.0
	for _, m := range metrics {
		overall += m.Score * m.Weight
	}

	return domain.PortfolioHealth{
		OverallScore: round1(overall),
		ProfileID:    profile.ID,
		Metrics:      metrics,
	}
}

// diversificationMetric scores category concentration via the Herfindahl
// index over proportional asset-class shares: score = (1 - HHI) x 100.
func diversificationMetric(b allocation.Breakdown, weight float64) domain.HealthMetric {
	m := domain.HealthMetric{
		ID:       domain.MetricDiversification,
		MaxScore: MaxScore,
		Weight:   weight,
	}

	if b.TotalValue.IsZero() {
		m.Status = domain.StatusCritical
		m.Detail = "Portfolio has no value"
		return m
	}

	hhi := 0.0
	largest := allocation.Slice{}
	for _, s := range b.ProportionalSlices() {
		share := s.Percent.InexactFloat64() / 100
		hhi += share * share
		if s.Value.GreaterThan(largest.Value) {
			largest = s
		}
	}

	m.Score = round1(clamp((1-hhi)*MaxScore, 0, MaxScore))
	m.Status = statusFor(m.Score, DiversificationGood, DiversificationWarn)
	m.Detail = fmt.Sprintf("Largest category %s holds %s%% of portfolio (HHI %.2f)",
		largest.Category, largest.Percent.Round(1), hhi)
	return m
}

// performanceMetric scores unrealized return against the baseline: matching
// the baseline scores 50, each excess percentage point moves the score by
// the slope.
func performanceMetric(holdings []domain.Holding, weight float64) domain.HealthMetric {
	m := domain.HealthMetric{
		ID:       domain.MetricPerformance,
		MaxScore: MaxScore,
		Weight:   weight,
	}

	cost := 0.0
	value := 0.0
	for _, h := range holdings {
		if h.IsCash() {
			continue
		}
		cost += h.CostBasis.InexactFloat64()
		value += h.CurrentValue.InexactFloat64()
	}

	if len(holdings) == 0 {
		m.Status = domain.StatusCritical
		m.Detail = "Portfolio has no holdings"
		return m
	}

	if cost <= 0 {
		// No cost basis recorded yet: neutral score rather than a
		// division error.
		m.Score = 50
		m.Status = statusFor(m.Score, PerformanceGood, PerformanceWarn)
		m.Detail = "No cost basis recorded"
		return m
	}

	returnPct := (value - cost) / cost * 100
	m.Score = round1(clamp(50+(returnPct-BaselineReturnPct)*PerformanceSlope, 0, MaxScore))
	m.Status = statusFor(m.Score, PerformanceGood, PerformanceWarn)
	m.Detail = fmt.Sprintf("Unrealized return %.1f%% vs %.1f%% baseline", returnPct, BaselineReturnPct)
	return m
}

// volatilityMetric scores historical value variability via the coefficient
// of variation; lower variability scores higher (stability is good).
func volatilityMetric(history []domain.ValueSnapshot, weight float64) domain.HealthMetric {
	m := domain.HealthMetric{
		ID:       domain.MetricVolatility,
		MaxScore: MaxScore,
		Weight:   weight,
	}

	if len(history) < 2 {
		// No observed variability yet.
		m.Score = MaxScore
		m.Status = domain.StatusGood
		m.Detail = "Not enough history to measure volatility"
		return m
	}

	values := make([]float64, len(history))
	for i, s := range history {
		values[i] = s.TotalValue.InexactFloat64()
	}

	mean := stat.Mean(values, nil)
	if mean <= 0 {
		m.Status = domain.StatusCritical
		m.Detail = "Portfolio value history is non-positive"
		return m
	}

	cv := stat.StdDev(values, nil) / mean
	m.Score = round1(clamp(MaxScore-cv*VolatilityScale, 0, MaxScore))
	m.Status = statusFor(m.Score, VolatilityGood, VolatilityWarn)
	// Snapshots record the all-portfolio total, so this sub-score is not
	// narrowed by the rebalancing exclusion set.
	m.Detail = fmt.Sprintf("Coefficient of variation %.3f over %d daily totals (all portfolios)", cv, len(history))
	return m
}

func emptyMetric(id domain.MetricID, weight float64) domain.HealthMetric {
	return domain.HealthMetric{
		ID:       id,
		MaxScore: MaxScore,
		Status:   domain.StatusCritical,
		Detail:   "Portfolio has no holdings",
		Weight:   weight,
	}
}

func statusFor(score, good, warn float64) domain.MetricStatus {
	switch {
	case score >= good:
		return domain.StatusGood
	case score >= warn:
		return domain.StatusWarning
	default:
		return domain.StatusCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HistorySource supplies the portfolio value history feeding the volatility
// metric.
type HistorySource interface {
	ValueHistory(days int) ([]domain.ValueSnapshot, error)
}

// HistoryDays bounds the snapshot window used for volatility.
const HistoryDays = 90

// Service assembles snapshots and resolves the active profile.
type Service struct {
	holdings   allocation.HoldingSource
	exclusions allocation.ExclusionSource
	history    HistorySource
	settings   *repositories.SettingsRepository
	log        zerolog.Logger
}

// NewService creates a new health service
func NewService(
	holdings allocation.HoldingSource,
	exclusions allocation.ExclusionSource,
	history HistorySource,
	settings *repositories.SettingsRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdings:   holdings,
		exclusions: exclusions,
		history:    history,
		settings:   settings,
		log:        log.With().Str("service", "health").Logger(),
	}
}

// ActiveProfile returns the persisted profile selection, falling back to the
// default preset.
func (s *Service) ActiveProfile() (domain.AnalysisProfile, error) {
	id, err := s.settings.Get(repositories.KeyActiveProfile)
	if errors.Is(err, repositories.ErrSettingNotFound) {
		return ProfileByID(DefaultProfileID)
	}
	if err != nil {
		return domain.AnalysisProfile{}, err
	}

	profile, err := ProfileByID(id)
	if errors.Is(err, ErrUnknownProfile) {
		// A stale selection must not break scoring.
		return ProfileByID(DefaultProfileID)
	}
	return profile, err
}

// SetActiveProfile persists the profile selection.
func (s *Service) SetActiveProfile(id string) error {
	if _, err := ProfileByID(id); err != nil {
		return err
	}
	return s.settings.Set(repositories.KeyActiveProfile, id)
}

// Calculate scores the current non-excluded holdings under the given profile
// id, or the active profile when id is empty.
func (s *Service) Calculate(profileID string) (domain.PortfolioHealth, error) {
	var profile domain.AnalysisProfile
	var err error
	if profileID == "" {
		profile, err = s.ActiveProfile()
	} else {
		profile, err = ProfileByID(profileID)
	}
	if err != nil {
		return domain.PortfolioHealth{}, err
	}

	excluded, err := s.exclusions.ExcludedPortfolios()
	if err != nil {
		return domain.PortfolioHealth{}, fmt.Errorf("failed to load exclusion set: %w", err)
	}

	holdings, err := s.holdings.HoldingsExcluding(excluded)
	if err != nil {
		return domain.PortfolioHealth{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	history, err := s.history.ValueHistory(HistoryDays)
	if err != nil {
		return domain.PortfolioHealth{}, fmt.Errorf("failed to load value history: %w", err)
	}

	snap := Snapshot{
		Breakdown: allocation.Aggregate(holdings, allocation.ByAssetClass),
		Holdings:  holdings,
		History:   history,
	}

	return Score(snap, profile), nil
}
