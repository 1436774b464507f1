package recommendations

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
	"github.com/avramidis/folio/internal/modules/health"
	"github.com/avramidis/folio/internal/modules/rebalancing"
)

// Thresholds are the generator tunables.
type Thresholds struct {
	// RebalanceMaterialityPct is the drift magnitude (percentage points)
	// above which a rebalance recommendation is raised.
	RebalanceMaterialityPct decimal.Decimal
	// CashDragPct is the net-cash share above which a cash_drag
	// recommendation is raised.
	CashDragPct decimal.Decimal
}

// Generate derives recommendations from a health result, an optional
// rebalancing plan, and the breakdown's signed net cash share. Pure and
// order-stable: output follows the fixed priority
// rebalance > high_risk > diversify > cash_drag.
func Generate(ph domain.PortfolioHealth, plan *domain.RebalancingPlan, netCashPct decimal.Decimal, t Thresholds) []domain.Recommendation {
	recs := []domain.Recommendation{}

	if plan != nil {
		if rec, ok := rebalanceRec(*plan, t.RebalanceMaterialityPct); ok {
			recs = append(recs, rec)
		}
	}
	if rec, ok := metricRec(ph, domain.MetricVolatility, domain.RecommendHighRisk,
		"Portfolio risk is elevated",
		"Value swings are larger than the stability target. Consider shifting weight toward lower-volatility assets.",
		"Review health breakdown", "/health"); ok {
		recs = append(recs, rec)
	}
	if rec, ok := metricRec(ph, domain.MetricDiversification, domain.RecommendDiversify,
		"Portfolio is concentrated",
		"A large share of value sits in few categories. Spreading across more asset classes reduces single-category risk.",
		"View allocation", "/allocation"); ok {
		recs = append(recs, rec)
	}
	if rec, ok := cashDragRec(netCashPct, t.CashDragPct); ok {
		recs = append(recs, rec)
	}

	return recs
}

func rebalanceRec(plan domain.RebalancingPlan, materialityPct decimal.Decimal) (domain.Recommendation, bool) {
	maxDrift := decimal.Zero
	for _, a := range plan.Actions {
		if d := a.DriftPercent.Abs(); d.GreaterThan(maxDrift) {
			maxDrift = d
		}
	}

	if !maxDrift.GreaterThan(materialityPct) {
		return domain.Recommendation{}, false
	}

	severity := domain.SeverityMedium
	if maxDrift.GreaterThanOrEqual(materialityPct.Mul(decimal.NewFromInt(2))) {
		severity = domain.SeverityHigh
	}

	return domain.Recommendation{
		Type:     domain.RecommendRebalance,
		Title:    "Allocation has drifted from target",
		Description: fmt.Sprintf(
			"The largest category drift is %s percentage points against model %q. Rebalancing moves €%s of value.",
			maxDrift.Round(1), plan.ModelName, plan.TotalBuy.Add(plan.TotalSell).Round(2)),
		Severity:    severity,
		ActionLabel: "Open rebalancing plan",
		ActionURL:   "/rebalancing",
	}, true
}

func metricRec(ph domain.PortfolioHealth, id domain.MetricID, recType domain.RecommendationType, title, description, actionLabel, actionURL string) (domain.Recommendation, bool) {
	for _, m := range ph.Metrics {
		if m.ID != id || m.Status == domain.StatusGood {
			continue
		}

		severity := domain.SeverityMedium
		if m.Status == domain.StatusCritical {
			severity = domain.SeverityHigh
		}

		return domain.Recommendation{
			Type:        recType,
			Title:       title,
			Description: fmt.Sprintf("%s %s", description, m.Detail),
			Severity:    severity,
			ActionLabel: actionLabel,
			ActionURL:   actionURL,
		}, true
	}
	return domain.Recommendation{}, false
}

func cashDragRec(netCashPct, threshold decimal.Decimal) (domain.Recommendation, bool) {
	if !netCashPct.GreaterThan(threshold) {
		return domain.Recommendation{}, false
	}

	severity := domain.SeverityLow
	if netCashPct.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(2))) {
		severity = domain.SeverityMedium
	}

	return domain.Recommendation{
		Type:  domain.RecommendCashDrag,
		Title: "Uninvested cash is dragging returns",
		Description: fmt.Sprintf(
			"Net cash makes up %s%% of the portfolio. Cash above the %s%% threshold is not working toward any allocation target.",
			netCashPct.Round(1), threshold),
		Severity:    severity,
		ActionLabel: "Review target model",
		ActionURL:   "/targets",
	}, true
}

// Service assembles the generator inputs from the other engines.
type Service struct {
	health      *health.Service
	rebalancing *rebalancing.Service
	allocation  *allocation.Service
	thresholds  Thresholds
	log         zerolog.Logger
}

// NewService creates a new recommendations service
func NewService(
	healthSvc *health.Service,
	rebalancingSvc *rebalancing.Service,
	allocationSvc *allocation.Service,
	thresholds Thresholds,
	log zerolog.Logger,
) *Service {
	return &Service{
		health:      healthSvc,
		rebalancing: rebalancingSvc,
		allocation:  allocationSvc,
		thresholds:  thresholds,
		log:         log.With().Str("service", "recommendations").Logger(),
	}
}

// List generates the current recommendation list. A missing target model
// only suppresses the rebalance family; the rest still computes.
func (s *Service) List() ([]domain.Recommendation, error) {
	ph, err := s.health.Calculate("")
	if err != nil {
		return nil, fmt.Errorf("failed to calculate health: %w", err)
	}

	var plan *domain.RebalancingPlan
	p, err := s.rebalancing.Plan(0)
	switch {
	case err == nil:
		plan = &p
	case errors.Is(err, rebalancing.ErrNoDefaultModel):
		s.log.Debug().Msg("No default target model, skipping rebalance recommendations")
	default:
		return nil, fmt.Errorf("failed to calculate rebalancing plan: %w", err)
	}

	breakdown, err := s.allocation.Breakdown(allocation.ByAssetClass)
	if err != nil {
		return nil, err
	}

	netCashPct := decimal.Zero
	if !breakdown.TotalValue.IsZero() {
		netCashPct = breakdown.NetCash.Div(breakdown.TotalValue).Mul(decimal.NewFromInt(100))
	}

	return Generate(ph, plan, netCashPct, s.thresholds), nil
}
