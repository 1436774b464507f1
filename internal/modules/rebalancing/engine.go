package rebalancing

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/modules/allocation"
)

// BuildPlan computes the drift/action plan for one target model against an
// asset-class breakdown. Pure function: identical inputs yield identical
// output.
//
// The output category set is the union of held and targeted categories, in
// model declaration order with held-but-untargeted categories (including
// "Unclassified" and netted cash) appended in breakdown order. A category
// with no current value and a nonzero target shows as a BUY; a held category
// absent from the model shows as a SELL against an implicit 0% target.
//
// Drift within the epsilon band (percentage points) is a HOLD. Amounts are
// |drift|/100 × total value, in decimal arithmetic; a zero-value portfolio
// therefore yields zero amounts even at maximal drift. Models whose targets
// no longer sum to 100 are computed as-is, never renormalized.
func BuildPlan(b allocation.Breakdown, model domain.TargetModel, epsilonPct decimal.Decimal) domain.RebalancingPlan {
	plan := domain.RebalancingPlan{
		ModelID:    model.ID,
		ModelName:  model.Name,
		TotalValue: b.TotalValue,
		TotalBuy:   decimal.Zero,
		TotalSell:  decimal.Zero,
	}

	covered := make(map[string]bool, len(model.Allocations))

	for _, alloc := range model.Allocations {
		covered[alloc.Category] = true

		current := decimal.Zero
		currentPct := decimal.Zero
		if slice, ok := b.ValueFor(alloc.Category); ok {
			current = slice.Value
			currentPct = slice.Percent
		}
		plan.Actions = append(plan.Actions, buildAction(alloc.Category, current, currentPct, alloc.TargetPct, b.TotalValue, epsilonPct))
	}

	for _, slice := range b.Slices {
		if covered[slice.Category] {
			continue
		}
		plan.Actions = append(plan.Actions, buildAction(slice.Category, slice.Value, slice.Percent, decimal.Zero, b.TotalValue, epsilonPct))
	}

	for _, a := range plan.Actions {
		switch a.Action {
		case domain.ActionBuy:
			plan.TotalBuy = plan.TotalBuy.Add(a.Amount)
		case domain.ActionSell:
			plan.TotalSell = plan.TotalSell.Add(a.Amount)
		}
	}

	return plan
}

func buildAction(category string, current, currentPct, targetPct, total, epsilonPct decimal.Decimal) domain.RebalancingAction {
	drift := currentPct.Sub(targetPct)

	action := domain.ActionHold
	switch {
	case drift.GreaterThan(epsilonPct):
		action = domain.ActionSell
	case drift.LessThan(epsilonPct.Neg()):
		action = domain.ActionBuy
	}

	amount := decimal.Zero
	if action != domain.ActionHold {
		amount = drift.Abs().Div(hundredPct).Mul(total)
	}

	return domain.RebalancingAction{
		Category:       category,
		CurrentValue:   current,
		CurrentPercent: currentPct,
		TargetPercent:  targetPct,
		DriftPercent:   drift,
		Action:         action,
		Amount:         amount,
	}
}

// Service wires the engine to the persisted models, exclusion set, and live
// holdings.
type Service struct {
	targets    *TargetRepository
	exclusions *ExclusionStore
	holdings   allocation.HoldingSource
	epsilonPct decimal.Decimal
	log        zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(
	targets *TargetRepository,
	exclusions *ExclusionStore,
	holdings allocation.HoldingSource,
	epsilonPct decimal.Decimal,
	log zerolog.Logger,
) *Service {
	return &Service{
		targets:    targets,
		exclusions: exclusions,
		holdings:   holdings,
		epsilonPct: epsilonPct,
		log:        log.With().Str("service", "rebalancing").Logger(),
	}
}

// Plan computes the rebalancing plan for the given model id, or for the
// default model when modelID is zero. Aggregation runs over the asset-class
// dimension since target model categories are asset types.
func (s *Service) Plan(modelID int64) (domain.RebalancingPlan, error) {
	var model domain.TargetModel
	var err error
	if modelID == 0 {
		model, err = s.targets.GetDefault()
	} else {
		model, err = s.targets.Get(modelID)
	}
	if err != nil {
		return domain.RebalancingPlan{}, err
	}

	excluded, err := s.exclusions.ExcludedPortfolios()
	if err != nil {
		return domain.RebalancingPlan{}, fmt.Errorf("failed to load exclusion set: %w", err)
	}

	holdings, err := s.holdings.HoldingsExcluding(excluded)
	if err != nil {
		return domain.RebalancingPlan{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	breakdown := allocation.Aggregate(holdings, allocation.ByAssetClass)
	plan := BuildPlan(breakdown, model, s.epsilonPct)

	s.log.Debug().
		Int64("model_id", model.ID).
		Int("actions", len(plan.Actions)).
		Str("total_buy", plan.TotalBuy.String()).
		Str("total_sell", plan.TotalSell.String()).
		Msg("Computed rebalancing plan")

	return plan, nil
}
