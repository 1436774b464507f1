package allocation

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// HoldingSource supplies the holdings of all portfolios not listed in the
// exclusion set.
type HoldingSource interface {
	HoldingsExcluding(excludedPortfolios []int64) ([]domain.Holding, error)
}

// ExclusionSource supplies the portfolio ids excluded from aggregation and
// rebalancing.
type ExclusionSource interface {
	ExcludedPortfolios() ([]int64, error)
}

// Aggregate groups holdings by the given dimension and sums current value
// per category, in decimal arithmetic throughout.
//
// Cash holdings are netted into a single signed figure before grouping:
// non-negative net cash appears as the "Net Cash" category, negative as
// "Margin". Holdings without a value for the grouping attribute land in
// "Unclassified" so unclassified value stays visible and totals reconcile.
// A zero total value yields zero percentages, never a division error.
func Aggregate(holdings []domain.Holding, dim Dimension) Breakdown {
	values := make(map[string]decimal.Decimal)
	netCash := decimal.Zero
	total := decimal.Zero
	hasCash := false

	for _, h := range holdings {
		total = total.Add(h.CurrentValue)

		if h.IsCash() {
			netCash = netCash.Add(h.CurrentValue)
			hasCash = true
			continue
		}

		category := categoryOf(h, dim)
		values[category] = values[category].Add(h.CurrentValue)
	}

	slices := make([]Slice, 0, len(values)+1)
	for category, value := range values {
		slices = append(slices, Slice{Category: category, Value: value})
	}
	sort.Slice(slices, func(i, j int) bool {
		if !slices[i].Value.Equal(slices[j].Value) {
			return slices[i].Value.GreaterThan(slices[j].Value)
		}
		return slices[i].Category < slices[j].Category
	})

	if hasCash {
		category := domain.CategoryNetCash
		if netCash.IsNegative() {
			category = domain.CategoryMargin
		}
		slices = append(slices, Slice{Category: category, Value: netCash})
	}

	for i := range slices {
		slices[i].Percent = percentOf(slices[i].Value, total)
	}

	return Breakdown{
		Dimension:  dim,
		TotalValue: total,
		NetCash:    netCash,
		Slices:     slices,
	}
}

func categoryOf(h domain.Holding, dim Dimension) string {
	var attr string
	switch dim {
	case BySector:
		attr = h.Sector
	case ByRegion:
		attr = h.Region
	default:
		attr = h.AssetType
	}
	if attr == "" {
		return domain.Unclassified
	}
	return attr
}

func percentOf(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Div(total).Mul(oneHundred)
}

// Service runs aggregations over the live, non-excluded holdings.
type Service struct {
	holdings   HoldingSource
	exclusions ExclusionSource
	log        zerolog.Logger
}

// NewService creates a new allocation service
func NewService(holdings HoldingSource, exclusions ExclusionSource, log zerolog.Logger) *Service {
	return &Service{
		holdings:   holdings,
		exclusions: exclusions,
		log:        log.With().Str("service", "allocation").Logger(),
	}
}

// Breakdown aggregates all non-excluded holdings by the given dimension.
func (s *Service) Breakdown(dim Dimension) (Breakdown, error) {
	excluded, err := s.exclusions.ExcludedPortfolios()
	if err != nil {
		return Breakdown{}, fmt.Errorf("failed to load exclusion set: %w", err)
	}

	holdings, err := s.holdings.HoldingsExcluding(excluded)
	if err != nil {
		return Breakdown{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	b := Aggregate(holdings, dim)

	s.log.Debug().
		Str("dimension", string(dim)).
		Int("categories", len(b.Slices)).
		Str("total_value", b.TotalValue.String()).
		Msg("Computed breakdown")

	return b, nil
}
