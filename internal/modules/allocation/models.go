package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
)

// Dimension selects the holding attribute used for grouping.
type Dimension string

const (
	ByAssetClass Dimension = "asset_class"
	BySector     Dimension = "sector"
	ByRegion     Dimension = "region"
)

// ParseDimension maps a query value to a Dimension, defaulting to asset class.
func ParseDimension(s string) Dimension {
	switch Dimension(s) {
	case BySector:
		return BySector
	case ByRegion:
		return ByRegion
	default:
		return ByAssetClass
	}
}

// Slice is one category row of a breakdown.
type Slice struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Percent  decimal.Decimal `json:"percent"`
}

// Breakdown is the aggregation output for one grouping dimension.
//
// NetCash carries the signed pooled cash figure so consumers can decide how
// to treat a negative (margin) balance: additive visualizations keep the
// Margin slice, proportional ones drop it.
type Breakdown struct {
	Dimension  Dimension       `json:"dimension"`
	TotalValue decimal.Decimal `json:"total_value"`
	NetCash    decimal.Decimal `json:"net_cash"`
	Slices     []Slice         `json:"slices"`
}

// ProportionalSlices returns the slices suitable for a 100%-total
// visualization: a negative Margin slice is omitted.
func (b Breakdown) ProportionalSlices() []Slice {
	out := make([]Slice, 0, len(b.Slices))
	for _, s := range b.Slices {
		if s.Category == domain.CategoryMargin {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ValueFor returns the value and percent for a category, if present.
func (b Breakdown) ValueFor(category string) (Slice, bool) {
	for _, s := range b.Slices {
		if s.Category == category {
			return s, true
		}
	}
	return Slice{}, false
}
