package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unclassified is the synthetic category for holdings that carry no value
// for the grouping attribute. Such holdings are never dropped from totals.
const Unclassified = "Unclassified"

// Categories reserved for the cash netting performed by the aggregation
// service. NetCash appears when pooled cash is non-negative, Margin when
// the pool nets below zero.
const (
	CategoryNetCash = "Net Cash"
	CategoryMargin  = "Margin"
)

// AssetTypeCash marks holdings that participate in cash netting.
const AssetTypeCash = "Cash"

// PortfolioType tags a portfolio with its account flavour.
type PortfolioType string

const (
	PortfolioTaxable    PortfolioType = "taxable"
	PortfolioRetirement PortfolioType = "retirement"
	PortfolioEducation  PortfolioType = "education"
	PortfolioOther      PortfolioType = "other"
)

// Portfolio is a named container of holdings.
//
// Exclusion from rebalancing is not a field here: it lives in a separate
// settings-backed exclusion set so it can be toggled without touching the
// portfolio record.
type Portfolio struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Type      PortfolioType `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Holding is a position in one asset within one portfolio. Quantity and
// value are decimals end-to-end; they are never converted to float64 inside
// a calculation.
type Holding struct {
	ID           int64           `json:"id"`
	PortfolioID  int64           `json:"portfolio_id"`
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	AssetType    string          `json:"asset_type,omitempty"`
	Sector       string          `json:"sector,omitempty"`
	Region       string          `json:"region,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// IsCash reports whether the holding participates in cash netting.
func (h Holding) IsCash() bool {
	return h.AssetType == AssetTypeCash
}

// TransactionType enumerates recordable transaction kinds.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
	TransactionDividend TransactionType = "dividend"
)

// Transaction is a recorded portfolio event affecting one asset.
type Transaction struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Type        TransactionType `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fees        decimal.Decimal `json:"fees"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Allocation is one category slot of a target model. Order matters: plan
// output follows model declaration order.
type Allocation struct {
	Category  string          `json:"category"`
	TargetPct decimal.Decimal `json:"target_pct"`
}

// TargetModel maps asset categories to target percentages. Percentages must
// sum to 100 at save time; stale models that no longer do are still loadable
// and the engines compute against whatever numbers are present.
type TargetModel struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Allocations []Allocation `json:"allocations"`
	IsDefault   bool         `json:"is_default"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TargetFor returns the target percentage for a category and whether the
// category is declared in the model.
func (m TargetModel) TargetFor(category string) (decimal.Decimal, bool) {
	for _, a := range m.Allocations {
		if a.Category == category {
			return a.TargetPct, true
		}
	}
	return decimal.Zero, false
}

// RebalanceAction classifies a category's drift.
type RebalanceAction string

const (
	ActionBuy  RebalanceAction = "BUY"
	ActionSell RebalanceAction = "SELL"
	ActionHold RebalanceAction = "HOLD"
)

// RebalancingAction is one row of a rebalancing plan. Derived, never
// persisted.
type RebalancingAction struct {
	Category       string          `json:"category"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	CurrentPercent decimal.Decimal `json:"current_percent"`
	TargetPercent  decimal.Decimal `json:"target_percent"`
	DriftPercent   decimal.Decimal `json:"drift_percent"`
	Action         RebalanceAction `json:"action"`
	Amount         decimal.Decimal `json:"amount"`
}

// RebalancingPlan is the full drift/action output for one target model.
type RebalancingPlan struct {
	ModelID    int64               `json:"model_id"`
	ModelName  string              `json:"model_name"`
	TotalValue decimal.Decimal     `json:"total_value"`
	Actions    []RebalancingAction `json:"actions"`
	TotalBuy   decimal.Decimal     `json:"total_buy"`
	TotalSell  decimal.Decimal     `json:"total_sell"`
}

// MetricID identifies a health sub-score.
type MetricID string

const (
	MetricDiversification MetricID = "diversification"
	MetricPerformance     MetricID = "performance"
	MetricVolatility      MetricID = "volatility"
)

// MetricStatus buckets a sub-score against its fixed thresholds.
type MetricStatus string

const (
	StatusGood     MetricStatus = "good"
	StatusWarning  MetricStatus = "warning"
	StatusCritical MetricStatus = "critical"
)

// HealthMetric is one scored dimension of portfolio health.
type HealthMetric struct {
	ID       MetricID     `json:"id"`
	Score    float64      `json:"score"`
	MaxScore float64      `json:"max_score"`
	Status   MetricStatus `json:"status"`
	Detail   string       `json:"detail"`
	Weight   float64      `json:"weight"`
}

// PortfolioHealth is the weighted health result for one snapshot.
type PortfolioHealth struct {
	OverallScore float64        `json:"overall_score"`
	ProfileID    string         `json:"profile_id"`
	Metrics      []HealthMetric `json:"metrics"`
}

// ProfileWeights is the weight triple of an analysis profile. Weights are
// expected to sum to 1.0; the health engine computes with whatever weights
// it is handed.
type ProfileWeights struct {
	Diversification float64 `json:"diversification"`
	Performance     float64 `json:"performance"`
	Volatility      float64 `json:"volatility"`
}

// AnalysisProfile is a predefined weighting preset. Only the active profile
// selection is persisted, not the profiles themselves.
type AnalysisProfile struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Weights ProfileWeights `json:"weights"`
}

// RecommendationType enumerates recommendation condition families.
type RecommendationType string

const (
	RecommendRebalance RecommendationType = "rebalance"
	RecommendHighRisk  RecommendationType = "high_risk"
	RecommendDiversify RecommendationType = "diversify"
	RecommendCashDrag  RecommendationType = "cash_drag"
)

// Severity grades a recommendation.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Recommendation is a human-readable suggestion derived from health scores
// and drift magnitude.
type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Severity    Severity           `json:"severity"`
	ActionLabel string             `json:"action_label,omitempty"`
	ActionURL   string             `json:"action_url,omitempty"`
}

// ValueSnapshot is one point of the portfolio value history that feeds the
// volatility metric.
type ValueSnapshot struct {
	Date       time.Time       `json:"date"`
	TotalValue decimal.Decimal `json:"total_value"`
}
