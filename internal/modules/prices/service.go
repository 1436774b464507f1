package prices

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/events"
)

// HoldingUpdater is the slice of the holdings store the price refresher
// needs.
type HoldingUpdater interface {
	Symbols() ([]string, error)
	UpdatePrice(symbol string, price decimal.Decimal) error
	HoldingsExcluding(excludedPortfolios []int64) ([]domain.Holding, error)
}

// Notifier receives recomputation triggers.
type Notifier interface {
	Notify(events.Trigger)
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed"`
}

// Service refreshes holding prices and records daily value snapshots. A
// failed symbol is a recoverable condition: the holding keeps its stale
// value and the engines compute with whatever figures are present.
type Service struct {
	client    *Client
	holdings  HoldingUpdater
	snapshots *SnapshotRepository
	notifier  Notifier
	log       zerolog.Logger
}

// NewService creates a new price service
func NewService(
	client *Client,
	holdings HoldingUpdater,
	snapshots *SnapshotRepository,
	notifier Notifier,
	log zerolog.Logger,
) *Service {
	return &Service{
		client:    client,
		holdings:  holdings,
		snapshots: snapshots,
		notifier:  notifier,
		log:       log.With().Str("service", "prices").Logger(),
	}
}

// RefreshAll fetches a quote for every held symbol, updates holding values,
// records today's total-value snapshot, and emits PRICE_UPDATED.
func (s *Service) RefreshAll(ctx context.Context) (RefreshResult, error) {
	symbols, err := s.holdings.Symbols()
	if err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{Failed: []string{}}
	for _, symbol := range symbols {
		quote, err := s.client.GetQuote(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, keeping stale value")
			result.Failed = append(result.Failed, symbol)
			continue
		}
		if err := s.holdings.UpdatePrice(symbol, quote.Price); err != nil {
			return result, err
		}
		result.Updated++
	}

	if err := s.RecordSnapshot(); err != nil {
		return result, err
	}

	if result.Updated > 0 {
		s.notifier.Notify(events.Trigger{
			Kind: events.PriceUpdated,
			Date: time.Now(),
		})
	}

	s.log.Info().
		Int("updated", result.Updated).
		Int("failed", len(result.Failed)).
		Msg("Price refresh complete")

	return result, nil
}

// RecordSnapshot stores today's total portfolio value. Snapshots cover all
// portfolios; the exclusion set only affects aggregation and rebalancing.
func (s *Service) RecordSnapshot() error {
	holdings, err := s.holdings.HoldingsExcluding(nil)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CurrentValue)
	}

	return s.snapshots.Record(time.Now(), total)
}
