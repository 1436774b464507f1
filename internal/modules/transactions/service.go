package transactions

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
	"github.com/avramidis/folio/internal/events"
	"github.com/avramidis/folio/internal/modules/portfolio"
)

// CashSymbol is the synthetic symbol holding a portfolio's cash balance.
// Deposits, withdrawals, and dividends move it; buys and sells do not, so
// cash is an explicit user-recorded figure rather than an inferred one.
const CashSymbol = "CASH"

// Classification carries the optional holding attributes supplied when a
// transaction first creates a holding.
type Classification struct {
	AssetType string `json:"asset_type,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Region    string `json:"region,omitempty"`
}

// Notifier receives recomputation triggers.
type Notifier interface {
	Notify(events.Trigger)
}

// Service records transactions and keeps holdings in sync by replaying the
// transaction history of the affected (portfolio, symbol) pair. Replay makes
// edits and deletions safe: the holding is always derivable state.
type Service struct {
	repo     *Repository
	holdings *portfolio.HoldingRepository
	notifier Notifier
	log      zerolog.Logger
}

// NewService creates a new transactions service
func NewService(repo *Repository, holdings *portfolio.HoldingRepository, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		holdings: holdings,
		notifier: notifier,
		log:      log.With().Str("service", "transactions").Logger(),
	}
}

// List returns a portfolio's transactions, newest first.
func (s *Service) List(portfolioID int64) ([]domain.Transaction, error) {
	return s.repo.ForPortfolio(portfolioID)
}

// Record stores a transaction, rebuilds the affected holding, and emits a
// TRANSACTION_ADDED trigger.
func (s *Service) Record(t *domain.Transaction, c Classification) error {
	if err := validate(*t); err != nil {
		return err
	}
	normalize(t)

	if err := s.repo.Create(t); err != nil {
		return err
	}
	if err := s.rebuildHolding(t.PortfolioID, t.Symbol, c); err != nil {
		return err
	}

	s.notifier.Notify(events.Trigger{
		Kind:          events.TransactionAdded,
		PortfolioID:   t.PortfolioID,
		TransactionID: t.ID,
		Symbol:        t.Symbol,
		Date:          t.Date,
	})
	return nil
}

// Modify updates a transaction and rebuilds the holdings of both the old and
// new symbol, then emits TRANSACTION_MODIFIED.
func (s *Service) Modify(t domain.Transaction) error {
	previous, err := s.repo.Get(t.ID)
	if err != nil {
		return err
	}
	// The portfolio of a transaction is immutable; requests need not repeat it.
	t.PortfolioID = previous.PortfolioID

	if err := validate(t); err != nil {
		return err
	}
	normalize(&t)

	if err := s.repo.Update(t); err != nil {
		return err
	}

	if previous.Symbol != t.Symbol {
		if err := s.rebuildHolding(previous.PortfolioID, previous.Symbol, Classification{}); err != nil {
			return err
		}
	}
	if err := s.rebuildHolding(t.PortfolioID, t.Symbol, Classification{}); err != nil {
		return err
	}

	s.notifier.Notify(events.Trigger{
		Kind:          events.TransactionModified,
		PortfolioID:   t.PortfolioID,
		TransactionID: t.ID,
		Symbol:        t.Symbol,
		Date:          t.Date,
	})
	return nil
}

// Remove deletes a transaction, rebuilds the holding, and emits
// TRANSACTION_DELETED.
func (s *Service) Remove(id int64) error {
	t, err := s.repo.Get(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if err := s.rebuildHolding(t.PortfolioID, t.Symbol, Classification{}); err != nil {
		return err
	}

	s.notifier.Notify(events.Trigger{
		Kind:          events.TransactionDeleted,
		PortfolioID:   t.PortfolioID,
		TransactionID: id,
		Symbol:        t.Symbol,
		Date:          t.Date,
	})
	return nil
}

// rebuildHolding replays the full transaction history of one symbol and
// writes the derived holding. A zero or negative resulting quantity removes
// the holding.
func (s *Service) rebuildHolding(portfolioID int64, symbol string, c Classification) error {
	txs, err := s.repo.ForSymbol(portfolioID, symbol)
	if err != nil {
		return err
	}

	existing, err := s.holdings.GetBySymbol(portfolioID, symbol)
	haveExisting := err == nil
	if err != nil && !errors.Is(err, portfolio.ErrHoldingNotFound) {
		return err
	}

	quantity := decimal.Zero
	costBasis := decimal.Zero
	lastPrice := decimal.Zero

	for _, t := range txs {
		switch t.Type {
		case domain.TransactionBuy:
			quantity = quantity.Add(t.Quantity)
			costBasis = costBasis.Add(t.Quantity.Mul(t.Price)).Add(t.Fees)
			lastPrice = t.Price
		case domain.TransactionSell:
			// Reduce cost basis proportionally to the sold share.
			if quantity.IsPositive() {
				sold := t.Quantity
				if sold.GreaterThan(quantity) {
					sold = quantity
				}
				costBasis = costBasis.Sub(costBasis.Mul(sold).Div(quantity))
			}
			quantity = quantity.Sub(t.Quantity)
			lastPrice = t.Price
		case domain.TransactionDeposit, domain.TransactionDividend:
			quantity = quantity.Add(t.Quantity)
			lastPrice = decimal.NewFromInt(1)
		case domain.TransactionWithdraw:
			quantity = quantity.Sub(t.Quantity)
			lastPrice = decimal.NewFromInt(1)
		}
	}

	if !quantity.IsPositive() {
		if haveExisting {
			return s.holdings.Delete(existing.ID)
		}
		return nil
	}

	price := lastPrice
	if haveExisting && !existing.CurrentPrice.IsZero() {
		price = existing.CurrentPrice
	}

	holding := domain.Holding{
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		Quantity:     quantity,
		CurrentPrice: price,
		CurrentValue: quantity.Mul(price),
		CostBasis:    costBasis,
		AssetType:    c.AssetType,
		Sector:       c.Sector,
		Region:       c.Region,
	}
	if haveExisting {
		holding.ID = existing.ID
		if holding.AssetType == "" {
			holding.AssetType = existing.AssetType
		}
		if holding.Sector == "" {
			holding.Sector = existing.Sector
		}
		if holding.Region == "" {
			holding.Region = existing.Region
		}
	}
	if symbol == CashSymbol && holding.AssetType == "" {
		holding.AssetType = domain.AssetTypeCash
	}

	return s.holdings.Upsert(&holding)
}

func validate(t domain.Transaction) error {
	switch t.Type {
	case domain.TransactionBuy, domain.TransactionSell,
		domain.TransactionDeposit, domain.TransactionWithdraw, domain.TransactionDividend:
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	if t.PortfolioID == 0 {
		return errors.New("portfolio_id is required")
	}
	if t.Symbol == "" && (t.Type == domain.TransactionBuy || t.Type == domain.TransactionSell) {
		return errors.New("symbol is required for buy/sell")
	}
	if t.Quantity.IsNegative() {
		return errors.New("quantity must not be negative")
	}
	return nil
}

func normalize(t *domain.Transaction) {
	// Cash movements target the synthetic cash holding.
	if t.Symbol == "" {
		t.Symbol = CashSymbol
	}
}
