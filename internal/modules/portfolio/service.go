package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/domain"
)

// PortfolioView is a portfolio with its holdings and total value attached.
type PortfolioView struct {
	domain.Portfolio
	Holdings   []domain.Holding `json:"holdings"`
	TotalValue decimal.Decimal  `json:"total_value"`
	Excluded   bool             `json:"excluded"`
}

// ExclusionSource reports which portfolios are excluded from rebalancing.
type ExclusionSource interface {
	ExcludedPortfolios() ([]int64, error)
}

// Service provides portfolio and holding operations.
type Service struct {
	portfolios *PortfolioRepository
	holdings   *HoldingRepository
	exclusions ExclusionSource
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios *PortfolioRepository,
	holdings *HoldingRepository,
	exclusions ExclusionSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		exclusions: exclusions,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// List returns all portfolios with holdings, totals, and exclusion flags.
func (s *Service) List() ([]PortfolioView, error) {
	portfolios, err := s.portfolios.List()
	if err != nil {
		return nil, err
	}

	excluded, err := s.exclusions.ExcludedPortfolios()
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusion set: %w", err)
	}
	excludedSet := make(map[int64]bool, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = true
	}

	views := make([]PortfolioView, 0, len(portfolios))
	for _, p := range portfolios {
		view, err := s.buildView(p, excludedSet[p.ID])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns one portfolio view.
func (s *Service) Get(id int64) (PortfolioView, error) {
	p, err := s.portfolios.Get(id)
	if err != nil {
		return PortfolioView{}, err
	}

	excluded, err := s.exclusions.ExcludedPortfolios()
	if err != nil {
		return PortfolioView{}, fmt.Errorf("failed to load exclusion set: %w", err)
	}
	isExcluded := false
	for _, eid := range excluded {
		if eid == id {
			isExcluded = true
			break
		}
	}

	return s.buildView(p, isExcluded)
}

func (s *Service) buildView(p domain.Portfolio, excluded bool) (PortfolioView, error) {
	holdings, err := s.holdings.ForPortfolio(p.ID)
	if err != nil {
		return PortfolioView{}, err
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.CurrentValue)
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}

	return PortfolioView{
		Portfolio:  p,
		Holdings:   holdings,
		TotalValue: total,
		Excluded:   excluded,
	}, nil
}

// Create adds a new portfolio.
func (s *Service) Create(p *domain.Portfolio) error {
	if p.Name == "" {
		return fmt.Errorf("portfolio name is required")
	}
	if err := s.portfolios.Create(p); err != nil {
		return err
	}
	s.log.Info().Int64("portfolio_id", p.ID).Str("name", p.Name).Msg("Created portfolio")
	return nil
}

// Update modifies a portfolio record.
func (s *Service) Update(p domain.Portfolio) error {
	if p.Name == "" {
		return fmt.Errorf("portfolio name is required")
	}
	return s.portfolios.Update(p)
}

// Delete removes a portfolio and all of its holdings and transactions.
func (s *Service) Delete(id int64) error {
	if err := s.portfolios.Delete(id); err != nil {
		return err
	}
	s.log.Info().Int64("portfolio_id", id).Msg("Deleted portfolio")
	return nil
}
