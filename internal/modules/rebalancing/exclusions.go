package rebalancing

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avramidis/folio/internal/database/repositories"
)

// ExclusionStore manages the set of portfolio ids excluded from rebalancing
// and allocation aggregation. The set is a flat list under a settings key,
// deliberately detached from the portfolio records so toggling never touches
// portfolio data.
type ExclusionStore struct {
	settings *repositories.SettingsRepository
	log      zerolog.Logger
}

// NewExclusionStore creates a new exclusion store
func NewExclusionStore(settings *repositories.SettingsRepository, log zerolog.Logger) *ExclusionStore {
	return &ExclusionStore{
		settings: settings,
		log:      log.With().Str("service", "exclusions").Logger(),
	}
}

// ExcludedPortfolios returns the current exclusion set. A never-written key
// means an empty set.
func (s *ExclusionStore) ExcludedPortfolios() ([]int64, error) {
	var ids []int64
	err := s.settings.GetJSON(repositories.KeyExcludedPortfolios, &ids)
	if errors.Is(err, repositories.ErrSettingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Toggle adds the portfolio to the exclusion set if absent, removes it if
// present, and returns whether the portfolio is now excluded.
func (s *ExclusionStore) Toggle(portfolioID int64) (bool, error) {
	ids, err := s.ExcludedPortfolios()
	if err != nil {
		return false, err
	}

	excluded := true
	next := make([]int64, 0, len(ids)+1)
	for _, id := range ids {
		if id == portfolioID {
			excluded = false
			continue
		}
		next = append(next, id)
	}
	if excluded {
		next = append(next, portfolioID)
	}

	if err := s.settings.SetJSON(repositories.KeyExcludedPortfolios, next); err != nil {
		return false, fmt.Errorf("failed to persist exclusion set: %w", err)
	}

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Bool("excluded", excluded).
		Msg("Toggled rebalancing exclusion")

	return excluded, nil
}
