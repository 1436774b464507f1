package health

import (
	"errors"

	"github.com/avramidis/folio/internal/domain"
)

// DefaultProfileID is used when no active profile has ever been selected.
const DefaultProfileID = "balanced"

// ErrUnknownProfile is returned for a profile id outside the preset list.
var ErrUnknownProfile = errors.New("unknown analysis profile")

// Profiles are predefined weighting presets. Only the active selection is
// persisted; the presets themselves are not user-mutable.
var profiles = []domain.AnalysisProfile{
	{
		ID:   "balanced",
		Name: "Balanced",
		Weights: domain.ProfileWeights{
			Diversification: 0.4,
			Performance:     0.3,
			Volatility:      0.3,
		},
	},
	{
		ID:   "growth",
		Name: "Growth focused",
		Weights: domain.ProfileWeights{
			Diversification: 0.25,
			Performance:     0.5,
			Volatility:      0.25,
		},
	},
	{
		ID:   "conservative",
		Name: "Conservative",
		Weights: domain.ProfileWeights{
			Diversification: 0.3,
			Performance:     0.2,
			Volatility:      0.5,
		},
	},
}

// Profiles returns the preset list.
func Profiles() []domain.AnalysisProfile {
	out := make([]domain.AnalysisProfile, len(profiles))
	copy(out, profiles)
	return out
}

// ProfileByID resolves a preset by id.
func ProfileByID(id string) (domain.AnalysisProfile, error) {
	for _, p := range profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.AnalysisProfile{}, ErrUnknownProfile
}
