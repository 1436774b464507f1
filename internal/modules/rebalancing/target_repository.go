package rebalancing

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
)

// ErrModelNotFound is returned when no target model matches the lookup.
var ErrModelNotFound = errors.New("target model not found")

// ErrNoDefaultModel is returned when a plan is requested without a model id
// and no model is marked default.
var ErrNoDefaultModel = errors.New("no default target model configured")

var hundredPct = decimal.NewFromInt(100)

// ValidateModel enforces the save-time invariants: at least one allocation,
// every percentage in [0,100], no duplicate categories, and percentages
// summing to exactly 100. Stale models that no longer satisfy this are still
// loadable; the engine computes against whatever is persisted.
func ValidateModel(m domain.TargetModel) error {
	if m.Name == "" {
		return errors.New("target model name is required")
	}
	if len(m.Allocations) == 0 {
		return errors.New("target model must declare at least one category")
	}

	seen := make(map[string]bool, len(m.Allocations))
	sum := decimal.Zero
	for _, a := range m.Allocations {
		if a.Category == "" {
			return errors.New("allocation category must not be empty")
		}
		if seen[a.Category] {
			return fmt.Errorf("duplicate category %q", a.Category)
		}
		seen[a.Category] = true

		if a.TargetPct.IsNegative() || a.TargetPct.GreaterThan(hundredPct) {
			return fmt.Errorf("category %q target %s outside [0,100]", a.Category, a.TargetPct)
		}
		sum = sum.Add(a.TargetPct)
	}

	if !sum.Equal(hundredPct) {
		return fmt.Errorf("allocations sum to %s, must sum to 100", sum)
	}
	return nil
}

// TargetRepository persists target allocation models. Allocations are stored
// as a JSON array so category declaration order survives round-trips.
type TargetRepository struct {
	*repositories.BaseRepository
}

// NewTargetRepository creates a new target model repository
func NewTargetRepository(db *sql.DB, log zerolog.Logger) *TargetRepository {
	return &TargetRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "targets").Logger()),
	}
}

// List returns all target models.
func (r *TargetRepository) List() ([]domain.TargetModel, error) {
	rows, err := r.DB().Query(`
		SELECT id, name, allocations, is_default, created_at, updated_at
		FROM target_models
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query target models: %w", err)
	}
	defer rows.Close()

	var models []domain.TargetModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Get returns one model by id.
func (r *TargetRepository) Get(id int64) (domain.TargetModel, error) {
	row := r.DB().QueryRow(`
		SELECT id, name, allocations, is_default, created_at, updated_at
		FROM target_models
		WHERE id = ?
	`, id)
	return scanModelRow(row)
}

// GetDefault returns the model marked default.
func (r *TargetRepository) GetDefault() (domain.TargetModel, error) {
	row := r.DB().QueryRow(`
		SELECT id, name, allocations, is_default, created_at, updated_at
		FROM target_models
		WHERE is_default = 1
		LIMIT 1
	`)
	m, err := scanModelRow(row)
	if errors.Is(err, ErrModelNotFound) {
		return domain.TargetModel{}, ErrNoDefaultModel
	}
	return m, err
}

// Save validates and inserts or updates a model. Marking a model default
// clears the flag on every other model, keeping at most one default.
func (r *TargetRepository) Save(m *domain.TargetModel) error {
	if err := ValidateModel(*m); err != nil {
		return err
	}

	raw, err := json.Marshal(m.Allocations)
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}

	tx, err := r.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if m.IsDefault {
		if _, err := tx.Exec(`UPDATE target_models SET is_default = 0`); err != nil {
			return fmt.Errorf("failed to clear default flags: %w", err)
		}
	}

	if m.ID == 0 {
		res, err := tx.Exec(`
			INSERT INTO target_models (name, allocations, is_default)
			VALUES (?, ?, ?)
		`, m.Name, string(raw), m.IsDefault)
		if err != nil {
			return fmt.Errorf("failed to insert target model: %w", err)
		}
		m.ID, _ = res.LastInsertId()
	} else {
		_, err := tx.Exec(`
			UPDATE target_models
			SET name = ?, allocations = ?, is_default = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, m.Name, string(raw), m.IsDefault, m.ID)
		if err != nil {
			return fmt.Errorf("failed to update target model: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes a model by id.
func (r *TargetRepository) Delete(id int64) error {
	res, err := r.DB().Exec(`DELETE FROM target_models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete target model: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrModelNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(s rowScanner) (domain.TargetModel, error) {
	var m domain.TargetModel
	var raw string
	if err := s.Scan(&m.ID, &m.Name, &raw, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.TargetModel{}, fmt.Errorf("failed to scan target model: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &m.Allocations); err != nil {
		return domain.TargetModel{}, fmt.Errorf("failed to decode allocations: %w", err)
	}
	return m, nil
}

func scanModelRow(row *sql.Row) (domain.TargetModel, error) {
	m, err := scanModel(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return domain.TargetModel{}, ErrModelNotFound
	}
	return m, err
}
