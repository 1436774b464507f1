package portfolio

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
)

// ErrPortfolioNotFound is returned when no portfolio matches the lookup.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// PortfolioRepository persists portfolio records.
type PortfolioRepository struct {
	*repositories.BaseRepository
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "portfolio").Logger()),
	}
}

// List returns all portfolios.
func (r *PortfolioRepository) List() ([]domain.Portfolio, error) {
	rows, err := r.DB().Query(`
		SELECT id, name, type, created_at, updated_at
		FROM portfolios
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		var p domain.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// Get returns one portfolio by id.
func (r *PortfolioRepository) Get(id int64) (domain.Portfolio, error) {
	var p domain.Portfolio
	err := r.DB().QueryRow(`
		SELECT id, name, type, created_at, updated_at
		FROM portfolios
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Type, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Portfolio{}, ErrPortfolioNotFound
	}
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

// Create inserts a new portfolio and fills in its id.
func (r *PortfolioRepository) Create(p *domain.Portfolio) error {
	if p.Type == "" {
		p.Type = domain.PortfolioTaxable
	}
	res, err := r.DB().Exec(`
		INSERT INTO portfolios (name, type) VALUES (?, ?)
	`, p.Name, p.Type)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// Update modifies name and type.
func (r *PortfolioRepository) Update(p domain.Portfolio) error {
	res, err := r.DB().Exec(`
		UPDATE portfolios
		SET name = ?, type = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Name, p.Type, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPortfolioNotFound
	}
	return nil
}

// Delete removes a portfolio; holdings and transactions cascade.
func (r *PortfolioRepository) Delete(id int64) error {
	res, err := r.DB().Exec(`DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPortfolioNotFound
	}
	return nil
}
