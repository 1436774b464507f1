package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
)

// ErrHoldingNotFound is returned when no holding matches the lookup.
var ErrHoldingNotFound = errors.New("holding not found")

const holdingColumns = `id, portfolio_id, symbol, quantity, current_price,
	current_value, cost_basis, asset_type, sector, region, last_updated`

// HoldingRepository persists holdings. Decimal columns are TEXT in SQLite
// and round-trip through shopspring/decimal without precision loss.
type HoldingRepository struct {
	*repositories.BaseRepository
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "holdings").Logger()),
	}
}

// HoldingsExcluding returns the holdings of every portfolio not in the
// exclusion list. Implements the holding source consumed by the aggregation,
// rebalancing, and health engines.
func (r *HoldingRepository) HoldingsExcluding(excludedPortfolios []int64) ([]domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings`
	args := make([]interface{}, 0, len(excludedPortfolios))

	if len(excludedPortfolios) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(excludedPortfolios)), ",")
		query += ` WHERE portfolio_id NOT IN (` + placeholders + `)`
		for _, id := range excludedPortfolios {
			args = append(args, id)
		}
	}
	query += ` ORDER BY portfolio_id, symbol`

	return r.queryHoldings(query, args...)
}

// ForPortfolio returns the holdings of one portfolio.
func (r *HoldingRepository) ForPortfolio(portfolioID int64) ([]domain.Holding, error) {
	return r.queryHoldings(
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY symbol`,
		portfolioID,
	)
}

// GetBySymbol returns one holding by portfolio and symbol.
func (r *HoldingRepository) GetBySymbol(portfolioID int64, symbol string) (domain.Holding, error) {
	holdings, err := r.queryHoldings(
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? AND symbol = ?`,
		portfolioID, symbol,
	)
	if err != nil {
		return domain.Holding{}, err
	}
	if len(holdings) == 0 {
		return domain.Holding{}, ErrHoldingNotFound
	}
	return holdings[0], nil
}

// Symbols returns the distinct non-cash symbols across all holdings, for
// price refreshes.
func (r *HoldingRepository) Symbols() ([]string, error) {
	rows, err := r.DB().Query(`
		SELECT DISTINCT symbol FROM holdings
		WHERE asset_type != ? ORDER BY symbol
	`, domain.AssetTypeCash)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// Upsert inserts or replaces the holding row for (portfolio, symbol).
func (r *HoldingRepository) Upsert(h *domain.Holding) error {
	res, err := r.DB().Exec(`
		INSERT INTO holdings
			(portfolio_id, symbol, quantity, current_price, current_value,
			 cost_basis, asset_type, sector, region, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			current_price = excluded.current_price,
			current_value = excluded.current_value,
			cost_basis = excluded.cost_basis,
			asset_type = excluded.asset_type,
			sector = excluded.sector,
			region = excluded.region,
			last_updated = CURRENT_TIMESTAMP
	`, h.PortfolioID, h.Symbol, h.Quantity.String(), h.CurrentPrice.String(),
		h.CurrentValue.String(), h.CostBasis.String(), h.AssetType, h.Sector, h.Region)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	if h.ID == 0 {
		h.ID, _ = res.LastInsertId()
	}
	return nil
}

// UpdatePrice sets the current price and recomputes current value for every
// holding of a symbol. Value = quantity x price, in decimal arithmetic.
func (r *HoldingRepository) UpdatePrice(symbol string, price decimal.Decimal) error {
	holdings, err := r.queryHoldings(
		`SELECT `+holdingColumns+` FROM holdings WHERE symbol = ?`, symbol)
	if err != nil {
		return err
	}

	for _, h := range holdings {
		value := h.Quantity.Mul(price)
		_, err := r.DB().Exec(`
			UPDATE holdings
			SET current_price = ?, current_value = ?, last_updated = CURRENT_TIMESTAMP
			WHERE id = ?
		`, price.String(), value.String(), h.ID)
		if err != nil {
			return fmt.Errorf("failed to update price for %s: %w", symbol, err)
		}
	}
	return nil
}

// Delete removes a holding row. Used when a holding's quantity reaches zero.
func (r *HoldingRepository) Delete(id int64) error {
	res, err := r.DB().Exec(`DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

func (r *HoldingRepository) queryHoldings(query string, args ...interface{}) ([]domain.Holding, error) {
	rows, err := r.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func scanHolding(rows *sql.Rows) (domain.Holding, error) {
	var h domain.Holding
	var quantity, price, value, cost string
	if err := rows.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &quantity, &price,
		&value, &cost, &h.AssetType, &h.Sector, &h.Region, &h.LastUpdated); err != nil {
		return domain.Holding{}, fmt.Errorf("failed to scan holding: %w", err)
	}

	var err error
	if h.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return domain.Holding{}, fmt.Errorf("malformed quantity %q: %w", quantity, err)
	}
	if h.CurrentPrice, err = decimal.NewFromString(price); err != nil {
		return domain.Holding{}, fmt.Errorf("malformed price %q: %w", price, err)
	}
	if h.CurrentValue, err = decimal.NewFromString(value); err != nil {
		return domain.Holding{}, fmt.Errorf("malformed value %q: %w", value, err)
	}
	if h.CostBasis, err = decimal.NewFromString(cost); err != nil {
		return domain.Holding{}, fmt.Errorf("malformed cost basis %q: %w", cost, err)
	}
	return h, nil
}
