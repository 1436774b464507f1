package transactions

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
)

// ErrTransactionNotFound is returned when no transaction matches the lookup.
var ErrTransactionNotFound = errors.New("transaction not found")

const txColumns = `id, portfolio_id, symbol, type, quantity, price, fees, date, created_at`

// Repository persists transaction records.
type Repository struct {
	*repositories.BaseRepository
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "transactions").Logger()),
	}
}

// ForPortfolio returns a portfolio's transactions, newest first.
func (r *Repository) ForPortfolio(portfolioID int64) ([]domain.Transaction, error) {
	return r.query(
		`SELECT `+txColumns+` FROM transactions WHERE portfolio_id = ? ORDER BY date DESC, id DESC`,
		portfolioID,
	)
}

// ForSymbol returns all transactions of one symbol within a portfolio, in
// chronological order for replay.
func (r *Repository) ForSymbol(portfolioID int64, symbol string) ([]domain.Transaction, error) {
	return r.query(
		`SELECT `+txColumns+` FROM transactions WHERE portfolio_id = ? AND symbol = ? ORDER BY date, id`,
		portfolioID, symbol,
	)
}

// Get returns one transaction by id.
func (r *Repository) Get(id int64) (domain.Transaction, error) {
	txs, err := r.query(`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if len(txs) == 0 {
		return domain.Transaction{}, ErrTransactionNotFound
	}
	return txs[0], nil
}

// Create inserts a transaction and fills in its id.
func (r *Repository) Create(t *domain.Transaction) error {
	res, err := r.DB().Exec(`
		INSERT INTO transactions (portfolio_id, symbol, type, quantity, price, fees, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.PortfolioID, t.Symbol, t.Type, t.Quantity.String(), t.Price.String(), t.Fees.String(), t.Date)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

// Update replaces a transaction's mutable fields.
func (r *Repository) Update(t domain.Transaction) error {
	res, err := r.DB().Exec(`
		UPDATE transactions
		SET symbol = ?, type = ?, quantity = ?, price = ?, fees = ?, date = ?
		WHERE id = ?
	`, t.Symbol, t.Type, t.Quantity.String(), t.Price.String(), t.Fees.String(), t.Date, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Delete removes a transaction.
func (r *Repository) Delete(id int64) error {
	res, err := r.DB().Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *Repository) query(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var quantity, price, fees string
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.Symbol, &t.Type,
			&quantity, &price, &fees, &t.Date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("malformed quantity %q: %w", quantity, err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("malformed price %q: %w", price, err)
		}
		if t.Fees, err = decimal.NewFromString(fees); err != nil {
			return nil, fmt.Errorf("malformed fees %q: %w", fees, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
