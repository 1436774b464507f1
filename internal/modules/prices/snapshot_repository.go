package prices

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avramidis/folio/internal/database/repositories"
	"github.com/avramidis/folio/internal/domain"
)

// SnapshotRepository stores daily portfolio value snapshots. One row per
// day; a same-day refresh overwrites the earlier value.
type SnapshotRepository struct {
	*repositories.BaseRepository
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		BaseRepository: repositories.NewBase(db, log.With().Str("repo", "snapshots").Logger()),
	}
}

// Record upserts the snapshot for a date.
func (r *SnapshotRepository) Record(date time.Time, totalValue decimal.Decimal) error {
	_, err := r.DB().Exec(`
		INSERT INTO value_snapshots (date, total_value)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET total_value = excluded.total_value
	`, date.Format("2006-01-02"), totalValue.String())
	if err != nil {
		return fmt.Errorf("failed to record value snapshot: %w", err)
	}
	return nil
}

// ValueHistory returns snapshots for the trailing window, oldest first.
// Implements the history source feeding the volatility metric.
func (r *SnapshotRepository) ValueHistory(days int) ([]domain.ValueSnapshot, error) {
	rows, err := r.DB().Query(`
		SELECT date, total_value
		FROM value_snapshots
		WHERE date >= date('now', ?)
		ORDER BY date
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("failed to query value snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.ValueSnapshot
	for rows.Next() {
		var s domain.ValueSnapshot
		var date, value string
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan value snapshot: %w", err)
		}
		if s.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("malformed snapshot date %q: %w", date, err)
		}
		if s.TotalValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("malformed snapshot value %q: %w", value, err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
