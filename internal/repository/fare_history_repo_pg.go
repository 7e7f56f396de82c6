package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlukyanov/skyfare/internal/domain"
)

// FareHistoryRepository is the append-only price ledger. Entries are
// never updated or deleted.
type FareHistoryRepository interface {
	Append(ctx context.Context, entry *domain.FareHistoryEntry) error
	Recent(ctx context.Context, flightID int64, limit int) ([]domain.FareHistoryEntry, error)
}

type PGFareHistoryRepository struct {
	db *pgxpool.Pool
}

func NewFareHistoryRepository(db *pgxpool.Pool) FareHistoryRepository {
	return &PGFareHistoryRepository{db: db}
}

func (r *PGFareHistoryRepository) Append(ctx context.Context, entry *domain.FareHistoryEntry) error {
	if err := r.db.QueryRow(ctx, `INSERT INTO fare_history (flight_id, price_cents, seats_available, demand_factor, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING recorded_at`,
		entry.FlightID, entry.PriceCents, entry.SeatsAvailable, entry.DemandFactor, entry.Reason).
		Scan(&entry.RecordedAt); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *PGFareHistoryRepository) Recent(ctx context.Context, flightID int64, limit int) ([]domain.FareHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT flight_id, price_cents, seats_available, demand_factor, reason, recorded_at
		FROM fare_history WHERE flight_id=$1 ORDER BY recorded_at DESC, id DESC LIMIT $2`, flightID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	entries := make([]domain.FareHistoryEntry, 0, limit)
	for rows.Next() {
		var e domain.FareHistoryEntry
		if err := rows.Scan(&e.FlightID, &e.PriceCents, &e.SeatsAvailable, &e.DemandFactor, &e.Reason, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ FareHistoryRepository = (*PGFareHistoryRepository)(nil)
