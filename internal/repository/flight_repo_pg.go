package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlukyanov/skyfare/internal/domain"
)

// FlightRepository is the seat ledger plus the flight catalog read side.
// ReserveSeat and ReleaseSeat are the only operations that may change
// seat counters; both are atomic per flight and independent across
// flights.
type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ReserveSeat(ctx context.Context, flightID int64) error
	ReleaseSeat(ctx context.Context, flightID int64) error
	ReconcileSeats(ctx context.Context) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, total_seats, available_seats, base_fare_cents, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

// Search matches flights by route and departure date. Origin and
// destination compare case-insensitively; date matches the calendar day
// of the departure.
func (r *PGFlightRepository) Search(ctx context.Context, origin, destination string, date time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE lower(origin)=lower($1) AND lower(destination)=lower($2) AND departure_time::date = $3::date
		ORDER BY departure_time`, origin, destination, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return f, nil
}

// ReserveSeat decrements available_seats only when a seat remains. The
// conditional UPDATE is a single atomic statement, so concurrent
// reservations on the same flight serialize on the row and never drive
// the counter negative.
func (r *PGFlightRepository) ReserveSeat(ctx context.Context, flightID int64) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1 AND available_seats > 0`, flightID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if res.RowsAffected() == 0 {
		if exists, err := r.flightExists(ctx, flightID); err != nil {
			return err
		} else if !exists {
			return domain.ErrFlightNotFound
		}
		return domain.ErrNoSeatsAvailable
	}
	return nil
}

// ReleaseSeat increments available_seats, clamped at total_seats so a
// double release cannot overflow capacity. Releasing an already-full
// flight is a no-op, not an error.
func (r *PGFlightRepository) ReleaseSeat(ctx context.Context, flightID int64) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET available_seats = available_seats + 1, updated_at = now() WHERE id=$1 AND available_seats < total_seats`, flightID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if res.RowsAffected() == 0 {
		if exists, err := r.flightExists(ctx, flightID); err != nil {
			return err
		} else if !exists {
			return domain.ErrFlightNotFound
		}
	}
	return nil
}

// ReconcileSeats re-derives available_seats from live bookings. Run at
// worker startup to repair any drift left by a crash between a seat
// update and its booking row.
func (r *PGFlightRepository) ReconcileSeats(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		UPDATE flights f
		SET available_seats = f.total_seats - held.n, updated_at = now()
		FROM (
			SELECT fl.id, COUNT(b.id) AS n
			FROM flights fl
			LEFT JOIN bookings b ON b.flight_id = fl.id AND b.status IN ('PENDING', 'CONFIRMED')
			GROUP BY fl.id
		) held
		WHERE held.id = f.id AND f.available_seats <> f.total_seats - held.n`)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *PGFlightRepository) flightExists(ctx context.Context, flightID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return exists, nil
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.BaseFareCents, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
