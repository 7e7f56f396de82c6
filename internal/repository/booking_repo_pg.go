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

// Transition is a guarded status change: it applies only when the
// booking's current status is one of From, which is what makes
// concurrent cancel and expiry of the same booking safe.
type Transition struct {
	From          []domain.BookingStatus
	To            domain.BookingStatus
	PaymentStatus domain.PaymentStatus
	PNR           string
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error)
	HistoryByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error)
	PNRExists(ctx context.Context, pnr string) (bool, error)
	ApplyTransition(ctx context.Context, id string, tr Transition) (*domain.Booking, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, pnr, flight_id, passenger_id, seat_no, status, payment_status, locked_price_cents, created_at, decided_at`

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatusPending
	if err := r.db.QueryRow(ctx, `INSERT INTO bookings (id, flight_id, passenger_id, seat_no, status, payment_status, locked_price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		booking.ID, booking.FlightID, booking.PassengerID, booking.SeatNo, booking.Status, booking.PaymentStatus, booking.LockedPriceCents).
		Scan(&booking.CreatedAt); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBookingRow(row)
}

func (r *PGBookingRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE pnr=$1`, pnr)
	return scanBookingRow(row)
}

func (r *PGBookingRepository) HistoryByPassenger(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE passenger_id=$1 ORDER BY created_at DESC`, passengerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) PNRExists(ctx context.Context, pnr string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE pnr=$1)`, pnr).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return exists, nil
}

// ApplyTransition flips the booking status only if the current status
// is in tr.From. When the guard does not hold, exactly one of
// ErrBookingNotFound or ErrInvalidState comes back, with no write.
func (r *PGBookingRepository) ApplyTransition(ctx context.Context, id string, tr Transition) (*domain.Booking, error) {
	from := make([]string, len(tr.From))
	for i, s := range tr.From {
		from[i] = string(s)
	}

	row := r.db.QueryRow(ctx, `UPDATE bookings
		SET status=$2,
		    payment_status=COALESCE(NULLIF($3, ''), payment_status),
		    pnr=COALESCE(NULLIF($4, ''), pnr),
		    decided_at=now()
		WHERE id=$1 AND status = ANY($5)
		RETURNING `+bookingColumns, id, tr.To, string(tr.PaymentStatus), tr.PNR, from)
	updated, err := scanBookingRow(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	// Guard failed: either the row is missing or its status disallows
	// the transition.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrInvalidState
}

// ExpirePendingBefore transitions every stale PENDING hold to CANCELLED
// in one statement and returns the affected bookings so the caller can
// release their seats.
func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, decided_at=now() WHERE status=$2 AND created_at <= $3 RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

func scanBookingRow(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return &b, nil
}

// scanBooking reads one row into b. pnr and decided_at are NULL until
// the booking is decided, so they go through pointers and map to zero
// values.
func scanBooking(row pgx.Row, b *domain.Booking) error {
	var pnr *string
	var decidedAt *time.Time
	if err := row.Scan(&b.ID, &pnr, &b.FlightID, &b.PassengerID, &b.SeatNo, &b.Status, &b.PaymentStatus, &b.LockedPriceCents, &b.CreatedAt, &decidedAt); err != nil {
		return err
	}
	if pnr != nil {
		b.PNR = *pnr
	}
	if decidedAt != nil {
		b.DecidedAt = *decidedAt
	}
	return nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
