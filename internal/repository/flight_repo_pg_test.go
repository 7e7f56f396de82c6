package repository

import (
	"context"
	"testing"
	"time"

	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGFlightRepository_ReserveAndRelease(t *testing.T) {
	pool := testPool(t)
	repo := NewFlightRepository(pool)
	ctx := context.Background()

	insertFlight(t, pool, 1, "AMS", "LIS", "2030-10-01 09:00:00+00", 2, 2, 150000)

	require.NoError(t, repo.ReserveSeat(ctx, 1))
	require.NoError(t, repo.ReserveSeat(ctx, 1))
	require.ErrorIs(t, repo.ReserveSeat(ctx, 1), domain.ErrNoSeatsAvailable)

	require.NoError(t, repo.ReleaseSeat(ctx, 1))
	f, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.AvailableSeats)

	// Releasing past capacity clamps instead of overflowing.
	require.NoError(t, repo.ReleaseSeat(ctx, 1))
	require.NoError(t, repo.ReleaseSeat(ctx, 1))
	f, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, f.AvailableSeats)

	require.ErrorIs(t, repo.ReserveSeat(ctx, 404), domain.ErrFlightNotFound)
	require.ErrorIs(t, repo.ReleaseSeat(ctx, 404), domain.ErrFlightNotFound)
}

func TestPGFlightRepository_Search(t *testing.T) {
	pool := testPool(t)
	repo := NewFlightRepository(pool)
	ctx := context.Background()

	insertFlight(t, pool, 1, "AMS", "LIS", "2030-10-01 09:00:00+00", 100, 60, 150000)
	insertFlight(t, pool, 2, "AMS", "LIS", "2030-10-01 18:00:00+00", 100, 60, 120000)
	insertFlight(t, pool, 3, "AMS", "LIS", "2030-10-02 09:00:00+00", 100, 60, 100000)
	insertFlight(t, pool, 4, "AMS", "MAD", "2030-10-01 10:00:00+00", 100, 60, 90000)

	date := time.Date(2030, 10, 1, 0, 0, 0, 0, time.UTC)
	flights, err := repo.Search(ctx, "ams", "lis", date)
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, int64(1), flights[0].ID)
	assert.Equal(t, int64(2), flights[1].ID)

	flights, err = repo.Search(ctx, "AMS", "LIS", date.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, flights)
}

func TestPGFlightRepository_ReconcileSeats(t *testing.T) {
	pool := testPool(t)
	repo := NewFlightRepository(pool)
	bookings := NewBookingRepository(pool)
	ctx := context.Background()

	insertFlight(t, pool, 1, "AMS", "LIS", "2030-10-01 09:00:00+00", 10, 10, 150000)
	require.NoError(t, bookings.Create(ctx, &domain.Booking{ID: "held-1", FlightID: 1, PassengerID: 7, SeatNo: "1A", LockedPriceCents: 150000}))
	require.NoError(t, bookings.Create(ctx, &domain.Booking{ID: "held-2", FlightID: 1, PassengerID: 8, SeatNo: "1B", LockedPriceCents: 150000}))

	// Counter drifted: two live holds but the ledger shows all seats free.
	require.NoError(t, repo.ReconcileSeats(ctx))

	f, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, f.AvailableSeats)
}
