package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS flights (
	id BIGINT PRIMARY KEY,
	flight_number TEXT NOT NULL DEFAULT '',
	origin TEXT NOT NULL,
	destination TEXT NOT NULL,
	departure_time TIMESTAMPTZ NOT NULL,
	arrival_time TIMESTAMPTZ NOT NULL,
	total_seats INT NOT NULL,
	available_seats INT NOT NULL,
	base_fare_cents BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	pnr TEXT,
	flight_id BIGINT NOT NULL,
	passenger_id BIGINT NOT NULL,
	seat_no TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	payment_status TEXT NOT NULL,
	locked_price_cents BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	decided_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS fare_history (
	id BIGSERIAL PRIMARY KEY,
	flight_id BIGINT NOT NULL,
	price_cents BIGINT NOT NULL,
	seats_available INT NOT NULL,
	demand_factor DOUBLE PRECISION NOT NULL,
	reason TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// testPool connects to the database named by TEST_DATABASE_DSN, creates
// the schema and empties the tables. Tests using it are skipped when
// the variable is unset, so the suite stays runnable without Postgres.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE flights, bookings, fare_history`)
	require.NoError(t, err)

	return pool
}

func insertFlight(t *testing.T, pool *pgxpool.Pool, id int64, origin, destination string, departure string, totalSeats, availableSeats int, baseFareCents int64) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `INSERT INTO flights
		(id, flight_number, origin, destination, departure_time, arrival_time, total_seats, available_seats, base_fare_cents)
		VALUES ($1, $2, $3, $4, $5::timestamptz, $5::timestamptz + interval '2 hours', $6, $7, $8)`,
		id, "SF"+origin, origin, destination, departure, totalSeats, availableSeats, baseFareCents)
	require.NoError(t, err)
}
