package repository

import (
	"context"
	"testing"

	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGFareHistoryRepository_AppendAndRecent(t *testing.T) {
	pool := testPool(t)
	repo := NewFareHistoryRepository(pool)
	ctx := context.Background()

	prices := []int64{135000, 140000, 128000}
	for _, p := range prices {
		entry := &domain.FareHistoryEntry{
			FlightID:       1,
			PriceCents:     p,
			SeatsAvailable: 60,
			DemandFactor:   0.1,
			Reason:         domain.FareReasonSimulator,
		}
		require.NoError(t, repo.Append(ctx, entry))
		assert.False(t, entry.RecordedAt.IsZero())
	}

	recent, err := repo.Recent(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first.
	assert.Equal(t, int64(128000), recent[0].PriceCents)
	assert.Equal(t, int64(140000), recent[1].PriceCents)

	none, err := repo.Recent(ctx, 404, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
