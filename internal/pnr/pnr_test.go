package pnr

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pnrPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerate_Format(t *testing.T) {
	ctx := context.Background()
	never := func(ctx context.Context, pnr string) (bool, error) { return false, nil }

	for i := 0; i < 100; i++ {
		code, err := Generate(ctx, never)
		require.NoError(t, err)
		assert.Regexp(t, pnrPattern, code)
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	calls := 0
	firstTaken := func(ctx context.Context, pnr string) (bool, error) {
		calls++
		return calls == 1, nil
	}

	code, err := Generate(ctx, firstTaken)
	require.NoError(t, err)
	assert.Regexp(t, pnrPattern, code)
	assert.Equal(t, 2, calls)
}

func TestGenerate_GivesUpWhenExhausted(t *testing.T) {
	ctx := context.Background()
	always := func(ctx context.Context, pnr string) (bool, error) { return true, nil }

	_, err := Generate(ctx, always)
	assert.Error(t, err)
}

func TestPick_RejectsTailBytes(t *testing.T) {
	// 256 is not a multiple of 36, so the top 4 byte values would map
	// onto A-D twice as often as the rest; they must be redrawn.
	for b := rejectAbove; b < 256; b++ {
		_, ok := pick(byte(b))
		assert.False(t, ok, "byte %d must be rejected", b)
	}

	c, ok := pick(0)
	require.True(t, ok)
	assert.Equal(t, byte('A'), c)

	c, ok = pick(byte(rejectAbove - 1))
	require.True(t, ok)
	assert.Equal(t, alphabet[(rejectAbove-1)%len(alphabet)], c)
}

func TestGenerate_CoversFullAlphabet(t *testing.T) {
	ctx := context.Background()
	never := func(ctx context.Context, pnr string) (bool, error) { return false, nil }

	counts := make(map[rune]int)
	for i := 0; i < 2000; i++ {
		code, err := Generate(ctx, never)
		require.NoError(t, err)
		for _, c := range code {
			counts[c]++
		}
	}
	for _, c := range alphabet {
		assert.Positive(t, counts[c], "character %c never drawn", c)
	}
}

func TestGenerate_NotObviouslySequential(t *testing.T) {
	ctx := context.Background()
	never := func(ctx context.Context, pnr string) (bool, error) { return false, nil }

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := Generate(ctx, never)
		require.NoError(t, err)
		seen[code] = true
	}
	// 50 independent draws from a 36^6 space should not collide.
	assert.Len(t, seen, 50)
}
