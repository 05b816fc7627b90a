package tax_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/tax"
)

// countingStore records how often each loader is hit.
type countingStore struct {
	tableCalls int
	suppCalls  int
	err        error
}

func (c *countingStore) Table(_ context.Context, scale tax.Scale, _ string) ([]tax.TaxCoefficient, error) {
	c.tableCalls++
	if c.err != nil {
		return nil, c.err
	}
	return tax.FallbackTable(scale), nil
}

func (c *countingStore) SupplementaryTable(context.Context, string) ([]tax.TaxCoefficient, error) {
	c.suppCalls++
	if c.err != nil {
		return nil, c.err
	}
	return tax.FallbackSupplementaryTable(), nil
}

func TestCachedCoefficients_SecondLookupServedFromCache(t *testing.T) {
	store := &countingStore{}
	cache := tax.NewCachedCoefficients(store, time.Hour)
	ctx := context.Background()

	first, err := cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	second, err := cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)

	assert.Equal(t, 1, store.tableCalls)
	assert.Equal(t, len(first), len(second))
}

func TestCachedCoefficients_KeysAreIndependent(t *testing.T) {
	store := &countingStore{}
	cache := tax.NewCachedCoefficients(store, time.Hour)
	ctx := context.Background()

	_, err := cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	_, err = cache.Table(ctx, tax.ScaleNoThreshold, "2024-25")
	require.NoError(t, err)
	_, err = cache.Table(ctx, tax.ScaleThresholdClaimed, "2025-26")
	require.NoError(t, err)
	_, err = cache.SupplementaryTable(ctx, "2024-25")
	require.NoError(t, err)

	assert.Equal(t, 3, store.tableCalls)
	assert.Equal(t, 1, store.suppCalls)
}

func TestCachedCoefficients_ErrorsNeverCached(t *testing.T) {
	store := &countingStore{err: errors.New("store down")}
	cache := tax.NewCachedCoefficients(store, time.Hour)
	ctx := context.Background()

	_, err := cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.Error(t, err)

	// Store recovers; the next lookup must go back to it.
	store.err = nil
	_, err = cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	assert.Equal(t, 2, store.tableCalls)
}

func TestCachedCoefficients_InvalidateYearForcesReload(t *testing.T) {
	store := &countingStore{}
	cache := tax.NewCachedCoefficients(store, time.Hour)
	ctx := context.Background()

	_, err := cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	_, err = cache.Table(ctx, tax.ScaleNoThreshold, "2025-26")
	require.NoError(t, err)

	cache.InvalidateYear("2024-25")

	_, err = cache.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	_, err = cache.Table(ctx, tax.ScaleNoThreshold, "2025-26")
	require.NoError(t, err)

	assert.Equal(t, 3, store.tableCalls, "only the invalidated year reloads")
}
