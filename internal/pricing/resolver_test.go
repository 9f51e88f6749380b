package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type memoryPriceList struct {
	prices map[string]float64
	calls  int
}

func priceKey(tenantID, productID int64, tier string) string {
	return fmt.Sprintf("%d:%d:%s", tenantID, productID, tier)
}

func (m *memoryPriceList) Lookup(ctx context.Context, tenantID, productID int64, tier string) (float64, error) {
	m.calls++
	if price, ok := m.prices[priceKey(tenantID, productID, tier)]; ok {
		return price, nil
	}
	return 0, &PriceNotFoundError{ProductID: productID, Tier: tier}
}

func TestResolveKnownPrice(t *testing.T) {
	repo := &memoryPriceList{prices: map[string]float64{
		priceKey(1, 10, "wholesale"): 1500,
	}}
	resolver := NewResolver(repo)

	price, err := resolver.Resolve(context.Background(), 1, 10, "wholesale")
	require.NoError(t, err)
	require.Equal(t, 1500.0, price)
}

func TestResolveMissingPriceNamesOffender(t *testing.T) {
	resolver := NewResolver(&memoryPriceList{prices: map[string]float64{}})

	_, err := resolver.Resolve(context.Background(), 1, 42, "retail")
	require.Error(t, err)

	var notFound *PriceNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, int64(42), notFound.ProductID)
	require.Equal(t, "retail", notFound.Tier)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveNoCaching(t *testing.T) {
	repo := &memoryPriceList{prices: map[string]float64{
		priceKey(1, 10, "retail"): 900,
	}}
	resolver := NewResolver(repo)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 1, 10, "retail")
	require.NoError(t, err)

	repo.prices[priceKey(1, 10, "retail")] = 950
	price, err := resolver.Resolve(ctx, 1, 10, "retail")
	require.NoError(t, err)
	require.Equal(t, 950.0, price)
	require.Equal(t, 2, repo.calls)
}
