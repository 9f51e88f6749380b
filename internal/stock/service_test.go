package stock

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type memoryLedger struct {
	counters  map[string]int64
	movements []Movement
	allowNeg  bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{counters: make(map[string]int64)}
}

func counterKey(tenantID, productID int64) string {
	return fmt.Sprintf("%d:%d", tenantID, productID)
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryLedgerTx{ledger: m})
}

func (m *memoryLedger) ListMovements(ctx context.Context, tenantID, productID int64, limit int) ([]Movement, error) {
	var result []Movement
	for _, mv := range m.movements {
		if mv.TenantID == tenantID && mv.ProductID == productID {
			result = append(result, mv)
		}
	}
	return result, nil
}

type memoryLedgerTx struct {
	ledger *memoryLedger
}

func (t *memoryLedgerTx) Apply(ctx context.Context, m Movement) (int64, error) {
	if m.QtyDelta == 0 {
		return 0, fmt.Errorf("stock: quantity delta must be non zero: %w", shared.ErrValidation)
	}
	key := counterKey(m.TenantID, m.ProductID)
	current, ok := t.ledger.counters[key]
	if !ok {
		return 0, fmt.Errorf("stock: product %d: %w", m.ProductID, shared.ErrNotFound)
	}
	next := current + m.QtyDelta
	if next < 0 && !t.ledger.allowNeg {
		return 0, fmt.Errorf("product %d: %w", m.ProductID, ErrInsufficientStock)
	}
	t.ledger.counters[key] = next
	t.ledger.movements = append(t.ledger.movements, m)
	return next, nil
}

func TestAdjustMovesCounterAndLedgerTogether(t *testing.T) {
	repo := newMemoryLedger()
	repo.counters[counterKey(1, 10)] = 20
	svc := NewService(repo, nil)
	ctx := context.Background()

	movement, newQty, err := svc.Adjust(ctx, AdjustmentRequest{TenantID: 1, ProductID: 10, QtyDelta: 5, Reason: "recount"})
	require.NoError(t, err)
	require.Equal(t, int64(25), newQty)
	require.Equal(t, MovementAdjustIn, movement.Type)
	require.Len(t, repo.movements, 1)
	require.Equal(t, int64(5), repo.movements[0].QtyDelta)
}

func TestAdjustNegativeDelta(t *testing.T) {
	repo := newMemoryLedger()
	repo.counters[counterKey(1, 10)] = 20
	svc := NewService(repo, nil)

	movement, newQty, err := svc.Adjust(context.Background(), AdjustmentRequest{TenantID: 1, ProductID: 10, QtyDelta: -8, Reason: "damage"})
	require.NoError(t, err)
	require.Equal(t, int64(12), newQty)
	require.Equal(t, MovementAdjustOut, movement.Type)
}

func TestAdjustInsufficientStock(t *testing.T) {
	repo := newMemoryLedger()
	repo.counters[counterKey(1, 10)] = 3
	svc := NewService(repo, nil)

	_, _, err := svc.Adjust(context.Background(), AdjustmentRequest{TenantID: 1, ProductID: 10, QtyDelta: -5, Reason: "oversell"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, repo.movements)
	require.Equal(t, int64(3), repo.counters[counterKey(1, 10)])
}

func TestAdjustUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryLedger(), nil)
	_, _, err := svc.Adjust(context.Background(), AdjustmentRequest{TenantID: 1, ProductID: 99, QtyDelta: 1, Reason: "ghost"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
