package payments

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

type ledgerState struct {
	grandTotals   map[int64]float64
	payments      map[int64][]Payment
	balances      map[int64]float64
	paymentStatus map[int64]string
	nextID        int64
}

func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		grandTotals:   make(map[int64]float64),
		payments:      make(map[int64][]Payment),
		balances:      make(map[int64]float64),
		paymentStatus: make(map[int64]string),
		nextID:        s.nextID,
	}
	for k, v := range s.grandTotals {
		c.grandTotals[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]Payment(nil), v...)
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.paymentStatus {
		c.paymentStatus[k] = v
	}
	return c
}

type ledgerRepo struct {
	state *ledgerState
}

type ledgerTx struct {
	st *ledgerState
}

func (r *ledgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &ledgerTx{st: work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *ledgerRepo) ListByOrder(ctx context.Context, tenantID, orderID int64) ([]Payment, error) {
	return append([]Payment(nil), r.state.payments[orderID]...), nil
}

func (t *ledgerTx) GetOrderGrandTotal(ctx context.Context, tenantID, orderID int64) (float64, error) {
	total, ok := t.st.grandTotals[orderID]
	if !ok {
		return 0, fmt.Errorf("payments: order %d: %w", orderID, shared.ErrNotFound)
	}
	return total, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, p *Payment) error {
	t.st.nextID++
	p.ID = t.st.nextID
	p.CreatedAt = time.Now()
	t.st.payments[p.OrderID] = append(t.st.payments[p.OrderID], *p)
	return nil
}

func (t *ledgerTx) SumPayments(ctx context.Context, orderID int64) (float64, error) {
	var total float64
	for _, p := range t.st.payments[orderID] {
		total += p.Amount
	}
	return total, nil
}

func (t *ledgerTx) UpdateInvoiceBalance(ctx context.Context, tenantID, orderID int64, balance float64) error {
	t.st.balances[orderID] = balance
	return nil
}

func (t *ledgerTx) SetOrderPaymentStatus(ctx context.Context, tenantID, orderID int64, status string) error {
	t.st.paymentStatus[orderID] = status
	return nil
}

func newLedgerFixture() (*ledgerRepo, *Service) {
	repo := &ledgerRepo{state: &ledgerState{
		grandTotals:   map[int64]float64{5: 2000},
		payments:      make(map[int64][]Payment),
		balances:      make(map[int64]float64),
		paymentStatus: make(map[int64]string),
	}}
	return repo, NewService(slog.Default(), repo, nil)
}

func TestRecordPaymentDerivesPartialStatus(t *testing.T) {
	repo, svc := newLedgerFixture()

	result, err := svc.Record(context.Background(), RecordPaymentRequest{
		TenantID: 1, OrderID: 5, Amount: 500, Method: "cash",
	})
	require.NoError(t, err)
	require.Equal(t, float64(500), result.TotalPaid)
	require.Equal(t, float64(1500), result.BalanceDue)
	require.Equal(t, "partial", result.PaymentStatus)
	require.Equal(t, float64(1500), repo.state.balances[5])
	require.Equal(t, "partial", repo.state.paymentStatus[5])
}

func TestRecordPaymentReachesPaidAtFullAmount(t *testing.T) {
	repo, svc := newLedgerFixture()
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordPaymentRequest{TenantID: 1, OrderID: 5, Amount: 1200})
	require.NoError(t, err)
	result, err := svc.Record(ctx, RecordPaymentRequest{TenantID: 1, OrderID: 5, Amount: 800})
	require.NoError(t, err)

	require.Equal(t, float64(2000), result.TotalPaid)
	require.Equal(t, float64(0), result.BalanceDue)
	require.Equal(t, "paid", result.PaymentStatus)
	require.Len(t, repo.state.payments[5], 2)
}

func TestRecordPaymentUnknownOrderWritesNothing(t *testing.T) {
	repo, svc := newLedgerFixture()

	_, err := svc.Record(context.Background(), RecordPaymentRequest{TenantID: 1, OrderID: 99, Amount: 100})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.state.payments[99])
}
