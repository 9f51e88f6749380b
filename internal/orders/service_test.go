package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/customers"
	"github.com/meridian-oms/meridian-oms/internal/invoicing"
	"github.com/meridian-oms/meridian-oms/internal/pricing"
	"github.com/meridian-oms/meridian-oms/internal/shared"
	"github.com/meridian-oms/meridian-oms/internal/stock"
)

// memoryState is a miniature of the tables a lifecycle transaction touches.
type memoryState struct {
	nextID         int64
	counters       map[int64]int64
	orders         map[int64]*Order
	orderLines     map[int64][]LineItem
	courierLinks   map[int64][]int64
	invoices       map[int64]*invoicing.Invoice
	invoiceByOrder map[int64]int64
	invoiceLines   map[int64][]LineItem
	payments       map[int64][]float64
	movements      []stock.Movement
	stockQty       map[int64]int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		counters:       make(map[int64]int64),
		orders:         make(map[int64]*Order),
		orderLines:     make(map[int64][]LineItem),
		courierLinks:   make(map[int64][]int64),
		invoices:       make(map[int64]*invoicing.Invoice),
		invoiceByOrder: make(map[int64]int64),
		invoiceLines:   make(map[int64][]LineItem),
		payments:       make(map[int64][]float64),
		stockQty:       make(map[int64]int64),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	c.nextID = s.nextID
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range s.courierLinks {
		c.courierLinks[k] = append([]int64(nil), v...)
	}
	for k, v := range s.invoices {
		inv := *v
		c.invoices[k] = &inv
	}
	for k, v := range s.invoiceByOrder {
		c.invoiceByOrder[k] = v
	}
	for k, v := range s.invoiceLines {
		c.invoiceLines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = append([]float64(nil), v...)
	}
	c.movements = append([]stock.Movement(nil), s.movements...)
	for k, v := range s.stockQty {
		c.stockQty[k] = v
	}
	return c
}

// memoryRepo is an in-memory RepositoryPort with real transaction semantics:
// fn operates on a copy that only replaces the live state when fn succeeds,
// so a failure anywhere in the callback leaves no residue.
type memoryRepo struct {
	state    *memoryState
	allowNeg bool
	failOn   string
}

type memoryTx struct {
	st       *memoryState
	allowNeg bool
	failOn   string
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{st: work, allowNeg: r.allowNeg, failOn: r.failOn}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	tx := &memoryTx{st: r.state}
	return tx.GetOrderForUpdate(ctx, tenantID, orderID)
}

func (r *memoryRepo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	var out []Order
	for _, o := range r.state.orders {
		if o.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (t *memoryTx) fail(method string) error {
	if t.failOn == method {
		return fmt.Errorf("%s: induced failure", method)
	}
	return nil
}

func (t *memoryTx) GetOrderForUpdate(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return nil, fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
	}
	cp := *o
	cp.Lines = append([]LineItem(nil), t.st.orderLines[orderID]...)
	cp.CourierIDs = append([]int64(nil), t.st.courierLinks[orderID]...)
	return &cp, nil
}

func (t *memoryTx) NextInvoiceNumber(ctx context.Context, tenantID int64) (int64, error) {
	t.st.counters[tenantID]++
	return t.st.counters[tenantID], nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, o *Order) error {
	t.st.nextID++
	o.ID = t.st.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	t.st.orders[o.ID] = &cp
	return nil
}

func (t *memoryTx) UpdateOrderHeader(ctx context.Context, o *Order) error {
	stored, ok := t.st.orders[o.ID]
	if !ok {
		return fmt.Errorf("orders: order %d: %w", o.ID, shared.ErrNotFound)
	}
	stored.PlannedDate = o.PlannedDate
	stored.Notes = o.Notes
	stored.Subtotal = o.Subtotal
	stored.GrandTotal = o.GrandTotal
	stored.UpdatedAt = time.Now()
	return nil
}

func (t *memoryTx) SetOrderStatus(ctx context.Context, tenantID, orderID int64, status OrderStatus) error {
	o, ok := t.st.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
	}
	o.Status = status
	return nil
}

func (t *memoryTx) ReplaceCourierLinks(ctx context.Context, tenantID, orderID int64, courierIDs []int64) error {
	t.st.courierLinks[orderID] = append([]int64(nil), courierIDs...)
	return nil
}

func (t *memoryTx) InsertInvoice(ctx context.Context, inv *invoicing.Invoice) error {
	t.st.nextID++
	inv.ID = t.st.nextID
	cp := *inv
	t.st.invoices[inv.ID] = &cp
	t.st.invoiceByOrder[inv.OrderID] = inv.ID
	return nil
}

func (t *memoryTx) UpdateInvoiceForOrder(ctx context.Context, tenantID, orderID int64, subtotal, grandTotal float64, notes string) error {
	invID, ok := t.st.invoiceByOrder[orderID]
	if !ok {
		return fmt.Errorf("orders: invoice for order %d: %w", orderID, shared.ErrNotFound)
	}
	var paid float64
	for _, p := range t.st.payments[orderID] {
		paid += p
	}
	inv := t.st.invoices[invID]
	inv.Subtotal = subtotal
	inv.GrandTotal = grandTotal
	inv.BalanceDue = grandTotal - paid
	inv.Notes = notes
	return nil
}

func (t *memoryTx) ReplaceOrderLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error {
	if err := t.fail("ReplaceOrderLines"); err != nil {
		return err
	}
	t.st.orderLines[orderID] = append([]LineItem(nil), lines...)
	return nil
}

func (t *memoryTx) ReplaceInvoiceLines(ctx context.Context, tenantID, orderID int64, lines []LineItem) error {
	if err := t.fail("ReplaceInvoiceLines"); err != nil {
		return err
	}
	invID, ok := t.st.invoiceByOrder[orderID]
	if !ok {
		return fmt.Errorf("orders: invoice for order %d: %w", orderID, shared.ErrNotFound)
	}
	t.st.invoiceLines[invID] = append([]LineItem(nil), lines...)
	return nil
}

func (t *memoryTx) ApplyMovement(ctx context.Context, m stock.Movement) (int64, error) {
	current, ok := t.st.stockQty[m.ProductID]
	if !ok {
		return 0, fmt.Errorf("stock: product %d: %w", m.ProductID, shared.ErrNotFound)
	}
	next := current + m.QtyDelta
	if next < 0 && !t.allowNeg {
		return 0, fmt.Errorf("product %d: %w", m.ProductID, stock.ErrInsufficientStock)
	}
	t.st.stockQty[m.ProductID] = next
	t.st.movements = append(t.st.movements, m)
	return next, nil
}

func (t *memoryTx) PurgeOrder(ctx context.Context, tenantID, orderID int64) error {
	o, ok := t.st.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return fmt.Errorf("orders: order %d: %w", orderID, shared.ErrNotFound)
	}
	delete(t.st.courierLinks, orderID)
	delete(t.st.payments, orderID)
	delete(t.st.orderLines, orderID)
	if invID, ok := t.st.invoiceByOrder[orderID]; ok {
		delete(t.st.invoiceLines, invID)
		delete(t.st.invoices, invID)
		delete(t.st.invoiceByOrder, orderID)
	}
	kept := t.st.movements[:0]
	for _, m := range t.st.movements {
		if m.OrderID != nil && *m.OrderID == orderID {
			continue
		}
		kept = append(kept, m)
	}
	t.st.movements = kept
	delete(t.st.orders, orderID)
	return nil
}

type memoryDirectory struct {
	customers map[int64]*customers.Customer
}

func (d *memoryDirectory) Get(ctx context.Context, tenantID, id int64) (*customers.Customer, error) {
	c, ok := d.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

type memoryPrices struct {
	prices map[string]float64
}

func (p *memoryPrices) Resolve(ctx context.Context, tenantID, productID int64, tier string) (float64, error) {
	price, ok := p.prices[fmt.Sprintf("%d:%d:%s", tenantID, productID, tier)]
	if !ok {
		return 0, &pricing.PriceNotFoundError{ProductID: productID, Tier: tier}
	}
	return price, nil
}

type recordingNotifier struct {
	events []OrderEvent
}

func (n *recordingNotifier) NotifyOrderEvent(ctx context.Context, event OrderEvent) error {
	n.events = append(n.events, event)
	return nil
}

type fixture struct {
	repo     *memoryRepo
	notifier *recordingNotifier
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := &memoryRepo{state: newMemoryState()}
	repo.state.stockQty[10] = 50
	repo.state.stockQty[11] = 50
	repo.state.stockQty[12] = 50
	dir := &memoryDirectory{customers: map[int64]*customers.Customer{
		7: {ID: 7, TenantID: 1, Name: "Acme Retail", PricingTier: "wholesale"},
	}}
	prices := &memoryPrices{prices: map[string]float64{
		"1:10:wholesale": 1000,
		"1:11:wholesale": 250,
	}}
	notifier := &recordingNotifier{}
	svc := NewService(slog.Default(), repo, dir, prices, nil, notifier)
	return &fixture{repo: repo, notifier: notifier, service: svc}
}

func createReq() CreateOrderRequest {
	return CreateOrderRequest{
		TenantID:    1,
		CustomerID:  7,
		PlannedDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Notes:       "leave at gate",
		CreatorID:   3,
		CourierIDs:  []int64{21},
		Lines:       []CreateOrderLineReq{{ProductID: 10, Qty: 2}},
	}
}

func TestCreateOrderPersistsOrderInvoiceAndLines(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)
	require.Equal(t, int64(1), result.InvoiceNumber)
	require.Equal(t, float64(2000), result.GrandTotal)

	order := fx.repo.state.orders[result.OrderID]
	require.NotNil(t, order)
	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, PaymentUnpaid, order.PaymentStatus)
	require.Equal(t, float64(2000), order.GrandTotal)

	lines := fx.repo.state.orderLines[result.OrderID]
	require.Len(t, lines, 1)
	require.Equal(t, float64(1000), lines[0].UnitPrice)
	require.Equal(t, int64(2), lines[0].Qty)
	require.Equal(t, float64(2000), lines[0].LineTotal)

	invoice := fx.repo.state.invoices[result.InvoiceID]
	require.NotNil(t, invoice)
	require.Equal(t, float64(2000), invoice.BalanceDue)
	require.Equal(t, result.InvoiceNumber, invoice.InvoiceNumber)
	require.Len(t, fx.repo.state.invoiceLines[result.InvoiceID], 1)

	require.Equal(t, []int64{21}, fx.repo.state.courierLinks[result.OrderID])

	require.Empty(t, fx.repo.state.movements, "creation must not touch stock")
	require.Equal(t, int64(50), fx.repo.state.stockQty[10])

	require.Len(t, fx.notifier.events, 1)
	require.Equal(t, EventOrderCreated, fx.notifier.events[0].Kind)
}

func TestCreateOrderUnknownCustomerWritesNothing(t *testing.T) {
	fx := newFixture(t)
	req := createReq()
	req.CustomerID = 999

	_, err := fx.service.Create(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, fx.repo.state.orders)
	require.Zero(t, fx.repo.state.counters[1])
}

func TestCreateOrderMissingPriceNamesOffenderAndWritesNothing(t *testing.T) {
	fx := newFixture(t)
	req := createReq()
	req.Lines = []CreateOrderLineReq{
		{ProductID: 10, Qty: 2},
		{ProductID: 12, Qty: 1},
	}

	_, err := fx.service.Create(context.Background(), req)
	require.Error(t, err)
	var pnf *pricing.PriceNotFoundError
	require.ErrorAs(t, err, &pnf)
	require.Equal(t, int64(12), pnf.ProductID)
	require.Equal(t, "wholesale", pnf.Tier)

	require.Empty(t, fx.repo.state.orders)
	require.Empty(t, fx.repo.state.invoices)
	require.Zero(t, fx.repo.state.counters[1], "no invoice number may be consumed before validation passes")
}

func TestCreateOrderMidTransactionFailureLeavesNoResidue(t *testing.T) {
	fx := newFixture(t)
	fx.repo.failOn = "ReplaceInvoiceLines"

	_, err := fx.service.Create(context.Background(), createReq())
	require.Error(t, err)

	require.Empty(t, fx.repo.state.orders)
	require.Empty(t, fx.repo.state.invoices)
	require.Empty(t, fx.repo.state.orderLines)
	require.Zero(t, fx.repo.state.counters[1])
	require.Empty(t, fx.notifier.events)
}

func updateReq(lines ...UpdateOrderLineReq) UpdateOrderRequest {
	return UpdateOrderRequest{
		TenantID:    1,
		PlannedDate: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Notes:       "updated",
		CourierIDs:  []int64{22},
		Lines:       lines,
	}
}

func TestUpdateOrderQuantityIncreaseEmitsStockOutDelta(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)

	updated, err := fx.service.Update(ctx, result.OrderID, updateReq(
		UpdateOrderLineReq{ProductID: 10, Qty: 5, UnitPrice: 1000},
	))
	require.NoError(t, err)
	require.Equal(t, float64(5000), updated.GrandTotal)

	require.Len(t, fx.repo.state.movements, 1)
	m := fx.repo.state.movements[0]
	require.Equal(t, int64(-3), m.QtyDelta)
	require.Equal(t, stock.MovementEditOut, m.Type)
	require.NotNil(t, m.OrderID)
	require.Equal(t, result.OrderID, *m.OrderID)
	require.Equal(t, int64(47), fx.repo.state.stockQty[10])

	invoice := fx.repo.state.invoices[result.InvoiceID]
	require.Equal(t, float64(5000), invoice.GrandTotal)
	require.Equal(t, float64(5000), invoice.BalanceDue)
	require.Equal(t, []int64{22}, fx.repo.state.courierLinks[result.OrderID])
}

func TestUpdateOrderRemovedItemRestoresStock(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	req := createReq()
	req.Lines = []CreateOrderLineReq{
		{ProductID: 10, Qty: 2},
		{ProductID: 11, Qty: 4},
	}
	result, err := fx.service.Create(ctx, req)
	require.NoError(t, err)

	_, err = fx.service.Update(ctx, result.OrderID, updateReq(
		UpdateOrderLineReq{ProductID: 10, Qty: 2, UnitPrice: 1000},
	))
	require.NoError(t, err)

	require.Len(t, fx.repo.state.movements, 1)
	m := fx.repo.state.movements[0]
	require.Equal(t, int64(11), m.ProductID)
	require.Equal(t, int64(4), m.QtyDelta)
	require.Equal(t, stock.MovementEditIn, m.Type)
	require.Equal(t, "item removed", m.Reason)
	require.Equal(t, int64(54), fx.repo.state.stockQty[11])
}

func TestUpdateOrderNewItemEmitsFullStockOut(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)

	_, err = fx.service.Update(ctx, result.OrderID, updateReq(
		UpdateOrderLineReq{ProductID: 10, Qty: 2, UnitPrice: 1000},
		UpdateOrderLineReq{ProductID: 11, Qty: 3, UnitPrice: 250},
	))
	require.NoError(t, err)

	require.Len(t, fx.repo.state.movements, 1)
	m := fx.repo.state.movements[0]
	require.Equal(t, int64(11), m.ProductID)
	require.Equal(t, int64(-3), m.QtyDelta)
	require.Equal(t, stock.MovementEditOut, m.Type)
	require.Equal(t, "item added", m.Reason)
	require.Equal(t, int64(47), fx.repo.state.stockQty[11])
}

func TestUpdateOrderBalanceDueAccountsForPayments(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)
	fx.repo.state.payments[result.OrderID] = []float64{500}

	_, err = fx.service.Update(ctx, result.OrderID, updateReq(
		UpdateOrderLineReq{ProductID: 10, Qty: 3, UnitPrice: 1000},
	))
	require.NoError(t, err)

	invoice := fx.repo.state.invoices[result.InvoiceID]
	require.Equal(t, float64(3000), invoice.GrandTotal)
	require.Equal(t, float64(2500), invoice.BalanceDue)
}

func TestDispatchDecrementsStockPerSaleLine(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	req := createReq()
	req.Lines = []CreateOrderLineReq{
		{ProductID: 10, Qty: 2},
		{ProductID: 11, Qty: 4},
	}
	result, err := fx.service.Create(ctx, req)
	require.NoError(t, err)

	order, err := fx.service.Dispatch(ctx, 1, result.OrderID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, order.Status)

	require.Len(t, fx.repo.state.movements, 2)
	for _, m := range fx.repo.state.movements {
		require.Equal(t, stock.MovementDispatchOut, m.Type)
		require.Negative(t, m.QtyDelta)
	}
	require.Equal(t, int64(48), fx.repo.state.stockQty[10])
	require.Equal(t, int64(46), fx.repo.state.stockQty[11])

	_, err = fx.service.Dispatch(ctx, 1, result.OrderID)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestDispatchInsufficientStockRollsEverythingBack(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.repo.state.stockQty[10] = 1

	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)

	_, err = fx.service.Dispatch(ctx, 1, result.OrderID)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.ErrorIs(t, err, shared.ErrConflict)

	order := fx.repo.state.orders[result.OrderID]
	require.Equal(t, StatusDraft, order.Status, "status change must roll back with the failed movement")
	require.Empty(t, fx.repo.state.movements)
	require.Equal(t, int64(1), fx.repo.state.stockQty[10])
}

func TestCompleteRequiresSentStatus(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)

	_, err = fx.service.Complete(ctx, 1, result.OrderID)
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = fx.service.Dispatch(ctx, 1, result.OrderID)
	require.NoError(t, err)
	order, err := fx.service.Complete(ctx, 1, result.OrderID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, order.Status)
}

func TestDeleteDraftOrderEmitsNoMovements(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(ctx, 1, result.OrderID))

	require.Empty(t, fx.repo.state.orders)
	require.Empty(t, fx.repo.state.invoices)
	require.Empty(t, fx.repo.state.movements)
	require.Equal(t, int64(50), fx.repo.state.stockQty[10])
}

// Lifecycle scenario: create 2 units at 1000, dispatch, edit to 5 units,
// delete while sent. The deletion restores the full current quantity and
// leaves no dependent row behind.
func TestDeleteSentOrderRestoresStockAndPurgesDependents(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, createReq())
	require.NoError(t, err)
	require.Equal(t, float64(2000), result.GrandTotal)

	_, err = fx.service.Dispatch(ctx, 1, result.OrderID)
	require.NoError(t, err)
	require.Equal(t, int64(48), fx.repo.state.stockQty[10])

	updated, err := fx.service.Update(ctx, result.OrderID, updateReq(
		UpdateOrderLineReq{ProductID: 10, Qty: 5, UnitPrice: 1000},
	))
	require.NoError(t, err)
	require.Equal(t, float64(5000), updated.GrandTotal)
	require.Equal(t, int64(45), fx.repo.state.stockQty[10])

	require.NoError(t, fx.service.Delete(ctx, 1, result.OrderID))

	require.Empty(t, fx.repo.state.orders)
	require.Empty(t, fx.repo.state.orderLines)
	require.Empty(t, fx.repo.state.invoices)
	require.Empty(t, fx.repo.state.invoiceLines)
	require.Empty(t, fx.repo.state.courierLinks)
	require.Empty(t, fx.repo.state.payments)

	require.Len(t, fx.repo.state.movements, 1, "order-referencing movements are purged, the restitution entry survives")
	m := fx.repo.state.movements[0]
	require.Equal(t, stock.MovementDeletionIn, m.Type)
	require.Equal(t, int64(5), m.QtyDelta)
	require.Nil(t, m.OrderID)
	require.Contains(t, m.Reason, fmt.Sprintf("invoice %d", result.InvoiceNumber))
	require.Equal(t, int64(50), fx.repo.state.stockQty[10], "stock returns to its pre-order level")
}

func TestDeleteUnknownOrder(t *testing.T) {
	fx := newFixture(t)
	err := fx.service.Delete(context.Background(), 1, 404)
	require.Error(t, err)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
