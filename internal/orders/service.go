package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-oms/meridian-oms/internal/customers"
	"github.com/meridian-oms/meridian-oms/internal/invoicing"
	"github.com/meridian-oms/meridian-oms/internal/shared"
	"github.com/meridian-oms/meridian-oms/internal/stock"
)

// RepositoryPort is the persistence surface the engine needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, tenantID, orderID int64) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, error)
}

// CustomerDirectory resolves customers for tenant and tier checks.
type CustomerDirectory interface {
	Get(ctx context.Context, tenantID, id int64) (*customers.Customer, error)
}

// PriceResolver returns the authoritative unit price for a product in a tier.
type PriceResolver interface {
	Resolve(ctx context.Context, tenantID, productID int64, tier string) (float64, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Order event kinds published after lifecycle operations commit.
const (
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventOrderDispatched = "order.dispatched"
	EventOrderCompleted  = "order.completed"
	EventOrderDeleted    = "order.deleted"
)

// OrderEvent describes a committed lifecycle change for notification fan-out.
type OrderEvent struct {
	Kind          string  `json:"kind"`
	TenantID      int64   `json:"tenant_id"`
	OrderID       int64   `json:"order_id"`
	CustomerID    int64   `json:"customer_id"`
	InvoiceNumber int64   `json:"invoice_number"`
	GrandTotal    float64 `json:"grand_total"`
}

// Notifier fans lifecycle events out to interested parties. Notification is
// best-effort: a failed enqueue never fails the operation that produced it.
type Notifier interface {
	NotifyOrderEvent(ctx context.Context, event OrderEvent) error
}

// Service is the order lifecycle engine.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	customers CustomerDirectory
	prices    PriceResolver
	audit     AuditRecorder
	notifier  Notifier
}

// NewService builds a Service. audit and notifier may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, dir CustomerDirectory, prices PriceResolver, audit AuditRecorder, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, customers: dir, prices: prices, audit: audit, notifier: notifier}
}

// Create validates and persists a new order together with its invoice, line
// items and courier links in one transaction. Every line price is resolved
// before the first write, so a missing price leaves no residue. Stock is not
// touched at creation; it moves at dispatch.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	cust, err := s.customers.Get(ctx, req.TenantID, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("orders: customer %d: %w", req.CustomerID, err)
	}

	lines := make([]LineItem, 0, len(req.Lines))
	var subtotal float64
	for _, lr := range req.Lines {
		price, err := s.prices.Resolve(ctx, req.TenantID, lr.ProductID, cust.PricingTier)
		if err != nil {
			return nil, err
		}
		itemType := ItemTypeSale
		if lr.ItemType != "" {
			itemType = ItemType(lr.ItemType)
		}
		lineTotal := float64(lr.Qty) * price
		subtotal += lineTotal
		lines = append(lines, LineItem{
			TenantID:  req.TenantID,
			ProductID: lr.ProductID,
			Qty:       lr.Qty,
			UnitPrice: price,
			LineTotal: lineTotal,
			ItemType:  itemType,
		})
	}
	grandTotal := subtotal

	var result CreateOrderResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextInvoiceNumber(ctx, req.TenantID)
		if err != nil {
			return err
		}
		order := &Order{
			TenantID:      req.TenantID,
			CustomerID:    req.CustomerID,
			PlannedDate:   req.PlannedDate,
			Notes:         req.Notes,
			CreatorID:     req.CreatorID,
			Status:        StatusDraft,
			PaymentStatus: PaymentUnpaid,
			InvoiceNumber: number,
			Subtotal:      subtotal,
			GrandTotal:    grandTotal,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("orders: insert order: %w", err)
		}
		if err := tx.ReplaceCourierLinks(ctx, req.TenantID, order.ID, req.CourierIDs); err != nil {
			return err
		}
		invoice := &invoicing.Invoice{
			TenantID:      req.TenantID,
			OrderID:       order.ID,
			CustomerID:    req.CustomerID,
			InvoiceNumber: number,
			Subtotal:      subtotal,
			GrandTotal:    grandTotal,
			BalanceDue:    grandTotal,
			Notes:         req.Notes,
		}
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return fmt.Errorf("orders: insert invoice: %w", err)
		}
		if err := tx.ReplaceOrderLines(ctx, req.TenantID, order.ID, lines); err != nil {
			return err
		}
		if err := tx.ReplaceInvoiceLines(ctx, req.TenantID, order.ID, lines); err != nil {
			return err
		}
		result = CreateOrderResult{
			OrderID:       order.ID,
			InvoiceID:     invoice.ID,
			InvoiceNumber: number,
			GrandTotal:    grandTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req.TenantID, "order.create", result.OrderID, map[string]any{
		"invoice_number": result.InvoiceNumber,
		"grand_total":    result.GrandTotal,
	})
	s.notify(ctx, OrderEvent{
		Kind:          EventOrderCreated,
		TenantID:      req.TenantID,
		OrderID:       result.OrderID,
		CustomerID:    req.CustomerID,
		InvoiceNumber: result.InvoiceNumber,
		GrandTotal:    result.GrandTotal,
	})
	return &result, nil
}

// Update replaces the order's header, courier links and line items wholesale,
// recomputes the invoice, and reconciles stock against the previous line
// items. Line prices are caller-supplied at edit time. Everything happens in
// one transaction.
func (s *Service) Update(ctx context.Context, orderID int64, req UpdateOrderRequest) (*Order, error) {
	newLines := make([]LineItem, 0, len(req.Lines))
	var subtotal float64
	for _, lr := range req.Lines {
		itemType := ItemTypeSale
		if lr.ItemType != "" {
			itemType = ItemType(lr.ItemType)
		}
		lineTotal := float64(lr.Qty) * lr.UnitPrice
		subtotal += lineTotal
		newLines = append(newLines, LineItem{
			OrderID:   orderID,
			TenantID:  req.TenantID,
			ProductID: lr.ProductID,
			Qty:       lr.Qty,
			UnitPrice: lr.UnitPrice,
			LineTotal: lineTotal,
			ItemType:  itemType,
		})
	}
	grandTotal := subtotal

	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		before, err := tx.GetOrderForUpdate(ctx, req.TenantID, orderID)
		if err != nil {
			return err
		}
		after := *before
		after.PlannedDate = req.PlannedDate
		after.Notes = req.Notes
		after.Subtotal = subtotal
		after.GrandTotal = grandTotal
		after.CourierIDs = req.CourierIDs
		after.Lines = newLines

		if err := tx.UpdateOrderHeader(ctx, &after); err != nil {
			return err
		}
		if err := tx.ReplaceCourierLinks(ctx, req.TenantID, orderID, req.CourierIDs); err != nil {
			return err
		}
		if err := tx.ReplaceOrderLines(ctx, req.TenantID, orderID, newLines); err != nil {
			return err
		}
		if err := tx.ReplaceInvoiceLines(ctx, req.TenantID, orderID, newLines); err != nil {
			return err
		}
		if err := tx.UpdateInvoiceForOrder(ctx, req.TenantID, orderID, subtotal, grandTotal, req.Notes); err != nil {
			return err
		}
		for _, m := range reconcileMovements(before, newLines) {
			if _, err := tx.ApplyMovement(ctx, m); err != nil {
				return err
			}
		}
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req.TenantID, "order.update", orderID, map[string]any{
		"grand_total": grandTotal,
	})
	s.notify(ctx, OrderEvent{
		Kind:          EventOrderUpdated,
		TenantID:      req.TenantID,
		OrderID:       orderID,
		CustomerID:    updated.CustomerID,
		InvoiceNumber: updated.InvoiceNumber,
		GrandTotal:    grandTotal,
	})
	return updated, nil
}

// reconcileMovements compares old and new sale lines by product id and
// produces the compensating ledger entries an edit requires. A product absent
// from the new set gets its old quantity back; a product only in the new set
// is stocked out in full; a shared product moves by the quantity delta.
func reconcileMovements(before *Order, newLines []LineItem) []stock.Movement {
	oldQty := make(map[int64]int64)
	for _, li := range before.Lines {
		if li.ItemType != ItemTypeSale {
			continue
		}
		oldQty[li.ProductID] += li.Qty
	}
	newQty := make(map[int64]int64)
	var productOrder []int64
	for _, li := range newLines {
		if li.ItemType != ItemTypeSale {
			continue
		}
		if _, seen := newQty[li.ProductID]; !seen {
			productOrder = append(productOrder, li.ProductID)
		}
		newQty[li.ProductID] += li.Qty
	}

	orderID := before.ID
	var out []stock.Movement
	for _, productID := range productOrder {
		old, existed := oldQty[productID]
		delta := newQty[productID] - old
		switch {
		case !existed:
			out = append(out, stock.Movement{
				TenantID:  before.TenantID,
				ProductID: productID,
				OrderID:   &orderID,
				QtyDelta:  -newQty[productID],
				Type:      stock.MovementEditOut,
				Reason:    "item added",
			})
		case delta > 0:
			out = append(out, stock.Movement{
				TenantID:  before.TenantID,
				ProductID: productID,
				OrderID:   &orderID,
				QtyDelta:  -delta,
				Type:      stock.MovementEditOut,
				Reason:    "quantity increased",
			})
		case delta < 0:
			out = append(out, stock.Movement{
				TenantID:  before.TenantID,
				ProductID: productID,
				OrderID:   &orderID,
				QtyDelta:  -delta,
				Type:      stock.MovementEditIn,
				Reason:    "quantity decreased",
			})
		}
	}
	for _, li := range before.Lines {
		if li.ItemType != ItemTypeSale {
			continue
		}
		if _, kept := newQty[li.ProductID]; kept {
			continue
		}
		out = append(out, stock.Movement{
			TenantID:  before.TenantID,
			ProductID: li.ProductID,
			OrderID:   &orderID,
			QtyDelta:  li.Qty,
			Type:      stock.MovementEditIn,
			Reason:    "item removed",
		})
	}
	return out
}

// Dispatch moves a draft order to sent and decrements stock for every
// sale-type line item, all in one transaction.
func (s *Service) Dispatch(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	var dispatched *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("orders: order %d is %s, only draft orders can be dispatched: %w",
				orderID, order.Status, shared.ErrConflict)
		}
		if err := tx.SetOrderStatus(ctx, tenantID, orderID, StatusSent); err != nil {
			return err
		}
		oid := order.ID
		for _, li := range order.Lines {
			if li.ItemType != ItemTypeSale {
				continue
			}
			_, err := tx.ApplyMovement(ctx, stock.Movement{
				TenantID:  tenantID,
				ProductID: li.ProductID,
				OrderID:   &oid,
				QtyDelta:  -li.Qty,
				Type:      stock.MovementDispatchOut,
				Reason:    "order dispatched",
			})
			if err != nil {
				return err
			}
		}
		order.Status = StatusSent
		dispatched = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, "order.dispatch", orderID, nil)
	s.notify(ctx, OrderEvent{
		Kind:          EventOrderDispatched,
		TenantID:      tenantID,
		OrderID:       orderID,
		CustomerID:    dispatched.CustomerID,
		InvoiceNumber: dispatched.InvoiceNumber,
		GrandTotal:    dispatched.GrandTotal,
	})
	return dispatched, nil
}

// Complete marks a sent order as delivered. No stock effect.
func (s *Service) Complete(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	var completed *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusSent {
			return fmt.Errorf("orders: order %d is %s, only sent orders can be completed: %w",
				orderID, order.Status, shared.ErrConflict)
		}
		if err := tx.SetOrderStatus(ctx, tenantID, orderID, StatusCompleted); err != nil {
			return err
		}
		order.Status = StatusCompleted
		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, tenantID, "order.complete", orderID, nil)
	s.notify(ctx, OrderEvent{
		Kind:          EventOrderCompleted,
		TenantID:      tenantID,
		OrderID:       orderID,
		CustomerID:    completed.CustomerID,
		InvoiceNumber: completed.InvoiceNumber,
		GrandTotal:    completed.GrandTotal,
	})
	return completed, nil
}

// Delete removes the order and all dependent rows. If the order was already
// dispatched, sale-line stock is restored first; the restitution entries
// carry no order reference since every row referencing the order is purged,
// so the reason names the invoice instead.
func (s *Service) Delete(ctx context.Context, tenantID, orderID int64) error {
	var deleted *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			for _, li := range order.Lines {
				if li.ItemType != ItemTypeSale {
					continue
				}
				_, err := tx.ApplyMovement(ctx, stock.Movement{
					TenantID:  tenantID,
					ProductID: li.ProductID,
					QtyDelta:  li.Qty,
					Type:      stock.MovementDeletionIn,
					Reason:    fmt.Sprintf("restock after deletion of invoice %d", order.InvoiceNumber),
				})
				if err != nil {
					return err
				}
			}
		}
		if err := tx.PurgeOrder(ctx, tenantID, orderID); err != nil {
			return err
		}
		deleted = order
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, tenantID, "order.delete", orderID, map[string]any{
		"invoice_number": deleted.InvoiceNumber,
		"status":         string(deleted.Status),
	})
	s.notify(ctx, OrderEvent{
		Kind:          EventOrderDeleted,
		TenantID:      tenantID,
		OrderID:       orderID,
		CustomerID:    deleted.CustomerID,
		InvoiceNumber: deleted.InvoiceNumber,
		GrandTotal:    deleted.GrandTotal,
	})
	return nil
}

// Get returns one order with lines and courier links.
func (s *Service) Get(ctx context.Context, tenantID, orderID int64) (*Order, error) {
	return s.repo.Get(ctx, tenantID, orderID)
}

// List returns the tenant's orders.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) recordAudit(ctx context.Context, tenantID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if actor := shared.ActorFromContext(ctx); actor != nil {
		actorID = actor.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		TenantID: tenantID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err), slog.String("action", action))
	}
}

func (s *Service) notify(ctx context.Context, event OrderEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOrderEvent(ctx, event); err != nil {
		s.logger.Warn("order notification failed", slog.Any("error", err), slog.String("kind", event.Kind))
	}
}
