package payments

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/meridian-oms/meridian-oms/internal/orders"
	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// RepositoryPort is the persistence surface the ledger needs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByOrder(ctx context.Context, tenantID, orderID int64) ([]Payment, error)
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the payment ledger.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditRecorder
}

// NewService builds a Service. audit may be nil.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditRecorder) *Service {
	return &Service{logger: logger, repo: repo, audit: audit}
}

// Record inserts a payment and, in the same transaction, brings the invoice
// balance and the order's payment status in line with the new payment total.
// Overpayment is accepted; the balance simply goes negative.
func (s *Service) Record(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	var result RecordPaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		grandTotal, err := tx.GetOrderGrandTotal(ctx, req.TenantID, req.OrderID)
		if err != nil {
			return err
		}
		payment := &Payment{
			TenantID:  req.TenantID,
			OrderID:   req.OrderID,
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
			Notes:     req.Notes,
			CreatedBy: req.CreatedBy,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		totalPaid, err := tx.SumPayments(ctx, req.OrderID)
		if err != nil {
			return err
		}
		balance := grandTotal - totalPaid
		status := deriveStatus(totalPaid, grandTotal)
		if err := tx.UpdateInvoiceBalance(ctx, req.TenantID, req.OrderID, balance); err != nil {
			return err
		}
		if err := tx.SetOrderPaymentStatus(ctx, req.TenantID, req.OrderID, status); err != nil {
			return err
		}
		result = RecordPaymentResult{
			PaymentID:     payment.ID,
			TotalPaid:     totalPaid,
			BalanceDue:    balance,
			PaymentStatus: status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		var actorID int64
		if actor := shared.ActorFromContext(ctx); actor != nil {
			actorID = actor.UserID
		}
		auditErr := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			TenantID: req.TenantID,
			Action:   "payment.record",
			Entity:   "order",
			EntityID: strconv.FormatInt(req.OrderID, 10),
			Meta:     map[string]any{"amount": req.Amount, "payment_status": result.PaymentStatus},
		})
		if auditErr != nil {
			s.logger.Warn("audit record failed", slog.Any("error", auditErr))
		}
	}
	return &result, nil
}

// ListByOrder returns the order's payments.
func (s *Service) ListByOrder(ctx context.Context, tenantID, orderID int64) ([]Payment, error) {
	return s.repo.ListByOrder(ctx, tenantID, orderID)
}

func deriveStatus(totalPaid, grandTotal float64) string {
	switch {
	case totalPaid <= 0:
		return string(orders.PaymentUnpaid)
	case totalPaid < grandTotal:
		return string(orders.PaymentPartial)
	default:
		return string(orders.PaymentPaid)
	}
}
