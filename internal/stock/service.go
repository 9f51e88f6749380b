package stock

import (
	"context"
	"fmt"

	"github.com/meridian-oms/meridian-oms/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, tenantID, productID int64, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates manual stock adjustments and ledger reads.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Adjust posts a manual correction movement.
func (s *Service) Adjust(ctx context.Context, req AdjustmentRequest) (Movement, int64, error) {
	movementType := MovementAdjustIn
	if req.QtyDelta < 0 {
		movementType = MovementAdjustOut
	}
	m := Movement{
		TenantID:  req.TenantID,
		ProductID: req.ProductID,
		QtyDelta:  req.QtyDelta,
		Type:      movementType,
		Reason:    req.Reason,
		CreatedBy: req.ActorID,
	}

	var newQty int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		qty, err := tx.Apply(ctx, m)
		if err != nil {
			return err
		}
		newQty = qty
		return nil
	})
	if err != nil {
		return Movement{}, 0, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  req.ActorID,
			TenantID: req.TenantID,
			Action:   fmt.Sprintf("stock:%s", movementType),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("product:%d", req.ProductID),
			Meta: map[string]any{
				"qty_delta": req.QtyDelta,
				"reason":    req.Reason,
			},
		})
	}
	return m, newQty, nil
}

// Movements lists ledger entries for a product.
func (s *Service) Movements(ctx context.Context, tenantID, productID int64, limit int) ([]Movement, error) {
	if tenantID == 0 || productID == 0 {
		return nil, fmt.Errorf("stock: tenant and product required: %w", shared.ErrValidation)
	}
	return s.repo.ListMovements(ctx, tenantID, productID, limit)
}
