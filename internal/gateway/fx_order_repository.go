package gateway

import (
	"context"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// FXOrderRepository persiste as conversões executadas (imutáveis).
type FXOrderRepository interface {
	Create(ctx context.Context, order *domain.FXOrder) error
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.FXOrder, error)
	WithTx(tx TransactionObject) FXOrderRepository
}
