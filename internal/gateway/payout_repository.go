package gateway

import (
	"context"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// PayoutRepository persiste as requisições de payout aceitas pelo rail.
type PayoutRepository interface {
	Create(ctx context.Context, p *domain.PayoutRequest) error
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.PayoutRequest, error)
	WithTx(tx TransactionObject) PayoutRepository
}
