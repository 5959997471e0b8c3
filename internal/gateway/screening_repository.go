package gateway

import (
	"context"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// ScreeningRepository persiste os registros append-only de risco.
type ScreeningRepository interface {
	CreateScreening(ctx context.Context, s *domain.AMLScreening) error
	CreateAlert(ctx context.Context, a *domain.AMLAlert) error
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.AMLScreening, error)
	WithTx(tx TransactionObject) ScreeningRepository
}
