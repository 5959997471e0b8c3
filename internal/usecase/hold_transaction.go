package usecase

import (
	"context"
	"fmt"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
)

// HoldTransactionUseCase liga/desliga a intervenção manual. Com o hold
// ativo o orquestrador recusa qualquer avanço (TransactionHeld).
type HoldTransactionUseCase struct {
	transactionRepo gateway.TransactionRepository
}

func NewHoldTransaction(transactionRepo gateway.TransactionRepository) *HoldTransactionUseCase {
	return &HoldTransactionUseCase{transactionRepo: transactionRepo}
}

func (u *HoldTransactionUseCase) Execute(ctx context.Context, transactionID string, held bool) error {
	if transactionID == "" {
		return fmt.Errorf("transaction id is required: %w", domain.ErrValidation)
	}

	tx, err := u.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Status.IsTerminal() {
		// Estado terminal não tem o que segurar nem soltar.
		return fmt.Errorf("transaction %s is terminal: %w", transactionID, domain.ErrInvalidTransition)
	}

	if err := u.transactionRepo.SetHold(ctx, transactionID, held); err != nil {
		return fmt.Errorf("failed to update hold flag: %w", err)
	}
	return nil
}
