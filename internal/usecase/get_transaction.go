package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
)

// GetTransactionOutput é a visão do cliente final: só o status grosseiro.
// Erros crus de provider e detalhes de risco ficam do lado do operador.
type GetTransactionOutput struct {
	ID           string              `json:"id"`
	Reference    string              `json:"reference"`
	Kind         domain.Kind         `json:"kind"`
	Amount       float64             `json:"amount"`
	Currency     string              `json:"currency"`
	Rate         float64             `json:"rate,omitempty"`
	ClientStatus domain.ClientStatus `json:"status"`
}

type GetTransactionUseCase struct {
	transactionRepo gateway.TransactionRepository
}

func NewGetTransaction(transactionRepo gateway.TransactionRepository) *GetTransactionUseCase {
	return &GetTransactionUseCase{transactionRepo: transactionRepo}
}

func (u *GetTransactionUseCase) Execute(ctx context.Context, transactionID string) (*GetTransactionOutput, error) {
	tx, err := u.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	return &GetTransactionOutput{
		ID:           tx.ID,
		Reference:    tx.Reference,
		Kind:         tx.Kind,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		Rate:         tx.Rate,
		ClientStatus: tx.Status.Coarse(),
	}, nil
}
