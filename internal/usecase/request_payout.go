package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/google/uuid"
)

// RequestPayoutInput é a intenção de payout de um cliente verificado:
// ele vai depositar cripto e receber fiat na conta bancária indicada.
type RequestPayoutInput struct {
	ClientID       string
	Network        string
	Currency       string
	Amount         float64
	PayoutCurrency string
	Recipient      domain.Recipient
}

type RequestPayoutOutput struct {
	TransactionID  string
	Reference      string
	DepositAddress string
	Status         domain.Status
}

// RequestPayoutUseCase cria a Transaction (variante payout) e pede ao serviço
// de custódia um endereço de depósito. O depósito em si é detectado pelo
// colaborador on-chain, que então alimenta o orquestrador.
type RequestPayoutUseCase struct {
	transactionRepo gateway.TransactionRepository
	verifier        gateway.ClientVerifier
	custody         gateway.CustodyClient
	eventPublisher  gateway.EventPublisher
	now             func() time.Time
}

func NewRequestPayout(
	transactionRepo gateway.TransactionRepository,
	verifier gateway.ClientVerifier,
	custody gateway.CustodyClient,
	publisher gateway.EventPublisher,
) *RequestPayoutUseCase {
	return &RequestPayoutUseCase{
		transactionRepo: transactionRepo,
		verifier:        verifier,
		custody:         custody,
		eventPublisher:  publisher,
		now:             time.Now,
	}
}

// WithClock troca o relógio (uso em testes).
func (u *RequestPayoutUseCase) WithClock(now func() time.Time) *RequestPayoutUseCase {
	u.now = now
	return u
}

func (u *RequestPayoutUseCase) Execute(ctx context.Context, input RequestPayoutInput) (*RequestPayoutOutput, error) {
	if input.ClientID == "" || input.Network == "" || input.Currency == "" {
		return nil, fmt.Errorf("client, network and currency are required: %w", domain.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := input.Recipient.Validate(); err != nil {
		return nil, fmt.Errorf("recipient is incomplete: %w", err)
	}

	if u.verifier != nil {
		eligible, err := u.verifier.IsEligible(ctx, input.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify client eligibility: %w", err)
		}
		if !eligible {
			return nil, fmt.Errorf("client %s: %w", input.ClientID, domain.ErrClientNotEligible)
		}
	}

	address, err := u.custody.IssueDepositAddress(ctx, input.ClientID, input.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to issue deposit address: %w", err)
	}

	now := u.now()
	tx := &domain.Transaction{
		ID:           uuid.NewString(),
		ClientID:     input.ClientID,
		Reference:    NewReference(),
		Kind:         domain.KindPayout,
		Amount:       input.Amount,
		Currency:     input.Currency,
		FromCurrency: input.Currency,
		ToCurrency:   input.PayoutCurrency,
		Status:       domain.StatusDepositRequested,
		Payout: &domain.PayoutDetails{
			Recipient:      input.Recipient,
			DepositAddress: address,
			DepositNetwork: input.Network,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.transactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &RequestPayoutOutput{
		TransactionID:  tx.ID,
		Reference:      tx.Reference,
		DepositAddress: address,
		Status:         tx.Status,
	}, nil
}
