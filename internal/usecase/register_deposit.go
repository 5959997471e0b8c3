package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/google/uuid"
)

// RegisterDepositInput é o payload do colaborador de detecção de depósito:
// chega aqui só depois do depósito confirmado on-chain.
//
// Quando TransactionID ou Reference vêm preenchidos (ou o Address bate com um
// endereço emitido pela custódia), o depósito confirma uma intenção de payout
// existente em vez de criar transação nova.
type RegisterDepositInput struct {
	TransactionID  string
	Reference      string
	ClientID       string
	Address        string
	Network        string
	TxHash         string
	Amount         float64
	Currency       string
	PayoutCurrency string
	Recipient      domain.Recipient
}

type RegisterDepositOutput struct {
	TransactionID string
	Reference     string
	Status        domain.Status
}

// RegisterDepositUseCase cria a Transaction (variante deposit) em
// DEPOSIT_RECEIVED. A elegibilidade do cliente vem do colaborador de KYC;
// o pipeline confia na decisão e não re-deriva nada.
type RegisterDepositUseCase struct {
	transactionRepo gateway.TransactionRepository
	verifier        gateway.ClientVerifier
	eventPublisher  gateway.EventPublisher
	now             func() time.Time
}

func NewRegisterDeposit(
	transactionRepo gateway.TransactionRepository,
	verifier gateway.ClientVerifier,
	publisher gateway.EventPublisher,
) *RegisterDepositUseCase {
	return &RegisterDepositUseCase{
		transactionRepo: transactionRepo,
		verifier:        verifier,
		eventPublisher:  publisher,
		now:             time.Now,
	}
}

// WithClock troca o relógio (uso em testes).
func (u *RegisterDepositUseCase) WithClock(now func() time.Time) *RegisterDepositUseCase {
	u.now = now
	return u
}

func (u *RegisterDepositUseCase) Execute(ctx context.Context, input RegisterDepositInput) (*RegisterDepositOutput, error) {
	if input.Address == "" || input.Network == "" || input.Currency == "" {
		return nil, fmt.Errorf("address, network and currency are required: %w", domain.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	// Primeiro tenta casar com uma intenção de payout aguardando depósito.
	existing, err := u.resolveAwaiting(ctx, input)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return u.confirmDeposit(ctx, existing, input)
	}

	if input.ClientID == "" {
		return nil, fmt.Errorf("client id is required: %w", domain.ErrValidation)
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

	now := u.now()
	tx := &domain.Transaction{
		ID:           uuid.NewString(),
		ClientID:     input.ClientID,
		Reference:    NewReference(),
		Kind:         domain.KindDeposit,
		Amount:       input.Amount,
		Currency:     input.Currency,
		FromCurrency: input.Currency,
		ToCurrency:   input.PayoutCurrency,
		Status:       domain.StatusDepositReceived,
		Deposit: &domain.DepositDetails{
			Address: input.Address,
			Network: input.Network,
			TxHash:  input.TxHash,
		},
		Payout:    &domain.PayoutDetails{Recipient: input.Recipient},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.transactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if u.eventPublisher != nil {
		event := TransitionEvent{
			TransactionID: tx.ID,
			Reference:     tx.Reference,
			FromStatus:    string(domain.StatusPending),
			ToStatus:      string(domain.StatusDepositReceived),
			Amount:        tx.Amount,
			Currency:      tx.Currency,
		}
		// Evento perdido não falha o registro do depósito.
		_ = u.eventPublisher.Publish(ctx, SettlementExchange, RoutingKeyTransitioned, event)
	}

	return &RegisterDepositOutput{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Status:        tx.Status,
	}, nil
}

// resolveAwaiting encontra a intenção de payout que este depósito confirma:
// pelo id quando o colaborador manda, senão pela referência, senão pelo
// endereço de depósito emitido. Sem match, o depósito é avulso e cria
// transação nova.
func (u *RegisterDepositUseCase) resolveAwaiting(ctx context.Context, input RegisterDepositInput) (*domain.Transaction, error) {
	switch {
	case input.TransactionID != "":
		return u.transactionRepo.GetByID(ctx, input.TransactionID)
	case input.Reference != "":
		return u.transactionRepo.GetByReference(ctx, input.Reference)
	default:
		tx, err := u.transactionRepo.GetAwaitingDeposit(ctx, input.Address)
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return tx, err
	}
}

// confirmDeposit comita DEPOSIT_REQUESTED -> DEPOSIT_RECEIVED na intenção
// existente, gravando os dados reais do depósito (valor observado on-chain,
// tx hash). Webhook duplicado é no-op: a transação já saiu do estado esperado.
func (u *RegisterDepositUseCase) confirmDeposit(ctx context.Context, tx *domain.Transaction, input RegisterDepositInput) (*RegisterDepositOutput, error) {
	if tx.Status != domain.StatusDepositRequested {
		return &RegisterDepositOutput{
			TransactionID: tx.ID,
			Reference:     tx.Reference,
			Status:        tx.Status,
		}, nil
	}
	if input.Currency != tx.Currency {
		return nil, fmt.Errorf("deposit currency %s does not match expected %s: %w",
			input.Currency, tx.Currency, domain.ErrValidation)
	}

	tx.Deposit = &domain.DepositDetails{
		Address: input.Address,
		Network: input.Network,
		TxHash:  input.TxHash,
	}
	// O valor que vale é o observado on-chain, não o prometido na intenção.
	tx.Amount = input.Amount

	if err := tx.AdvanceTo(domain.StatusDepositReceived, u.now()); err != nil {
		return nil, err
	}
	if err := u.transactionRepo.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to confirm deposit: %w", err)
	}

	if u.eventPublisher != nil {
		event := TransitionEvent{
			TransactionID: tx.ID,
			Reference:     tx.Reference,
			FromStatus:    string(domain.StatusDepositRequested),
			ToStatus:      string(domain.StatusDepositReceived),
			Amount:        tx.Amount,
			Currency:      tx.Currency,
		}
		_ = u.eventPublisher.Publish(ctx, SettlementExchange, RoutingKeyTransitioned, event)
	}

	return &RegisterDepositOutput{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Status:        tx.Status,
	}, nil
}

// NewReference gera o número de referência externo, compartilhável com o
// cliente (curto e legível, diferente do id interno).
func NewReference() string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return "TRX-" + short
}
