package gateway

import (
	"context"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// TransactionRepository persiste o aggregate root do pipeline.
// O UseCase só interage com isso, sem saber se é Postgres ou outro banco.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// GetAwaitingDeposit busca a transação em DEPOSIT_REQUESTED cujo endereço
	// de depósito emitido pela custódia é o dado. É como o webhook de detecção
	// encontra a intenção de payout quando não manda o id.
	GetAwaitingDeposit(ctx context.Context, depositAddress string) (*domain.Transaction, error)

	// GetByIDForUpdate trava a linha (SELECT ... FOR UPDATE) para que duas
	// entradas concorrentes no orquestrador não observem o mesmo estado.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Transaction, error)

	// AcquireSettlementLock toma o advisory lock por transação. Só tem efeito
	// dentro de uma transação de banco (pg_advisory_xact_lock) e serializa
	// reentradas concorrentes do orquestrador para o mesmo id.
	AcquireSettlementLock(ctx context.Context, id string) error

	// Save grava os campos mutáveis (status, valores, metadata, hold, falha).
	Save(ctx context.Context, tx *domain.Transaction) error

	SetHold(ctx context.Context, id string, held bool) error

	// WithTx permite que o repositório participe de uma transação iniciada
	// no nível superior. Retorna uma nova instância ligada àquela transação.
	WithTx(tx TransactionObject) TransactionRepository
}
