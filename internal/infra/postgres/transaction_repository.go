package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository implementa gateway.TransactionRepository usando pgx/v5.
type TransactionRepository struct {
	db dbtx
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: pool}
}

// txDetails guarda a variante (deposit/swap/payout) como JSONB.
type txDetails struct {
	Deposit *domain.DepositDetails `json:"deposit,omitempty"`
	Swap    *domain.SwapDetails    `json:"swap,omitempty"`
	Payout  *domain.PayoutDetails  `json:"payout,omitempty"`
}

const transactionColumns = `id, client_id, reference, kind, amount, currency,
	from_currency, to_currency, rate, status, held, failed_step, failure_reason,
	metadata, details, created_at, updated_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	metadata, details, err := encodeTransaction(tx)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		tx.ID, tx.ClientID, tx.Reference, string(tx.Kind), tx.Amount, tx.Currency,
		tx.FromCurrency, tx.ToCurrency, tx.Rate, string(tx.Status), tx.Held,
		tx.FailedStep, tx.FailureReason, metadata, details, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

// GetAwaitingDeposit localiza a intenção de payout pelo endereço de depósito
// emitido. Só transações ainda aguardando o depósito contam.
func (r *TransactionRepository) GetAwaitingDeposit(ctx context.Context, depositAddress string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE details->'payout'->>'deposit_address' = $1
		  AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		depositAddress, string(domain.StatusDepositRequested),
	)
	return scanTransaction(row)
}

// GetByIDForUpdate trava a linha até o fim da transação de banco corrente.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	return scanTransaction(row)
}

// AcquireSettlementLock serializa reentradas concorrentes do orquestrador.
// pg_advisory_xact_lock solta sozinho no commit/rollback.
func (r *TransactionRepository) AcquireSettlementLock(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, id)
	if err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	metadata, details, err := encodeTransaction(tx)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET amount = $2, currency = $3, from_currency = $4, to_currency = $5,
			rate = $6, status = $7, held = $8, failed_step = $9,
			failure_reason = $10, metadata = $11, details = $12, updated_at = $13
		WHERE id = $1`,
		tx.ID, tx.Amount, tx.Currency, tx.FromCurrency, tx.ToCurrency,
		tx.Rate, string(tx.Status), tx.Held, tx.FailedStep,
		tx.FailureReason, metadata, details, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) SetHold(ctx context.Context, id string, held bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET held = $2, updated_at = now() WHERE id = $1`, id, held)
	if err != nil {
		return fmt.Errorf("failed to set hold flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// WithTx retorna uma cópia do repositório usando uma transação específica
func (r *TransactionRepository) WithTx(tx gateway.TransactionObject) gateway.TransactionRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &TransactionRepository{db: pgTx}
}

func encodeTransaction(tx *domain.Transaction) (metadata, details []byte, err error) {
	metadata, err = json.Marshal(tx.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	details, err = json.Marshal(txDetails{Deposit: tx.Deposit, Swap: tx.Swap, Payout: tx.Payout})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal details: %w", err)
	}
	return metadata, details, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		kind      string
		status    string
		metadata  []byte
		details   []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&tx.ID, &tx.ClientID, &tx.Reference, &kind, &tx.Amount, &tx.Currency,
		&tx.FromCurrency, &tx.ToCurrency, &tx.Rate, &status, &tx.Held,
		&tx.FailedStep, &tx.FailureReason, &metadata, &details, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Kind = domain.Kind(kind)
	tx.Status = domain.Status(status)
	tx.CreatedAt = createdAt.Time
	tx.UpdatedAt = updatedAt.Time

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if len(details) > 0 {
		var d txDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal details: %w", err)
		}
		tx.Deposit, tx.Swap, tx.Payout = d.Deposit, d.Swap, d.Payout
	}
	return &tx, nil
}
