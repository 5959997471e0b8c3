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

// PayoutRepository persiste as requisições de payout aceitas pelo rail.
type PayoutRepository struct {
	db dbtx
}

func NewPayoutRepository(pool *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{db: pool}
}

func (r *PayoutRepository) Create(ctx context.Context, p *domain.PayoutRequest) error {
	recipient, err := json.Marshal(p.Recipient)
	if err != nil {
		return fmt.Errorf("failed to marshal recipient: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO payout_requests (id, transaction_id, amount, currency,
			recipient, provider_id, status, simulated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.TransactionID, p.Amount, p.Currency,
		recipient, p.ProviderID, p.Status, p.Simulated, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payout request: %w", err)
	}
	return nil
}

func (r *PayoutRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.PayoutRequest, error) {
	var (
		p         domain.PayoutRequest
		recipient []byte
		createdAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, transaction_id, amount, currency, recipient, provider_id, status, simulated, created_at
		FROM payout_requests WHERE transaction_id = $1`, transactionID).Scan(
		&p.ID, &p.TransactionID, &p.Amount, &p.Currency, &recipient,
		&p.ProviderID, &p.Status, &p.Simulated, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout request: %w", err)
	}
	if len(recipient) > 0 {
		if err := json.Unmarshal(recipient, &p.Recipient); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipient: %w", err)
		}
	}
	p.CreatedAt = createdAt.Time
	return &p, nil
}

func (r *PayoutRepository) WithTx(tx gateway.TransactionObject) gateway.PayoutRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &PayoutRepository{db: pgTx}
}
