package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FXOrderRepository persiste conversões executadas. Imutáveis: só INSERT.
type FXOrderRepository struct {
	db dbtx
}

func NewFXOrderRepository(pool *pgxpool.Pool) *FXOrderRepository {
	return &FXOrderRepository{db: pool}
}

func (r *FXOrderRepository) Create(ctx context.Context, order *domain.FXOrder) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO fx_orders (id, transaction_id, from_currency, to_currency,
			from_amount, to_amount, rate, provider_order_id, provider_quote_id, status, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		order.ID, order.TransactionID, order.FromCurrency, order.ToCurrency,
		order.FromAmount, order.ToAmount, order.Rate, order.ProviderOrderID,
		order.ProviderQuoteID, order.Status, order.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fx order: %w", err)
	}
	return nil
}

func (r *FXOrderRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.FXOrder, error) {
	var (
		order      domain.FXOrder
		executedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, transaction_id, from_currency, to_currency, from_amount,
			to_amount, rate, provider_order_id, provider_quote_id, status, executed_at
		FROM fx_orders WHERE transaction_id = $1`, transactionID).Scan(
		&order.ID, &order.TransactionID, &order.FromCurrency, &order.ToCurrency,
		&order.FromAmount, &order.ToAmount, &order.Rate, &order.ProviderOrderID,
		&order.ProviderQuoteID, &order.Status, &executedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFXOrderNotFound
		}
		return nil, fmt.Errorf("failed to get fx order: %w", err)
	}
	order.ExecutedAt = executedAt.Time
	return &order, nil
}

func (r *FXOrderRepository) WithTx(tx gateway.TransactionObject) gateway.FXOrderRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &FXOrderRepository{db: pgTx}
}
