package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScreeningRepository persiste screenings e alertas. Screenings são
// append-only: não há UPDATE aqui de propósito.
type ScreeningRepository struct {
	db dbtx
}

func NewScreeningRepository(pool *pgxpool.Pool) *ScreeningRepository {
	return &ScreeningRepository{db: pool}
}

func (r *ScreeningRepository) CreateScreening(ctx context.Context, s *domain.AMLScreening) error {
	signals, err := json.Marshal(s.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO aml_screenings (id, transaction_id, address, network, risk_score,
			signals, blacklisted, provider_ref, check_type, pending, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.TransactionID, s.Address, s.Network, s.RiskScore,
		signals, s.Blacklisted, s.ProviderRef, string(s.CheckType), s.Pending, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create screening: %w", err)
	}
	return nil
}

func (r *ScreeningRepository) CreateAlert(ctx context.Context, a *domain.AMLAlert) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO aml_alerts (id, transaction_id, screening_id, severity, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.TransactionID, a.ScreeningID, string(a.Severity), string(a.Status), a.Description, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *ScreeningRepository) ListByTransaction(ctx context.Context, transactionID string) ([]domain.AMLScreening, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, transaction_id, address, network, risk_score, signals,
			blacklisted, provider_ref, check_type, pending, created_at
		FROM aml_screenings WHERE transaction_id = $1 ORDER BY created_at`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list screenings: %w", err)
	}
	defer rows.Close()

	var screenings []domain.AMLScreening
	for rows.Next() {
		var (
			s         domain.AMLScreening
			signals   []byte
			checkType string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.Address, &s.Network, &s.RiskScore,
			&signals, &s.Blacklisted, &s.ProviderRef, &checkType, &s.Pending, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan screening: %w", err)
		}
		s.CheckType = domain.CheckType(checkType)
		s.CreatedAt = createdAt.Time
		if len(signals) > 0 {
			if err := json.Unmarshal(signals, &s.Signals); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
			}
		}
		screenings = append(screenings, s)
	}
	return screenings, rows.Err()
}

func (r *ScreeningRepository) WithTx(tx gateway.TransactionObject) gateway.ScreeningRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &ScreeningRepository{db: pgTx}
}
