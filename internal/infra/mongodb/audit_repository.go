package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// SettlementAudit é o documento de auditoria de uma transição de estado.
// Usamos tags 'bson' em vez de 'json'.
type SettlementAudit struct {
	ID            string    `bson:"_id,omitempty"`
	TransactionID string    `bson:"transaction_id"`
	Reference     string    `bson:"reference"`
	FromStatus    string    `bson:"from_status"`
	ToStatus      string    `bson:"to_status"`
	Step          string    `bson:"step,omitempty"`
	Amount        float64   `bson:"amount"`
	Currency      string    `bson:"currency"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

// AlertAudit é o documento de auditoria de um alerta de risco.
type AlertAudit struct {
	ID            string    `bson:"_id,omitempty"`
	TransactionID string    `bson:"transaction_id"`
	ScreeningID   string    `bson:"screening_id"`
	Severity      string    `bson:"severity"`
	Description   string    `bson:"description"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

type AuditRepository struct {
	settlements *mongo.Collection
	alerts      *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, dbName string) *AuditRepository {
	db := client.Database(dbName)
	return &AuditRepository{
		settlements: db.Collection("settlement_audit"),
		alerts:      db.Collection("alert_audit"),
	}
}

func (r *AuditRepository) SaveTransition(ctx context.Context, audit SettlementAudit) error {
	audit.ProcessedAt = time.Now()
	if _, err := r.settlements.InsertOne(ctx, audit); err != nil {
		return fmt.Errorf("failed to insert settlement audit: %w", err)
	}
	return nil
}

func (r *AuditRepository) SaveAlert(ctx context.Context, audit AlertAudit) error {
	audit.ProcessedAt = time.Now()
	if _, err := r.alerts.InsertOne(ctx, audit); err != nil {
		return fmt.Errorf("failed to insert alert audit: %w", err)
	}
	return nil
}
