package domain

import (
	"strings"
	"time"
)

// SimulatedPayoutPrefix marca ids sintéticos de payout gerados pelo fallback
// simulado. Um id com esse prefixo nunca veio do rail de verdade.
const SimulatedPayoutPrefix = "sim_"

// Recipient identifica o beneficiário bancário do payout.
type Recipient struct {
	Name          string `json:"name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	Country       string `json:"country"`
}

// Validate exige o mínimo para despachar um payout: nome, conta e país.
func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" ||
		strings.TrimSpace(r.AccountNumber) == "" ||
		strings.TrimSpace(r.Country) == "" {
		return ErrValidation
	}
	return nil
}

// PayoutRequest é a transferência bancária de saída ligada a uma Transaction.
// Criada só depois dos fundos confirmados convertidos (ou pass-through).
type PayoutRequest struct {
	ID            string
	TransactionID string
	Amount        float64
	Currency      string
	Recipient     Recipient
	ProviderID    string
	Status        string
	Simulated     bool
	CreatedAt     time.Time
}

// IsSimulatedPayoutID reconhece ids do fallback simulado.
func IsSimulatedPayoutID(id string) bool {
	return strings.HasPrefix(id, SimulatedPayoutPrefix)
}
