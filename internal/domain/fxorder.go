package domain

import "time"

// FXOrder é uma conversão de moeda ligada a uma Transaction.
// Criada só quando a transação chega em "pronta para converter";
// imutável depois de executada (fica para reconciliação).
type FXOrder struct {
	ID              string
	TransactionID   string
	FromCurrency    string
	ToCurrency      string
	FromAmount      float64
	ToAmount        float64
	Rate            float64
	ProviderOrderID string
	ProviderQuoteID string
	Status          string
	ExecutedAt      time.Time
}
