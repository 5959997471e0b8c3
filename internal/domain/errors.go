package domain

import "errors"

// Taxonomia de erros do pipeline. Os clients de provider normalizam qualquer
// erro bruto (HTTP, timeout, payload inválido) para um destes antes de devolver
// ao orquestrador — o orquestrador nunca inspeciona o formato cru do provider.
var (
	ErrValidation           = errors.New("invalid input")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrProviderRejected     = errors.New("provider rejected the request")
	ErrQuoteExpired         = errors.New("quote expired")
	ErrScreeningUnavailable = errors.New("screening provider unavailable")
	ErrTransactionHeld      = errors.New("transaction held for manual intervention")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrFXOrderNotFound      = errors.New("fx order not found")
	ErrPayoutNotFound       = errors.New("payout request not found")
	ErrClientNotEligible    = errors.New("client is not eligible for settlement")
)
