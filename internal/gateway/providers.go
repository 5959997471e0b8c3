package gateway

import (
	"context"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// ScreeningResult é a resposta normalizada do provider de AML/KYT.
// Complete=false significa que o provider ainda está processando: não é
// sucesso nem falha, é um estado distinto que exige re-checagem depois.
type ScreeningResult struct {
	Complete    bool
	RiskScore   int
	Signals     map[string]int
	Blacklisted bool
	ProviderRef string
}

// ScreeningClient abstrai o provider de risco de endereços.
type ScreeningClient interface {
	Screen(ctx context.Context, address, network, priority string) (*ScreeningResult, error)
}

// QuoteSide indica se o amount cotado é o lado de origem ou de destino.
type QuoteSide string

const (
	QuoteSideSpend   QuoteSide = "spend"
	QuoteSideReceive QuoteSide = "receive"
)

// Quote é uma taxa comprometida pelo provider, válida por uma janela curta.
// Quotes são single-use: executar um id expirado falha e exige quote nova.
type Quote struct {
	ID         string
	Rate       float64
	FromAmount float64
	ToAmount   float64
	ExpiresAt  time.Time
}

// ExpiresIn devolve quanto tempo resta antes da quote vencer,
// para o chamador reagir antes do vencimento.
func (q Quote) ExpiresIn(now time.Time) time.Duration {
	return q.ExpiresAt.Sub(now)
}

// Conversion é o resultado de uma execução de quote.
type Conversion struct {
	ID         string
	QuoteID    string
	Status     string
	FromAmount float64
	ToAmount   float64
	Rate       float64
}

// ConversionBroker abstrai o provider de FX.
type ConversionBroker interface {
	RequestQuote(ctx context.Context, fromCurrency, toCurrency string, amount float64, side QuoteSide) (*Quote, error)
	ExecuteQuote(ctx context.Context, quoteID string) (*Conversion, error)
	// ExecuteSwap faz quote+execução, atômico do ponto de vista do chamador.
	ExecuteSwap(ctx context.Context, fromCurrency, toCurrency string, amount float64) (*Conversion, error)
}

// PayoutResult é a resposta normalizada do rail de payout.
type PayoutResult struct {
	ProviderID string
	Status     string
	Simulated  bool
}

// PayoutDispatcher abstrai o rail bancário. O reference do chamador é a
// chave de idempotência: repetir a chamada com o mesmo reference produz
// no máximo uma transferência de saída.
type PayoutDispatcher interface {
	CreatePayout(ctx context.Context, amount float64, currency string, recipient domain.Recipient, reference string) (*PayoutResult, error)
}

// CustodyClient abstrai o serviço de custódia/assinatura que emite
// endereços de depósito por cliente e rede.
type CustodyClient interface {
	IssueDepositAddress(ctx context.Context, clientID, network string) (string, error)
}

// ClientVerifier é a decisão do colaborador de onboarding/KYC:
// o pipeline confia nela e não re-deriva a elegibilidade.
type ClientVerifier interface {
	IsEligible(ctx context.Context, clientID string) (bool, error)
}
