package domain

import "time"

// Status é o único indicador de progresso visível fora do pipeline.
// Ele só anda para frente pelo grafo definido em transitions.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusDepositRequested    Status = "DEPOSIT_REQUESTED"
	StatusDepositReceived     Status = "DEPOSIT_RECEIVED"
	StatusScreeningInProgress Status = "SCREENING_IN_PROGRESS"
	StatusScreeningCleared    Status = "SCREENING_CLEARED"
	StatusScreeningFlagged    Status = "SCREENING_FLAGGED"
	StatusConversionRequested Status = "CONVERSION_REQUESTED"
	StatusSwapCompleted       Status = "SWAP_COMPLETED"
	StatusPayoutRequested     Status = "PAYOUT_REQUESTED"
	StatusPayoutCompleted     Status = "PAYOUT_COMPLETED"
	StatusFailed              Status = "FAILED"
)

// transitions define o grafo direcionado de estados.
// SCREENING_CLEARED -> SWAP_COMPLETED existe para o caso pass-through
// (moeda de depósito já é a moeda de payout, não há conversão).
var transitions = map[Status][]Status{
	StatusPending:             {StatusDepositRequested, StatusDepositReceived},
	StatusDepositRequested:    {StatusDepositReceived},
	StatusDepositReceived:     {StatusScreeningInProgress},
	StatusScreeningInProgress: {StatusScreeningCleared, StatusScreeningFlagged},
	StatusScreeningCleared:    {StatusConversionRequested, StatusSwapCompleted},
	StatusConversionRequested: {StatusSwapCompleted},
	StatusSwapCompleted:       {StatusPayoutRequested},
	StatusPayoutRequested:     {StatusPayoutCompleted},
}

// CanTransitionTo valida uma aresta do grafo. FAILED é alcançável de qualquer
// estado não-terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusFailed {
		return !s.IsTerminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal indica que o processamento automático parou de vez.
// SCREENING_FLAGGED é terminal para automação: só um override manual
// de operador (fora deste pipeline) destrava a transação.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusScreeningFlagged, StatusPayoutCompleted, StatusFailed:
		return true
	}
	return false
}

// ClientStatus é o status grosseiro exposto ao cliente final.
// Detalhes de risco e erros de provider são visíveis só para operadores.
type ClientStatus string

const (
	ClientStatusPending        ClientStatus = "pending"
	ClientStatusProcessing     ClientStatus = "processing"
	ClientStatusCompleted      ClientStatus = "completed"
	ClientStatusNeedsAttention ClientStatus = "needs_attention"
)

func (s Status) Coarse() ClientStatus {
	switch s {
	case StatusPending, StatusDepositRequested:
		return ClientStatusPending
	case StatusPayoutCompleted:
		return ClientStatusCompleted
	case StatusScreeningFlagged, StatusFailed:
		return ClientStatusNeedsAttention
	default:
		return ClientStatusProcessing
	}
}

// Kind discrimina a variante da transação (conjunto fechado).
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindSwap    Kind = "swap"
	KindPayout  Kind = "payout"
)

// DepositDetails são os campos obrigatórios da variante deposit.
type DepositDetails struct {
	Address string `json:"address"`
	Network string `json:"network"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// SwapDetails são os campos obrigatórios da variante swap.
type SwapDetails struct {
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
}

// PayoutDetails são os campos obrigatórios da variante payout.
type PayoutDetails struct {
	Recipient      Recipient `json:"recipient"`
	DepositAddress string    `json:"deposit_address,omitempty"`
	DepositNetwork string    `json:"deposit_network,omitempty"`
}

// Transaction é o aggregate root do pipeline de liquidação.
// É mutada exclusivamente pelo orquestrador e nunca deletada,
// apenas terminada em sucesso ou falha (retida para auditoria).
type Transaction struct {
	ID        string
	ClientID  string
	Reference string
	Kind      Kind

	Amount       float64
	Currency     string
	FromCurrency string
	ToCurrency   string
	Rate         float64

	Status Status
	Held   bool

	FailedStep    string
	FailureReason string

	// Metadata guarda ids de correlação dos providers (uid de screening,
	// quote id, payout id) e timestamps de cada transição.
	Metadata map[string]string

	Deposit *DepositDetails
	Swap    *SwapDetails
	Payout  *PayoutDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdvanceTo aplica uma transição do grafo. Transições fora do grafo
// retornam ErrInvalidTransition e não alteram nada.
func (t *Transaction) AdvanceTo(next Status, at time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	t.Status = next
	t.UpdatedAt = at
	t.SetMetadata("transitioned_"+string(next), at.UTC().Format(time.RFC3339))
	return nil
}

// Fail registra o passo e a causa para o operador poder reprocessar
// a partir do passo que falhou, não do começo.
func (t *Transaction) Fail(step string, cause error, at time.Time) error {
	if err := t.AdvanceTo(StatusFailed, at); err != nil {
		return err
	}
	t.FailedStep = step
	if cause != nil {
		t.FailureReason = cause.Error()
	}
	return nil
}

// IsPassThrough indica que não há conversão a fazer: a moeda de origem
// já é a moeda de destino do payout.
func (t *Transaction) IsPassThrough() bool {
	return t.ToCurrency == "" || t.FromCurrency == t.ToCurrency
}

// ScreeningTarget devolve o endereço/rede a avaliar no screening,
// conforme a variante da transação.
func (t *Transaction) ScreeningTarget() (address, network string) {
	switch {
	case t.Deposit != nil:
		return t.Deposit.Address, t.Deposit.Network
	case t.Payout != nil:
		return t.Payout.DepositAddress, t.Payout.DepositNetwork
	default:
		return "", ""
	}
}

func (t *Transaction) SetMetadata(key, value string) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
}
