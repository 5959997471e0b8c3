package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SettlementHandler expõe a entrada e a re-entrada do pipeline via HTTP.
type SettlementHandler struct {
	registerDeposit *usecase.RegisterDepositUseCase
	settle          *usecase.SettleTransactionUseCase
	hold            *usecase.HoldTransactionUseCase
}

func NewSettlementHandler(
	registerDeposit *usecase.RegisterDepositUseCase,
	settle *usecase.SettleTransactionUseCase,
	hold *usecase.HoldTransactionUseCase,
) *SettlementHandler {
	return &SettlementHandler{
		registerDeposit: registerDeposit,
		settle:          settle,
		hold:            hold,
	}
}

// DTO do webhook do colaborador de detecção de depósito. TransactionID e
// Reference são opcionais: quando vêm (ou o address bate com um endereço
// emitido pela custódia), o depósito confirma uma intenção de payout
// existente em vez de abrir transação nova.
type DepositDetectedRequest struct {
	TransactionID  string           `json:"transaction_id,omitempty"`
	Reference      string           `json:"reference,omitempty"`
	ClientID       string           `json:"client_id"`
	Address        string           `json:"address"`
	Network        string           `json:"network"`
	TxHash         string           `json:"tx_hash"`
	Amount         float64          `json:"amount"`
	Currency       string           `json:"currency"`
	PayoutCurrency string           `json:"payout_currency"`
	Recipient      domain.Recipient `json:"recipient"`
}

type SettlementResponse struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference,omitempty"`
	Status        string `json:"status"`
}

// DepositDetected registra o depósito confirmado e roda o pipeline até o
// próximo ponto de parada. Reentrável: webhook duplicado não duplica efeito.
func (h *SettlementHandler) DepositDetected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DepositDetectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Payload inválido")
		return
	}

	created, err := h.registerDeposit.Execute(ctx, usecase.RegisterDepositInput{
		TransactionID:  req.TransactionID,
		Reference:      req.Reference,
		ClientID:       req.ClientID,
		Address:        req.Address,
		Network:        req.Network,
		TxHash:         req.TxHash,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PayoutCurrency: req.PayoutCurrency,
		Recipient:      req.Recipient,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out, err := h.settle.Execute(ctx, created.TransactionID)
	if err != nil {
		// O depósito já está registrado; a liquidação continua por
		// re-entrada (poll/webhook). Reportamos o estado persistido.
		log.Warn().Err(err).Str("transaction_id", created.TransactionID).
			Msg("Liquidação parou após registrar depósito")
		respondJSON(w, http.StatusCreated, SettlementResponse{
			TransactionID: created.TransactionID,
			Reference:     created.Reference,
			Status:        string(domain.ClientStatusProcessing),
		})
		return
	}

	respondJSON(w, http.StatusCreated, SettlementResponse{
		TransactionID: out.TransactionID,
		Reference:     created.Reference,
		Status:        string(out.ClientStatus),
	})
}

// Advance é o gatilho de re-entrada (poll de screening pendente, retomada
// manual do operador). Idempotente por construção do orquestrador.
func (h *SettlementHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	out, err := h.settle.Execute(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SettlementResponse{
		TransactionID: out.TransactionID,
		Status:        string(out.ClientStatus),
	})
}

func (h *SettlementHandler) Hold(w http.ResponseWriter, r *http.Request) {
	h.setHold(w, r, true)
}

func (h *SettlementHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.setHold(w, r, false)
}

func (h *SettlementHandler) setHold(w http.ResponseWriter, r *http.Request, held bool) {
	id := chi.URLParam(r, "id")

	if err := h.hold.Execute(r.Context(), id, held); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"held": held})
}

// respondDomainError faz o mapeamento Erro de Domínio -> HTTP Status Code.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "Transação não encontrada")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "Dados inválidos")
	case errors.Is(err, domain.ErrClientNotEligible):
		respondError(w, http.StatusForbidden, "Cliente não elegível")
	case errors.Is(err, domain.ErrTransactionHeld):
		respondError(w, http.StatusConflict, "Transação em intervenção manual")
	case errors.Is(err, domain.ErrProviderRejected), errors.Is(err, domain.ErrQuoteExpired):
		respondError(w, http.StatusUnprocessableEntity, "Operação rejeitada pelo provider")
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrScreeningUnavailable):
		respondError(w, http.StatusServiceUnavailable, "Provider temporariamente indisponível")
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "Transição de estado inválida")
	default:
		log.Error().Err(err).Msg("Erro interno no pipeline de liquidação")
		respondError(w, http.StatusInternalServerError, "Erro interno do servidor")
	}
}

// Helpers para resposta JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Falha ao codificar resposta JSON")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
