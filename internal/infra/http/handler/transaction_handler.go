package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type TransactionHandler struct {
	getTransaction *usecase.GetTransactionUseCase
	requestPayout  *usecase.RequestPayoutUseCase
}

func NewTransactionHandler(
	getTransaction *usecase.GetTransactionUseCase,
	requestPayout *usecase.RequestPayoutUseCase,
) *TransactionHandler {
	return &TransactionHandler{
		getTransaction: getTransaction,
		requestPayout:  requestPayout,
	}
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	out, err := h.getTransaction.Execute(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

type CreatePayoutIntentRequest struct {
	ClientID       string           `json:"client_id"`
	Network        string           `json:"network"`
	Currency       string           `json:"currency"`
	Amount         float64          `json:"amount"`
	PayoutCurrency string           `json:"payout_currency"`
	Recipient      domain.Recipient `json:"recipient"`
}

type CreatePayoutIntentResponse struct {
	TransactionID  string `json:"transaction_id"`
	Reference      string `json:"reference"`
	DepositAddress string `json:"deposit_address"`
	Status         string `json:"status"`
}

// CreatePayoutIntent abre uma transação de payout: emite o endereço de
// depósito via custódia e fica aguardando o depósito ser detectado.
func (h *TransactionHandler) CreatePayoutIntent(w http.ResponseWriter, r *http.Request) {
	var req CreatePayoutIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Payload inválido")
		return
	}

	out, err := h.requestPayout.Execute(r.Context(), usecase.RequestPayoutInput{
		ClientID:       req.ClientID,
		Network:        req.Network,
		Currency:       req.Currency,
		Amount:         req.Amount,
		PayoutCurrency: req.PayoutCurrency,
		Recipient:      req.Recipient,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreatePayoutIntentResponse{
		TransactionID:  out.TransactionID,
		Reference:      out.Reference,
		DepositAddress: out.DepositAddress,
		Status:         string(out.Status.Coarse()),
	})
}
