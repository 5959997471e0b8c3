package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
	"github.com/rs/zerolog/log"
)

// Client fala com o rail de payout bancário. O reference do chamador vai no
// header de idempotência: o rail garante no máximo uma transferência por
// reference, então repetir a chamada é seguro.
//
// AllowSimulated habilita o fallback simulado quando o rail está indisponível
// ou não cobre o corredor — só para ambientes de sandbox/demo. Em produção a
// flag fica desligada e a falha real é propagada.
type Client struct {
	BaseURL        string
	APIKey         string
	AllowSimulated bool
	HTTPClient     *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration, allowSimulated bool) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		APIKey:         apiKey,
		AllowSimulated: allowSimulated,
		HTTPClient:     &http.Client{Timeout: timeout},
	}
}

type payoutRequest struct {
	Amount    float64          `json:"amount"`
	Currency  string           `json:"currency"`
	Recipient domain.Recipient `json:"recipient"`
	Reference string           `json:"reference"`
}

// CreatePayout submete uma transferência bancária ao rail.
func (c *Client) CreatePayout(ctx context.Context, amount float64, currency string, recipient domain.Recipient, reference string) (*gateway.PayoutResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if currency == "" || reference == "" {
		return nil, fmt.Errorf("currency and reference are required: %w", domain.ErrValidation)
	}
	if err := recipient.Validate(); err != nil {
		return nil, fmt.Errorf("recipient is incomplete: %w", err)
	}

	body, err := json.Marshal(payoutRequest{
		Amount:    amount,
		Currency:  currency,
		Recipient: recipient,
		Reference: reference,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", reference)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if c.AllowSimulated {
			return c.simulated(reference, "rail unreachable"), nil
		}
		return nil, fmt.Errorf("payout call failed: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var res struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return nil, fmt.Errorf("failed to decode payout response: %w: %v", domain.ErrProviderUnavailable, err)
		}
		return &gateway.PayoutResult{ProviderID: res.ID, Status: res.Status}, nil
	}

	var body2 struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body2)

	switch {
	case body2.Code == "unsupported_corridor" && c.AllowSimulated:
		return c.simulated(reference, "unsupported corridor"), nil
	case resp.StatusCode >= 500:
		if c.AllowSimulated {
			return c.simulated(reference, "rail error"), nil
		}
		return nil, fmt.Errorf("payout provider returned %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	default:
		return nil, fmt.Errorf("payout rejected (%s): %w", body2.Code, domain.ErrProviderRejected)
	}
}

// simulated gera um resultado sintético, distinguível pelo prefixo reservado,
// para fluxos de sandbox/demo seguirem até o fim mesmo sem rail disponível.
func (c *Client) simulated(reference, reason string) *gateway.PayoutResult {
	log.Warn().Str("reference", reference).Str("reason", reason).
		Msg("Rail indisponível, gerando payout simulado")
	return &gateway.PayoutResult{
		ProviderID: domain.SimulatedPayoutPrefix + reference,
		Status:     "simulated",
		Simulated:  true,
	}
}
