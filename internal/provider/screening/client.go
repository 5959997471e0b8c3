package screening

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
)

// Client fala com o provider de screening AML/KYT.
// Qualquer falha de transporte ou resposta malformada vira
// domain.ErrScreeningUnavailable — o orquestrador é fail-closed.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type screenRequest struct {
	Address  string `json:"address"`
	Network  string `json:"network"`
	Priority string `json:"priority,omitempty"`
}

// Screen submete um endereço para avaliação de risco.
// Status "pending" do provider vira Complete=false: nem sucesso nem falha.
func (c *Client) Screen(ctx context.Context, address, network, priority string) (*gateway.ScreeningResult, error) {
	if strings.TrimSpace(address) == "" || strings.TrimSpace(network) == "" {
		return nil, fmt.Errorf("address and network are required: %w", domain.ErrValidation)
	}

	body, err := json.Marshal(screenRequest{Address: address, Network: network, Priority: priority})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal screening request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/screenings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build screening request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screening call failed: %w: %v", domain.ErrScreeningUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("screening provider returned %d: %w", resp.StatusCode, domain.ErrScreeningUnavailable)
	}

	var res struct {
		Status        string         `json:"status"` // complete | pending
		RiskScore     int            `json:"risk_score"`
		Signals       map[string]int `json:"signals"`
		IsBlacklisted bool           `json:"is_blacklisted"`
		CorrelationID string         `json:"correlation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode screening response: %w: %v", domain.ErrScreeningUnavailable, err)
	}
	if res.Status != "complete" && res.Status != "pending" {
		return nil, fmt.Errorf("unexpected screening status %q: %w", res.Status, domain.ErrScreeningUnavailable)
	}

	return &gateway.ScreeningResult{
		Complete:    res.Status == "complete",
		RiskScore:   res.RiskScore,
		Signals:     res.Signals,
		Blacklisted: res.IsBlacklisted,
		ProviderRef: res.CorrelationID,
	}, nil
}
