package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// Client fala com o serviço de custódia/assinatura.
// Aqui só pedimos endereços de depósito; a assinatura de transações
// de saída fica inteiramente do lado do serviço.
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

// IssueDepositAddress emite um endereço de depósito para o cliente na rede dada.
func (c *Client) IssueDepositAddress(ctx context.Context, clientID, network string) (string, error) {
	if clientID == "" || network == "" {
		return "", fmt.Errorf("client id and network are required: %w", domain.ErrValidation)
	}

	body, err := json.Marshal(map[string]string{"client_id": clientID, "network": network})
	if err != nil {
		return "", fmt.Errorf("failed to marshal custody request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/addresses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build custody request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("custody call failed: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("custody provider returned %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var res struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode custody response: %w: %v", domain.ErrProviderUnavailable, err)
	}
	if res.Address == "" {
		return "", fmt.Errorf("custody returned empty address: %w", domain.ErrProviderUnavailable)
	}
	return res.Address, nil
}
