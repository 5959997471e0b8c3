package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
)

// Client consulta o colaborador de onboarding/KYC. A decisão dele é final:
// o pipeline não re-deriva classificação de risco de cliente.
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

// IsEligible pergunta se o cliente tem cadastro verificado e classificação
// de risco não-flagada.
func (c *Client) IsEligible(ctx context.Context, clientID string) (bool, error) {
	if clientID == "" {
		return false, fmt.Errorf("client id is required: %w", domain.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/clients/"+clientID+"/eligibility", nil)
	if err != nil {
		return false, fmt.Errorf("failed to build kyc request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("kyc call failed: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("kyc provider returned %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var res struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("failed to decode kyc response: %w: %v", domain.ErrProviderUnavailable, err)
	}
	return res.Eligible, nil
}
