package conversion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/domain"
	"github.com/Souravrooj-klizos/iTransfr-new-sub002/internal/gateway"
)

// Client fala com o provider de FX. Quotes têm validade de segundos:
// executar um id vencido é falha esperada (ErrQuoteExpired) e a reação
// correta é pedir quote nova, nunca repetir o mesmo id.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// now é injetável para os testes controlarem o relógio.
	now func() time.Time
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// WithClock troca o relógio (uso em testes).
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

type quoteRequest struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
	Side         string  `json:"side"`
}

type quoteResponse struct {
	ID               string  `json:"id"`
	Rate             float64 `json:"rate"`
	FromAmount       float64 `json:"from_amount"`
	ToAmount         float64 `json:"to_amount"`
	ExpiresInSeconds int     `json:"expires_in_seconds"`
}

type conversionResponse struct {
	ID         string  `json:"id"`
	QuoteID    string  `json:"quote_id"`
	Status     string  `json:"status"`
	FromAmount float64 `json:"from_amount"`
	ToAmount   float64 `json:"to_amount"`
	Rate       float64 `json:"rate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequestQuote pede uma taxa comprometida por uma janela curta.
func (c *Client) RequestQuote(ctx context.Context, fromCurrency, toCurrency string, amount float64, side gateway.QuoteSide) (*gateway.Quote, error) {
	if fromCurrency == "" || toCurrency == "" {
		return nil, fmt.Errorf("currency pair is required: %w", domain.ErrValidation)
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var res quoteResponse
	if err := c.post(ctx, "/v1/quotes", quoteRequest{
		FromCurrency: fromCurrency,
		ToCurrency:   toCurrency,
		Amount:       amount,
		Side:         string(side),
	}, &res); err != nil {
		return nil, err
	}

	return &gateway.Quote{
		ID:         res.ID,
		Rate:       res.Rate,
		FromAmount: res.FromAmount,
		ToAmount:   res.ToAmount,
		ExpiresAt:  c.now().Add(time.Duration(res.ExpiresInSeconds) * time.Second),
	}, nil
}

// ExecuteQuote executa uma quote previamente pedida.
func (c *Client) ExecuteQuote(ctx context.Context, quoteID string) (*gateway.Conversion, error) {
	if quoteID == "" {
		return nil, fmt.Errorf("quote id is required: %w", domain.ErrValidation)
	}

	var res conversionResponse
	if err := c.post(ctx, "/v1/quotes/"+quoteID+"/execute", struct{}{}, &res); err != nil {
		return nil, err
	}
	return toConversion(res), nil
}

// ExecuteSwap faz quote + execução, atômico do ponto de vista do chamador.
// Se a quote vencer entre os dois passos, pede uma nova uma única vez.
func (c *Client) ExecuteSwap(ctx context.Context, fromCurrency, toCurrency string, amount float64) (*gateway.Conversion, error) {
	quote, err := c.RequestQuote(ctx, fromCurrency, toCurrency, amount, gateway.QuoteSideSpend)
	if err != nil {
		return nil, err
	}

	conv, err := c.ExecuteQuote(ctx, quote.ID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrQuoteExpired) {
		return nil, err
	}

	// Quote venceu entre o request e o execute: re-cota uma vez.
	quote, err = c.RequestQuote(ctx, fromCurrency, toCurrency, amount, gateway.QuoteSideSpend)
	if err != nil {
		return nil, err
	}
	return c.ExecuteQuote(ctx, quote.ID)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("conversion call failed: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode conversion response: %w: %v", domain.ErrProviderUnavailable, err)
		}
		return nil
	}

	return c.normalizeError(resp)
}

// normalizeError traduz a resposta crua do provider para a taxonomia do domínio.
func (c *Client) normalizeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusGone,
		body.Code == "quote_expired",
		body.Code == "quote_not_found":
		return fmt.Errorf("quote rejected by provider: %w", domain.ErrQuoteExpired)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("conversion rejected (%s): %w", body.Code, domain.ErrProviderRejected)
	case resp.StatusCode >= 500:
		return fmt.Errorf("conversion provider returned %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	default:
		return fmt.Errorf("conversion provider returned %d (%s): %w", resp.StatusCode, body.Code, domain.ErrProviderRejected)
	}
}

func toConversion(res conversionResponse) *gateway.Conversion {
	return &gateway.Conversion{
		ID:         res.ID,
		QuoteID:    res.QuoteID,
		Status:     res.Status,
		FromAmount: res.FromAmount,
		ToAmount:   res.ToAmount,
		Rate:       res.Rate,
	}
}
