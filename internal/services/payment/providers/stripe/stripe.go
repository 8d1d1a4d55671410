package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/civilregistry/backend/internal/services/payment"
)

// StripeProvider implements payment.Provider against the Stripe REST API
type StripeProvider struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// StripeConfig holds configuration for the Stripe provider
type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(config StripeConfig) *StripeProvider {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &StripeProvider{
		secretKey: config.SecretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// paymentIntentResponse represents a payment intent returned by Stripe
type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Error        *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent creates a payment intent with Stripe
func (p *StripeProvider) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	// Stripe expects bracketed keys for nested metadata
	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", req.Metadata[k])
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var intentResp paymentIntentResponse
	if err := json.Unmarshal(respBody, &intentResp); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || intentResp.Error != nil {
		message := http.StatusText(resp.StatusCode)
		if intentResp.Error != nil && intentResp.Error.Message != "" {
			message = intentResp.Error.Message
		}
		return nil, fmt.Errorf("stripe error: %s", message)
	}
	if intentResp.ID == "" {
		return nil, fmt.Errorf("stripe error: payment intent id missing from response")
	}

	return &payment.Intent{
		ID:           intentResp.ID,
		ClientSecret: intentResp.ClientSecret,
		Status:       intentResp.Status,
	}, nil
}
