package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Payment statuses reported by the gateway that count as money received.
const (
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
)

// Gateway is the slice of the payment provider's API this service consumes.
type Gateway interface {
	// CreateOrder registers an amount (in minor units) with the gateway and
	// returns the gateway's order reference the client pays against.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	// FetchPayment returns the gateway-side status of a payment.
	FetchPayment(ctx context.Context, paymentRef string) (string, error)
}

// RESTGateway talks to the provider's REST API with basic-auth credentials.
type RESTGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewRESTGateway builds a gateway client. All requests carry a bounded
// timeout so a wedged provider surfaces as an error instead of a hang.
func NewRESTGateway(baseURL, keyID, keySecret string) *RESTGateway {
	return &RESTGateway{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type gatewayOrderResponse struct {
	ID string `json:"id"`
}

type gatewayPaymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *RESTGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	body := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal gateway order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway create order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway create order: unexpected status %d", resp.StatusCode)
	}

	var out gatewayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway order: %w", err)
	}
	return out.ID, nil
}

func (g *RESTGateway) FetchPayment(ctx context.Context, paymentRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+url.PathEscape(paymentRef), nil)
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway fetch payment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway fetch payment: unexpected status %d", resp.StatusCode)
	}

	var out gatewayPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway payment: %w", err)
	}
	return out.Status, nil
}
