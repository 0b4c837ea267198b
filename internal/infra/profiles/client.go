package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"voltpay/internal/app/policies"
)

// Client fetches payment profiles from the external customer service.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Logger  *slog.Logger
}

type profileResponse struct {
	CustomerID             string `json:"customer_id"`
	GatewayCustomerID      string `json:"gateway_customer_id"`
	GatewayPaymentMethodID string `json:"gateway_payment_method_id"`
}

func (c *Client) ProfileByCustomer(ctx context.Context, customerID string) (policies.PaymentProfile, error) {
	var zero policies.PaymentProfile
	if c == nil || c.HTTP == nil {
		return zero, errors.New("profiles: http client not configured")
	}
	if c.BaseURL == "" {
		return zero, errors.New("profiles: base url not configured")
	}

	endpoint := fmt.Sprintf("%s/api/v1/customers/%s/payment-profile",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return zero, fmt.Errorf("profiles: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return zero, policies.ErrProfileNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		if c.Logger != nil {
			c.Logger.Warn("profile service error", "customer_id", customerID, "status", res.StatusCode, "body", string(body))
		}
		return zero, fmt.Errorf("profiles: service returned %d", res.StatusCode)
	}

	var payload profileResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return zero, fmt.Errorf("profiles: decode response: %w", err)
	}
	return policies.PaymentProfile{
		CustomerID:             customerID,
		GatewayCustomerID:      payload.GatewayCustomerID,
		GatewayPaymentMethodID: payload.GatewayPaymentMethodID,
	}, nil
}

var _ policies.ProfileDirectory = (*Client)(nil)
