package policies

import (
	"context"
	"errors"
)

var ErrProfileNotFound = errors.New("policies: payment profile not found")

// PaymentProfile holds the gateway identifiers the external customer service
// keeps for a customer. Both ids must be present before a hold can be issued.
type PaymentProfile struct {
	CustomerID             string
	GatewayCustomerID      string
	GatewayPaymentMethodID string
}

// ProfileDirectory resolves a platform customer to their gateway payment profile.
type ProfileDirectory interface {
	ProfileByCustomer(ctx context.Context, customerID string) (PaymentProfile, error)
}
