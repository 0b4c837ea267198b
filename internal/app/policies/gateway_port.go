package policies

import (
	"context"

	"voltpay/internal/domain/shared/money"
)

// AuthorizationStatus mirrors the gateway-side lifecycle of a fund hold.
type AuthorizationStatus string

const (
	AuthorizationPending         AuthorizationStatus = "pending"
	AuthorizationRequiresCapture AuthorizationStatus = "requires_capture"
	AuthorizationSucceeded       AuthorizationStatus = "succeeded"
	AuthorizationCanceled        AuthorizationStatus = "canceled"
	AuthorizationFailed          AuthorizationStatus = "failed"
)

type CreateAuthorizationParams struct {
	Amount          money.Money
	CustomerID      string
	PaymentMethodID string
	Metadata        map[string]string
}

type Authorization struct {
	ID             string
	Status         AuthorizationStatus
	Amount         money.Money
	AmountCaptured money.Money
}

type CaptureParams struct {
	// AmountToCapture limits the capture to a partial amount; nil captures the
	// full authorized amount.
	AmountToCapture *int64
}

// GatewayPort is the capability set the payment core needs from a provider.
// Authorizations are created in manual-capture mode and confirmed immediately,
// so funds are reserved without finalizing the transfer.
type GatewayPort interface {
	CreateAuthorization(ctx context.Context, params CreateAuthorizationParams) (Authorization, error)
	RetrieveAuthorization(ctx context.Context, id string) (Authorization, error)
	CaptureAuthorization(ctx context.Context, id string, params CaptureParams) (Authorization, error)
	CancelAuthorization(ctx context.Context, id string) error
}
