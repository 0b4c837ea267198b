package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/shared/money"
)

// Gateway implements the gateway port on Stripe PaymentIntents. Holds are
// PaymentIntents created with manual capture and confirmed immediately.
type Gateway struct {
	api *client.API
}

func New(apiKey string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{api: api}
}

func (g *Gateway) CreateAuthorization(ctx context.Context, params policies.CreateAuthorizationParams) (policies.Authorization, error) {
	piParams := &stripeapi.PaymentIntentParams{
		Amount:        stripeapi.Int64(params.Amount.Amount),
		Currency:      stripeapi.String(strings.ToLower(params.Amount.Currency)),
		Customer:      stripeapi.String(params.CustomerID),
		PaymentMethod: stripeapi.String(params.PaymentMethodID),
		CaptureMethod: stripeapi.String(string(stripeapi.PaymentIntentCaptureMethodManual)),
		Confirm:       stripeapi.Bool(true),
		OffSession:    stripeapi.Bool(true),
	}
	piParams.Context = ctx
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(piParams)
	if err != nil {
		return policies.Authorization{}, normalizeError(err)
	}
	return toAuthorization(pi), nil
}

func (g *Gateway) RetrieveAuthorization(ctx context.Context, id string) (policies.Authorization, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return policies.Authorization{}, normalizeError(err)
	}
	return toAuthorization(pi), nil
}

func (g *Gateway) CaptureAuthorization(ctx context.Context, id string, params policies.CaptureParams) (policies.Authorization, error) {
	capParams := &stripeapi.PaymentIntentCaptureParams{}
	capParams.Context = ctx
	if params.AmountToCapture != nil {
		capParams.AmountToCapture = stripeapi.Int64(*params.AmountToCapture)
	}
	pi, err := g.api.PaymentIntents.Capture(id, capParams)
	if err != nil {
		return policies.Authorization{}, normalizeError(err)
	}
	return toAuthorization(pi), nil
}

func (g *Gateway) CancelAuthorization(ctx context.Context, id string) error {
	params := &stripeapi.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Cancel(id, params); err != nil {
		return normalizeError(err)
	}
	return nil
}

func toAuthorization(pi *stripeapi.PaymentIntent) policies.Authorization {
	currency := strings.ToUpper(string(pi.Currency))
	return policies.Authorization{
		ID:             pi.ID,
		Status:         mapStatus(pi.Status),
		Amount:         money.Money{Amount: pi.Amount, Currency: currency},
		AmountCaptured: money.Money{Amount: pi.AmountReceived, Currency: currency},
	}
}

func mapStatus(status stripeapi.PaymentIntentStatus) policies.AuthorizationStatus {
	switch status {
	case stripeapi.PaymentIntentStatusRequiresCapture:
		return policies.AuthorizationRequiresCapture
	case stripeapi.PaymentIntentStatusSucceeded:
		return policies.AuthorizationSucceeded
	case stripeapi.PaymentIntentStatusCanceled:
		return policies.AuthorizationCanceled
	case stripeapi.PaymentIntentStatusProcessing,
		stripeapi.PaymentIntentStatusRequiresAction,
		stripeapi.PaymentIntentStatusRequiresConfirmation:
		return policies.AuthorizationPending
	default:
		// requires_payment_method after a declined confirm means the hold failed
		return policies.AuthorizationFailed
	}
}

// normalizeError surfaces Stripe's own error code in the message so it ends up
// on the session's diagnostic fields.
func normalizeError(err error) error {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%s: %s", stripeErr.Code, stripeErr.Msg)
	}
	return err
}

var _ policies.GatewayPort = (*Gateway)(nil)
