package payments

import (
	"context"
	"encoding/json"
	"errors"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
	"voltpay/internal/domain/shared/money"
)

// HoldParams describe a fund-hold request made at session start.
type HoldParams struct {
	CustomerID  string
	AmountMajor float64 // 0 falls back to the configured default hold amount
	Currency    string  // "" falls back to the configured default currency
	SessionID   string  // optional, recorded in gateway metadata for traceability
	// IdempotencyKey deduplicates caller retries: the same key replays the
	// first hold outcome instead of reserving funds twice.
	IdempotencyKey string
}

// PlaceHold reserves funds on the customer's saved payment method. The
// authorization is created in manual-capture mode and confirmed immediately,
// so the money is held but not transferred. Every failure is returned as a
// value with status FAILED.
func (s *Service) PlaceHold(ctx context.Context, params HoldParams) HoldResult {
	if params.IdempotencyKey != "" && s.Idempotency != nil {
		if prior, ok := s.replayHold(ctx, params.IdempotencyKey); ok {
			return prior
		}
	}

	result := s.placeHold(ctx, params)

	if params.IdempotencyKey != "" && s.Idempotency != nil {
		s.rememberHold(ctx, params.IdempotencyKey, result)
	}
	return result
}

func (s *Service) placeHold(ctx context.Context, params HoldParams) HoldResult {
	if params.CustomerID == "" {
		return holdFailure(failf(CodeConfigurationError, "customer id is required"))
	}

	amountMajor := params.AmountMajor
	if amountMajor <= 0 {
		amountMajor = s.Defaults.AmountMajor
	}
	if amountMajor <= 0 {
		return holdFailure(failf(CodeConfigurationError, "hold amount not specified and no default configured"))
	}
	currency := params.Currency
	if currency == "" {
		currency = s.Defaults.Currency
	}

	profile, err := s.Profiles.ProfileByCustomer(ctx, params.CustomerID)
	if err != nil {
		if errors.Is(err, policies.ErrProfileNotFound) {
			return holdFailure(failf(CodeConfigurationError, "customer %s has no payment profile", params.CustomerID))
		}
		return holdFailure(failf(CodeGatewayError, "profile lookup failed: %v", err))
	}
	if profile.GatewayCustomerID == "" {
		return holdFailure(failf(CodeConfigurationError, "customer %s is missing a gateway customer id", params.CustomerID))
	}
	if profile.GatewayPaymentMethodID == "" {
		return holdFailure(failf(CodeConfigurationError, "customer %s has no saved payment method", params.CustomerID))
	}

	amount, err := money.FromMajorUnits(amountMajor, currency)
	if err != nil {
		return holdFailure(failf(CodeConfigurationError, "invalid hold currency %q", currency))
	}

	metadata := map[string]string{"customer_id": params.CustomerID}
	if params.SessionID != "" {
		metadata["session_id"] = params.SessionID
	}
	auth, err := s.Gateway.CreateAuthorization(ctx, policies.CreateAuthorizationParams{
		Amount:          amount,
		CustomerID:      profile.GatewayCustomerID,
		PaymentMethodID: profile.GatewayPaymentMethodID,
		Metadata:        metadata,
	})
	if err != nil {
		s.log().Warn("hold rejected by gateway", "customer_id", params.CustomerID, "session_id", params.SessionID, "error", err)
		return holdFailure(failf(CodeGatewayError, "create authorization: %v", err))
	}

	var status session.PaymentStatus
	switch auth.Status {
	case policies.AuthorizationRequiresCapture:
		status = session.PaymentHoldOK
	case policies.AuthorizationPending:
		status = session.PaymentHoldPending
	default:
		return holdFailure(failf(CodeGatewayError, "authorization %s created in unexpected state %s", auth.ID, auth.Status))
	}

	s.log().Info("payment hold placed",
		"customer_id", params.CustomerID,
		"session_id", params.SessionID,
		"authorization_id", auth.ID,
		"amount_cents", auth.Amount.Amount,
		"currency", auth.Amount.Currency,
		"capturable", status == session.PaymentHoldOK,
	)
	return HoldResult{
		Status:          status,
		AuthorizationID: auth.ID,
		AmountCents:     auth.Amount.Amount,
		Currency:        auth.Amount.Currency,
	}
}

func (s *Service) replayHold(ctx context.Context, key string) (HoldResult, bool) {
	rec, found, err := s.Idempotency.Get(ctx, key)
	if err != nil || !found {
		return HoldResult{}, false
	}
	var prior HoldResult
	if err := json.Unmarshal(rec.Payload, &prior); err != nil {
		return HoldResult{}, false
	}
	s.log().Info("hold replayed from idempotency store", "idempotency_key", key, "authorization_id", prior.AuthorizationID)
	return prior, true
}

func (s *Service) rememberHold(ctx context.Context, key string, result HoldResult) {
	// Gateway faults are transient; recording them would replay the failure
	// for the whole TTL and pin the customer to one bad attempt.
	if result.Failed() && result.Failure.Code == CodeGatewayError {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	rec := IdempotencyRecord{Key: key, Payload: payload, OccurredAt: s.now()}
	if err := s.Idempotency.Save(ctx, rec); err != nil {
		s.log().Warn("idempotency record save failed", "idempotency_key", key, "error", err)
	}
}
