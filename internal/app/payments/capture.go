package payments

import (
	"context"
	"time"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
	"voltpay/internal/domain/shared/money"
)

// CaptureParams describe a capture request made at session end.
type CaptureParams struct {
	AuthorizationID string
	// AmountMajor limits the capture to a partial amount in major units;
	// nil captures the full held amount.
	AmountMajor *float64
	SessionID   string // optional, only used for the receipt trail
}

// Capture finalizes the transfer of a previously held amount. The current
// gateway state is fetched first: a retry that finds the authorization already
// settled returns success with AlreadyCaptured=true and the amount the first
// call took, so retrying a successful capture never moves funds twice.
func (s *Service) Capture(ctx context.Context, params CaptureParams) CaptureResult {
	if params.AuthorizationID == "" {
		return captureFailure("", failf(CodeConfigurationError, "authorization id is required"))
	}

	auth, err := s.Gateway.RetrieveAuthorization(ctx, params.AuthorizationID)
	if err != nil {
		return captureFailure(params.AuthorizationID, failf(CodeGatewayError, "retrieve authorization: %v", err))
	}

	switch auth.Status {
	case policies.AuthorizationSucceeded:
		s.log().Info("capture retry collapsed to no-op", "authorization_id", auth.ID, "captured_cents", auth.AmountCaptured.Amount)
		return CaptureResult{
			Status:              session.PaymentCaptured,
			AuthorizationID:     auth.ID,
			CapturedAmountCents: auth.AmountCaptured.Amount,
			Currency:            auth.AmountCaptured.Currency,
			CapturedAt:          s.now(),
			AlreadyCaptured:     true,
		}
	case policies.AuthorizationRequiresCapture:
		// capturable, proceed
	default:
		return captureFailure(auth.ID, failf(CodeInvalidState, "authorization %s is %s, not capturable", auth.ID, auth.Status))
	}

	var gwParams policies.CaptureParams
	if params.AmountMajor != nil {
		minor := money.ToMinorUnits(*params.AmountMajor)
		if minor <= 0 {
			return captureFailure(auth.ID, failf(CodeInvalidState, "capture amount must be positive, got %d cents", minor))
		}
		if minor > auth.Amount.Amount {
			return captureFailure(auth.ID, failf(CodeInvalidState, "capture amount %d cents exceeds held %d cents", minor, auth.Amount.Amount))
		}
		gwParams.AmountToCapture = &minor
	}

	captured, err := s.Gateway.CaptureAuthorization(ctx, auth.ID, gwParams)
	if err != nil {
		s.log().Warn("capture rejected by gateway", "authorization_id", auth.ID, "error", err)
		return captureFailure(auth.ID, failf(CodeGatewayError, "capture authorization: %v", err))
	}

	capturedAt := s.now()
	s.log().Info("payment captured",
		"authorization_id", captured.ID,
		"captured_cents", captured.AmountCaptured.Amount,
		"currency", captured.AmountCaptured.Currency,
	)
	s.archiveReceipt(ctx, params.SessionID, captured, capturedAt)

	return CaptureResult{
		Status:              session.PaymentCaptured,
		AuthorizationID:     captured.ID,
		CapturedAmountCents: captured.AmountCaptured.Amount,
		Currency:            captured.AmountCaptured.Currency,
		CapturedAt:          capturedAt,
	}
}

func (s *Service) archiveReceipt(ctx context.Context, sessionID string, auth policies.Authorization, capturedAt time.Time) {
	if s.Receipts == nil {
		return
	}
	receipt := Receipt{
		AuthorizationID:     auth.ID,
		SessionID:           sessionID,
		CapturedAmountCents: auth.AmountCaptured.Amount,
		Currency:            auth.AmountCaptured.Currency,
		CapturedAt:          capturedAt,
	}
	if err := s.Receipts.Store(ctx, receipt); err != nil {
		s.log().Warn("receipt archive failed", "authorization_id", auth.ID, "error", err)
	}
}
