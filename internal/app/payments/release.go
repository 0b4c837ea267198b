package payments

import (
	"context"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
)

// Release cancels an uncaptured authorization, returning the reserved funds to
// the customer. A hold that already settled must never be cancelled against
// the gateway, so that case fails with TERMINAL_STATE before any call is made;
// releasing an already-cancelled hold is an idempotent no-op.
func (s *Service) Release(ctx context.Context, authorizationID string) ReleaseResult {
	if authorizationID == "" {
		return releaseFailure("", failf(CodeConfigurationError, "authorization id is required"))
	}

	auth, err := s.Gateway.RetrieveAuthorization(ctx, authorizationID)
	if err != nil {
		return releaseFailure(authorizationID, failf(CodeGatewayError, "retrieve authorization: %v", err))
	}

	switch auth.Status {
	case policies.AuthorizationSucceeded:
		return releaseFailure(auth.ID, failf(CodeTerminalState, "authorization %s is already captured, cannot release", auth.ID))
	case policies.AuthorizationCanceled:
		s.log().Info("release retry collapsed to no-op", "authorization_id", auth.ID)
		return ReleaseResult{Status: session.PaymentReleased, AuthorizationID: auth.ID, AlreadyReleased: true}
	}

	if err := s.Gateway.CancelAuthorization(ctx, auth.ID); err != nil {
		s.log().Warn("release rejected by gateway", "authorization_id", auth.ID, "error", err)
		return releaseFailure(auth.ID, failf(CodeGatewayError, "cancel authorization: %v", err))
	}

	s.log().Info("payment hold released", "authorization_id", auth.ID)
	return ReleaseResult{Status: session.PaymentReleased, AuthorizationID: auth.ID}
}
