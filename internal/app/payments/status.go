package payments

import "context"

// Status is a read-only fetch of an authorization's current gateway state,
// used by reconciliation jobs and support tooling to detect drift between the
// gateway and the persisted session. No side effects.
func (s *Service) Status(ctx context.Context, authorizationID string) StatusResult {
	if authorizationID == "" {
		return StatusResult{Failure: failf(CodeConfigurationError, "authorization id is required")}
	}
	auth, err := s.Gateway.RetrieveAuthorization(ctx, authorizationID)
	if err != nil {
		return StatusResult{
			AuthorizationID: authorizationID,
			Failure:         failf(CodeGatewayError, "retrieve authorization: %v", err),
		}
	}
	return StatusResult{
		AuthorizationID:     auth.ID,
		Status:              auth.Status,
		AmountCents:         auth.Amount.Amount,
		CapturedAmountCents: auth.AmountCaptured.Amount,
		Currency:            auth.Amount.Currency,
	}
}
