package payments

import (
	"context"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/session"
)

func ptr[T any](v T) *T { return &v }

// ReconcilePendingHolds promotes sessions stuck in HOLD_PENDING by re-querying
// the gateway. The gateway does not always confirm an authorization
// synchronously; this poller is what eventually moves such sessions to
// HOLD_OK, FAILED, or (when the gateway drifted past us) CAPTURED/RELEASED.
// Returns the number of sessions whose state changed.
func (s *Service) ReconcilePendingHolds(ctx context.Context, limit int) (int, error) {
	sessions, err := s.Sessions.ListByPaymentStatus(ctx, session.PaymentHoldPending, limit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, sess := range sessions {
		if sess.GatewayAuthorizationID == "" {
			continue
		}
		patch, ok := s.pendingHoldPatch(ctx, sess)
		if !ok {
			continue
		}
		res, err := s.SyncSession(ctx, sess.ID, patch)
		if err != nil {
			s.log().Warn("pending hold reconcile failed", "session_id", sess.ID, "error", err)
			continue
		}
		if res.Updated {
			updated++
		}
	}
	return updated, nil
}

func (s *Service) pendingHoldPatch(ctx context.Context, sess *session.ChargingSession) (session.PaymentPatch, bool) {
	st := s.Status(ctx, sess.GatewayAuthorizationID)
	if st.Failed() {
		s.log().Warn("pending hold status fetch failed", "session_id", sess.ID, "authorization_id", sess.GatewayAuthorizationID, "error_code", st.Failure.Code, "error", st.Failure.Message)
		return session.PaymentPatch{}, false
	}
	switch st.Status {
	case policies.AuthorizationRequiresCapture:
		return session.PaymentPatch{Status: ptr(session.PaymentHoldOK)}, true
	case policies.AuthorizationSucceeded:
		now := s.now()
		return session.PaymentPatch{
			Status:              ptr(session.PaymentCaptured),
			CapturedAmountCents: ptr(st.CapturedAmountCents),
			PaidAt:              &now,
		}, true
	case policies.AuthorizationCanceled:
		return session.PaymentPatch{Status: ptr(session.PaymentReleased)}, true
	case policies.AuthorizationFailed:
		return session.PaymentPatch{
			Status:           ptr(session.PaymentFailed),
			LastErrorCode:    ptr(string(CodeGatewayError)),
			LastErrorMessage: ptr("authorization failed at the gateway"),
		}, true
	default:
		return session.PaymentPatch{}, false
	}
}
