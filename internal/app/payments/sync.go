package payments

import (
	"context"
	"fmt"

	"voltpay/internal/app/outbox"
	"voltpay/internal/domain/session"
)

// SyncResult reports whether the synchronizer actually wrote anything.
type SyncResult struct {
	Updated bool
	Session *session.ChargingSession
}

// SyncSession idempotently persists a payment outcome onto the session entity.
// Unlike the gateway operations this returns a hard error: an unknown session
// id signals a data-integrity defect the caller must not swallow, and a
// concurrent-update conflict must surface so the caller can re-read and retry.
//
// The write is skipped entirely when the requested status equals the persisted
// one and any supplied authorization id already matches, so routing the same
// outcome through twice results in exactly one effective write.
func (s *Service) SyncSession(ctx context.Context, id session.SessionID, patch session.PaymentPatch) (SyncResult, error) {
	sess, err := s.Sessions.ByID(ctx, id)
	if err != nil {
		return SyncResult{}, fmt.Errorf("payments: load session %s: %w", id, err)
	}
	if patch.IsZero() {
		return SyncResult{Session: sess}, nil
	}
	if s.alreadyApplied(sess, patch) {
		s.log().Debug("session sync short-circuited", "session_id", id, "status", sess.PaymentStatus)
		return SyncResult{Session: sess}, nil
	}

	expected := sess.PaymentStatus
	now := s.now()
	if err := sess.ApplyPaymentPatch(patch, now); err != nil {
		return SyncResult{}, fmt.Errorf("payments: apply payment update to session %s: %w", id, err)
	}
	if err := s.Sessions.UpdatePayment(ctx, id, expected, patch, now); err != nil {
		return SyncResult{}, fmt.Errorf("payments: persist payment update for session %s: %w", id, err)
	}
	// UpdatePayment bumps the persisted version; mirror it on the copy we return.
	sess.Version++

	pending := sess.PendingEvents()
	sess.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.encoder(), pending); err != nil {
		s.log().Warn("payment event record failed", "session_id", id, "error", err)
	}

	s.log().Info("session payment state synced", "session_id", id, "from", expected, "to", sess.PaymentStatus)
	return SyncResult{Updated: true, Session: sess}, nil
}

func (s *Service) alreadyApplied(sess *session.ChargingSession, patch session.PaymentPatch) bool {
	if patch.Status == nil || *patch.Status != sess.PaymentStatus {
		return false
	}
	if patch.AuthorizationID != nil && *patch.AuthorizationID != sess.GatewayAuthorizationID {
		return false
	}
	return true
}
