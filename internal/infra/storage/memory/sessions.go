package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainsession "voltpay/internal/domain/session"
)

// SessionRepository is an in-memory implementation for tests and local runs.
type SessionRepository struct {
	mu    sync.RWMutex
	items map[domainsession.SessionID]*domainsession.ChargingSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{items: make(map[domainsession.SessionID]*domainsession.ChargingSession)}
}

func (r *SessionRepository) ByID(ctx context.Context, id domainsession.SessionID) (*domainsession.ChargingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.items[id]
	if !ok {
		return nil, domainsession.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *domainsession.ChargingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *SessionRepository) UpdatePayment(ctx context.Context, id domainsession.SessionID, expected domainsession.PaymentStatus, patch domainsession.PaymentPatch, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.items[id]
	if !ok {
		return domainsession.ErrNotFound
	}
	if sess.PaymentStatus != expected {
		return domainsession.ErrConflict
	}
	if patch.Status != nil {
		sess.PaymentStatus = *patch.Status
	}
	if patch.AuthorizationID != nil {
		sess.GatewayAuthorizationID = *patch.AuthorizationID
	}
	if patch.HoldAmountCents != nil {
		sess.HoldAmountCents = *patch.HoldAmountCents
	}
	if patch.CapturedAmountCents != nil {
		sess.CapturedAmountCents = *patch.CapturedAmountCents
	}
	if patch.Currency != nil {
		sess.Currency = *patch.Currency
	}
	if patch.LastErrorCode != nil {
		sess.PaymentLastErrorCode = *patch.LastErrorCode
	}
	if patch.LastErrorMessage != nil {
		sess.PaymentLastErrorMessage = *patch.LastErrorMessage
	}
	if patch.PaidAt != nil {
		t := *patch.PaidAt
		sess.PaidAt = &t
	}
	sess.UpdatedAt = updatedAt.UTC()
	sess.Version++
	return nil
}

func (r *SessionRepository) ListByPaymentStatus(ctx context.Context, status domainsession.PaymentStatus, limit int) ([]*domainsession.ChargingSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainsession.ChargingSession
	for _, sess := range r.items {
		if sess.PaymentStatus != status {
			continue
		}
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ domainsession.Repository = (*SessionRepository)(nil)
