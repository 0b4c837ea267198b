package memory

import (
	"context"
	"sync"

	"voltpay/internal/app/policies"
)

// ProfileDirectory serves payment profiles from memory.
type ProfileDirectory struct {
	mu    sync.RWMutex
	items map[string]policies.PaymentProfile
}

func NewProfileDirectory() *ProfileDirectory {
	return &ProfileDirectory{items: make(map[string]policies.PaymentProfile)}
}

func (d *ProfileDirectory) Put(profile policies.PaymentProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[profile.CustomerID] = profile
}

func (d *ProfileDirectory) ProfileByCustomer(ctx context.Context, customerID string) (policies.PaymentProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	profile, ok := d.items[customerID]
	if !ok {
		return policies.PaymentProfile{}, policies.ErrProfileNotFound
	}
	return profile, nil
}

var _ policies.ProfileDirectory = (*ProfileDirectory)(nil)
