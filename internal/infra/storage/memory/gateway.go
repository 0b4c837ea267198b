package memory

import (
	"context"
	"fmt"
	"sync"

	"voltpay/internal/app/policies"
	"voltpay/internal/domain/shared/money"
)

// Gateway is an in-memory payment gateway for tests and local runs. It keeps
// authorizations through the requires_capture -> succeeded/canceled lifecycle
// and enforces the same state rules a real provider would.
type Gateway struct {
	mu    sync.Mutex
	seq   int
	auths map[string]policies.Authorization

	// CreateStatus overrides the status of newly created authorizations;
	// defaults to requires_capture.
	CreateStatus policies.AuthorizationStatus
	// CreateErr / RetrieveErr force the respective call to fail.
	CreateErr   error
	RetrieveErr error
}

func NewGateway() *Gateway {
	return &Gateway{auths: make(map[string]policies.Authorization)}
}

func (g *Gateway) CreateAuthorization(ctx context.Context, params policies.CreateAuthorizationParams) (policies.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return policies.Authorization{}, g.CreateErr
	}
	status := g.CreateStatus
	if status == "" {
		status = policies.AuthorizationRequiresCapture
	}
	g.seq++
	auth := policies.Authorization{
		ID:             fmt.Sprintf("auth_%06d", g.seq),
		Status:         status,
		Amount:         params.Amount,
		AmountCaptured: money.Money{Currency: params.Amount.Currency},
	}
	g.auths[auth.ID] = auth
	return auth, nil
}

func (g *Gateway) RetrieveAuthorization(ctx context.Context, id string) (policies.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RetrieveErr != nil {
		return policies.Authorization{}, g.RetrieveErr
	}
	return g.lookup(id)
}

func (g *Gateway) CaptureAuthorization(ctx context.Context, id string, params policies.CaptureParams) (policies.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	auth, err := g.lookup(id)
	if err != nil {
		return policies.Authorization{}, err
	}
	if auth.Status != policies.AuthorizationRequiresCapture {
		return policies.Authorization{}, fmt.Errorf("gateway: authorization %s is %s, cannot capture", id, auth.Status)
	}
	amount := auth.Amount.Amount
	if params.AmountToCapture != nil {
		if *params.AmountToCapture <= 0 || *params.AmountToCapture > auth.Amount.Amount {
			return policies.Authorization{}, fmt.Errorf("gateway: invalid capture amount %d", *params.AmountToCapture)
		}
		amount = *params.AmountToCapture
	}
	auth.Status = policies.AuthorizationSucceeded
	auth.AmountCaptured = money.Money{Amount: amount, Currency: auth.Amount.Currency}
	g.auths[id] = auth
	return auth, nil
}

func (g *Gateway) CancelAuthorization(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	auth, err := g.lookup(id)
	if err != nil {
		return err
	}
	if auth.Status == policies.AuthorizationSucceeded {
		return fmt.Errorf("gateway: authorization %s already captured", id)
	}
	auth.Status = policies.AuthorizationCanceled
	g.auths[id] = auth
	return nil
}

// SetStatus forces an authorization into a given state; test hook.
func (g *Gateway) SetStatus(id string, status policies.AuthorizationStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if auth, ok := g.auths[id]; ok {
		auth.Status = status
		g.auths[id] = auth
	}
}

func (g *Gateway) lookup(id string) (policies.Authorization, error) {
	auth, ok := g.auths[id]
	if !ok {
		return policies.Authorization{}, fmt.Errorf("gateway: no such authorization %s", id)
	}
	return auth, nil
}

var _ policies.GatewayPort = (*Gateway)(nil)
