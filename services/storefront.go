package services

import (
	"context"
	"sync"
	"time"

	"storefront-service/events"
	"storefront-service/models"

	"go.uber.org/zap"
)

// Storefront bundles the per-visitor state: cart, account session and checkout.
type Storefront struct {
	ID       string
	Cart     *models.Cart
	Accounts *AccountClient
	Session  *AccountSession
	Checkout *CheckoutOrchestrator

	lastSeen time.Time
}

type StorefrontDeps struct {
	Identity  IdentityBackend
	Profiles  ProfileStore
	Balances  BalanceService
	Orders    OrderStore
	Verifier  CredentialVerifier
	Publisher events.Publisher
	Metrics   MetricsRecorder
	Carts     CartPersister
	Checkout  CheckoutConfig
	IdleTTL   time.Duration
	Logger    *zap.Logger
}

// StorefrontRegistry owns every live storefront keyed by visitor id and
// evicts the ones that have been idle for longer than IdleTTL.
type StorefrontRegistry struct {
	deps StorefrontDeps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Storefront
}

func NewStorefrontRegistry(deps StorefrontDeps) *StorefrontRegistry {
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = 30 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &StorefrontRegistry{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*Storefront),
	}
}

// Get returns the visitor's storefront, creating it from the access token and
// the persisted cart when it is not live.
func (r *StorefrontRegistry) Get(ctx context.Context, visitorID, token string) *Storefront {
	r.mu.Lock()
	if sf, ok := r.sessions[visitorID]; ok {
		sf.lastSeen = r.now()
		r.mu.Unlock()
		return sf
	}
	r.mu.Unlock()

	created := r.build(visitorID, token)
	r.restoreCart(ctx, created)

	r.mu.Lock()
	if sf, ok := r.sessions[visitorID]; ok {
		sf.lastSeen = r.now()
		r.mu.Unlock()
		return sf
	}
	created.lastSeen = r.now()
	r.sessions[visitorID] = created
	r.mu.Unlock()

	created.Session.Start(ctx)
	return created
}

func (r *StorefrontRegistry) build(visitorID, token string) *Storefront {
	cart := models.NewCart()
	accounts := NewAccountClient(r.deps.Identity, token)
	session := NewAccountSession(accounts, r.deps.Profiles, r.deps.Logger)
	checkout := NewCheckoutOrchestrator(CheckoutDeps{
		Cart:      cart,
		Session:   session,
		Balances:  r.deps.Balances,
		Orders:    r.deps.Orders,
		Verifier:  r.deps.Verifier,
		Publisher: r.deps.Publisher,
		Metrics:   r.deps.Metrics,
		Logger:    r.deps.Logger.With(zap.String("visitor_id", visitorID)),
	}, r.deps.Checkout)

	return &Storefront{
		ID:       visitorID,
		Cart:     cart,
		Accounts: accounts,
		Session:  session,
		Checkout: checkout,
	}
}

func (r *StorefrontRegistry) restoreCart(ctx context.Context, sf *Storefront) {
	if r.deps.Carts == nil {
		return
	}
	items, err := r.deps.Carts.GetCart(ctx, sf.ID)
	if err != nil {
		r.deps.Logger.Warn("Failed to restore cart", zap.String("visitor_id", sf.ID), zap.Error(err))
		return
	}
	if len(items) > 0 {
		sf.Cart.Restore(items)
	}
}

// PersistCart snapshots the cart. Failures are logged; the live cart stays authoritative.
func (r *StorefrontRegistry) PersistCart(ctx context.Context, sf *Storefront) {
	if r.deps.Carts == nil {
		return
	}
	if err := r.deps.Carts.SaveCart(ctx, sf.ID, sf.Cart.Items()); err != nil {
		r.deps.Logger.Warn("Failed to persist cart", zap.String("visitor_id", sf.ID), zap.Error(err))
	}
}

// Sweep evicts storefronts idle since before now-IdleTTL. A storefront with a
// checkout in flight is kept.
func (r *StorefrontRegistry) Sweep(now time.Time) int {
	var evicted []*Storefront

	r.mu.Lock()
	for id, sf := range r.sessions {
		if now.Sub(sf.lastSeen) <= r.deps.IdleTTL || sf.Checkout.Busy() {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, sf)
	}
	r.mu.Unlock()

	for _, sf := range evicted {
		sf.Session.Close()
	}
	if len(evicted) > 0 {
		r.deps.Logger.Debug("Evicted idle storefronts", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is cancelled.
func (r *StorefrontRegistry) Run(ctx context.Context) {
	interval := r.deps.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

func (r *StorefrontRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
