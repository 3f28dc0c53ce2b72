package services

import (
	"context"
	"sync"

	"storefront-service/models"
)

// AccountClient is one visitor's handle on the identity backend. It holds the
// visitor's access token and pushes sign-in and sign-out changes to subscribers.
type AccountClient struct {
	backend IdentityBackend

	mu          sync.Mutex
	token       string
	subscribers map[uint64]func(*models.Identity)
	nextID      uint64
}

func NewAccountClient(backend IdentityBackend, token string) *AccountClient {
	return &AccountClient{
		backend:     backend,
		token:       token,
		subscribers: make(map[uint64]func(*models.Identity)),
	}
}

// Token is the current access token, empty when signed out.
func (c *AccountClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *AccountClient) ResolveCurrentIdentity(ctx context.Context) (*models.Identity, error) {
	token := c.Token()
	identity, err := c.backend.IdentityFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if identity == nil {
		c.mu.Lock()
		if c.token == token {
			c.token = ""
		}
		c.mu.Unlock()
	}
	return identity, nil
}

func (c *AccountClient) Subscribe(onChange func(*models.Identity)) Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = onChange
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *AccountClient) CreateIdentity(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.Identity, error) {
	identity, token, err := c.backend.CreateIdentity(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}
	c.signedIn(identity, token)
	return identity, nil
}

func (c *AccountClient) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	identity, token, err := c.backend.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.signedIn(identity, token)
	return identity, nil
}

func (c *AccountClient) SignOut(_ context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.notify(nil)
	return nil
}

func (c *AccountClient) signedIn(identity *models.Identity, token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.notify(identity)
}

// notify runs callbacks outside the lock so they may call back into the client.
func (c *AccountClient) notify(identity *models.Identity) {
	c.mu.Lock()
	subs := make([]func(*models.Identity), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(identity)
	}
}
