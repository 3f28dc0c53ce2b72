package services

import (
	"context"
	"time"

	"storefront-service/models"
)

// Unsubscribe cancels a subscription. Calling it more than once is safe.
type Unsubscribe func()

// AccountService is the identity backend as seen by one visitor.
type AccountService interface {
	ResolveCurrentIdentity(ctx context.Context) (*models.Identity, error)
	Subscribe(onChange func(*models.Identity)) Unsubscribe
	CreateIdentity(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*models.Identity, error)
	SignOut(ctx context.Context) error
}

type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	FetchProfile(ctx context.Context, id string) (*models.Profile, error)
}

type BalanceService interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, userID string, amountCents int64, reference string) error
	Refund(ctx context.Context, userID string, amountCents int64, reference string) error
}

type BalanceCreditor interface {
	Credit(ctx context.Context, userID string, amountCents int64, reference string) (bool, error)
}

type OrderStore interface {
	SaveOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetLastOrder(ctx context.Context, userID string) (*models.Order, error)
}

// CredentialVerifier decides whether a normalized session credential is
// acceptable for the account.
type CredentialVerifier interface {
	Verify(ctx context.Context, account models.Account, credential string) (bool, error)
}

type CartPersister interface {
	GetCart(ctx context.Context, visitorID string) ([]models.CartItem, error)
	SaveCart(ctx context.Context, visitorID string, items []models.CartItem) error
}

// MetricsRecorder is satisfied by pkg/aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}
