package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-service/models"

	"github.com/redis/go-redis/v9"
)

type storedCart struct {
	VisitorID string            `json:"visitor_id"`
	Items     []models.CartItem `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CartRepository snapshots visitor carts into Redis with a sliding TTL.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *CartRepository) getKey(visitorID string) string {
	return fmt.Sprintf("cart:visitor:%s", visitorID)
}

// GetCart returns nil without error when no snapshot exists.
func (r *CartRepository) GetCart(ctx context.Context, visitorID string) ([]models.CartItem, error) {
	data, err := r.client.Get(ctx, r.getKey(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart storedCart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return cart.Items, nil
}

// SaveCart stores the lines; an empty cart deletes the snapshot.
func (r *CartRepository) SaveCart(ctx context.Context, visitorID string, items []models.CartItem) error {
	if len(items) == 0 {
		return r.DeleteCart(ctx, visitorID)
	}

	data, err := json.Marshal(storedCart{
		VisitorID: visitorID,
		Items:     items,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getKey(visitorID), data, r.ttl).Err()
}

func (r *CartRepository) DeleteCart(ctx context.Context, visitorID string) error {
	return r.client.Del(ctx, r.getKey(visitorID)).Err()
}
