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

// LastOrderCache keeps the single most recent order per account in Redis.
type LastOrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLastOrderCache(client *redis.Client, ttl time.Duration) *LastOrderCache {
	return &LastOrderCache{client: client, ttl: ttl}
}

func (c *LastOrderCache) key(userID string) string {
	return fmt.Sprintf("order:last:user:%s", userID)
}

// Get returns nil without error on a cache miss.
func (c *LastOrderCache) Get(ctx context.Context, userID string) (*models.Order, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Set replaces the slot for the order's account.
func (c *LastOrderCache) Set(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(order.Account.ID), data, c.ttl).Err()
}
