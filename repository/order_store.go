package repository

import (
	"context"
	"fmt"

	"storefront-service/models"

	"go.uber.org/zap"
)

// OrderStore persists orders in Postgres and mirrors the newest one per
// account into the Redis last-order slot.
type OrderStore struct {
	repo   OrderRepository
	cache  *LastOrderCache
	logger *zap.Logger
}

func NewOrderStore(repo OrderRepository, cache *LastOrderCache, logger *zap.Logger) *OrderStore {
	return &OrderStore{repo: repo, cache: cache, logger: logger}
}

// SaveOrder succeeds once the row is written. The cache slot is best-effort
// and refills from Postgres on the next read if the write is lost.
func (s *OrderStore) SaveOrder(ctx context.Context, order *models.Order) error {
	record, err := models.NewOrderRecord(order)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.OrderID, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, order); err != nil {
			s.logger.Warn("Failed to update last-order slot",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// ListOrders returns the account's orders newest first.
func (s *OrderStore) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]models.Order, 0, len(records))
	for i := range records {
		order, err := records[i].ToOrder()
		if err != nil {
			s.logger.Warn("Skipping undecodable order", zap.String("order_id", records[i].OrderID), zap.Error(err))
			continue
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// GetLastOrder returns nil without error when the account has no orders.
func (s *OrderStore) GetLastOrder(ctx context.Context, userID string) (*models.Order, error) {
	if s.cache != nil {
		order, err := s.cache.Get(ctx, userID)
		if err == nil && order != nil {
			return order, nil
		}
		if err != nil {
			s.logger.Warn("Last-order slot unavailable, reading Postgres", zap.Error(err))
		}
	}

	record, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load last order: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	order, err := record.ToOrder()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, order); err != nil {
			s.logger.Debug("Failed to refill last-order slot", zap.Error(err))
		}
	}
	return order, nil
}
