package repository

import (
	"context"
	"errors"

	"storefront-service/models"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, record *models.OrderRecord) error
	ListByUser(ctx context.Context, userID string) ([]models.OrderRecord, error)
	FindLatestByUser(ctx context.Context, userID string) (*models.OrderRecord, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, record *models.OrderRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByUser returns the user's orders newest first.
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// FindLatestByUser returns nil without error when the user has no orders.
func (r *GormOrderRepository) FindLatestByUser(ctx context.Context, userID string) (*models.OrderRecord, error) {
	var record models.OrderRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
