package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidAmount rejects zero or negative balance movements.
var ErrInvalidAmount = errors.New("amount must be positive")

// BalanceRepository stores prepaid balances and the ledger of movements.
type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// GetBalance returns 0 for accounts that never topped up.
func (r *BalanceRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance models.Balance
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.BalanceCents, nil
}

// Debit atomically subtracts amountCents. The conditional update refuses to
// take the balance negative and reports models.ErrInsufficientBalance instead.
func (r *BalanceRepository) Debit(ctx context.Context, userID string, amountCents int64, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Balance{}).
			Where("user_id = ? AND balance_cents >= ?", userID, amountCents).
			Update("balance_cents", gorm.Expr("balance_cents - ?", amountCents))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrInsufficientBalance
		}
		return tx.Create(newLedgerEntry(userID, models.LedgerDebit, amountCents, reference)).Error
	})
}

// Refund reverses a debit made under the same reference.
func (r *BalanceRepository) Refund(ctx context.Context, userID string, amountCents int64, reference string) error {
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertIncrement(tx, userID, amountCents); err != nil {
			return err
		}
		return tx.Create(newLedgerEntry(userID, models.LedgerRefund, amountCents, reference)).Error
	})
}

// Credit adds a settled top-up. It is idempotent by reference: a replayed
// settlement returns applied=false and leaves the balance untouched.
func (r *BalanceRepository) Credit(ctx context.Context, userID string, amountCents int64, reference string) (bool, error) {
	if amountCents <= 0 {
		return false, ErrInvalidAmount
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newLedgerEntry(userID, models.LedgerCredit, amountCents, reference)).Error; err != nil {
			return err
		}
		return upsertIncrement(tx, userID, amountCents)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to credit balance: %w", err)
	}
	return true, nil
}

func upsertIncrement(tx *gorm.DB, userID string, amountCents int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance_cents": gorm.Expr("balances.balance_cents + ?", amountCents),
			"updated_at":    time.Now(),
		}),
	}).Create(&models.Balance{UserID: userID, BalanceCents: amountCents}).Error
}

func newLedgerEntry(userID string, kind models.LedgerKind, amountCents int64, reference string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		AmountCents: amountCents,
		Reference:   reference,
	}
}
