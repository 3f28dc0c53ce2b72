package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned when a debit would take a balance below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Balance is an account's prepaid balance in cents. It never goes negative.
type Balance struct {
	UserID       string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	BalanceCents int64     `gorm:"not null;check:balance_cents >= 0" json:"balance_cents"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type LedgerKind string

const (
	LedgerDebit  LedgerKind = "DEBIT"
	LedgerRefund LedgerKind = "REFUND"
	LedgerCredit LedgerKind = "CREDIT"
)

// LedgerEntry records every balance movement. (Kind, Reference) is unique so
// replays of the same settlement or order are detected.
type LedgerEntry struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind        LedgerKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_ledger_kind_reference" json:"kind"`
	AmountCents int64      `gorm:"not null" json:"amount_cents"`
	Reference   string     `gorm:"not null;uniqueIndex:idx_ledger_kind_reference" json:"reference"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "balance_ledger" }
