package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodCrypto  = "Crypto"
	TxReferenceMissing   = "(not provided)"
	orderIDPrefix        = "MR-"
	orderIDRandomHexSize = 16
)

// NewOrderID returns "MR-" followed by 64 random bits as uppercase hex.
func NewOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderIDPrefix + strings.ToUpper(hex[:orderIDRandomHexSize])
}

// OrderAccount is a frozen copy of the buyer at the time of purchase.
type OrderAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PaymentDetails struct {
	Method             string `json:"method"`
	Network            string `json:"network"`
	TxReference        string `json:"txReference"`
	DestinationAddress string `json:"destinationAddress"`
}

type OrderLineItem struct {
	ProductRef     string `json:"productRef"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
}

// Order is immutable once created. Its JSON form is the persisted shape.
type Order struct {
	OrderID           string          `json:"orderId"`
	CreatedAt         time.Time       `json:"createdAt"`
	SessionCredential string          `json:"sessionCredential"`
	Account           OrderAccount    `json:"account"`
	Payment           PaymentDetails  `json:"payment"`
	LineItems         []OrderLineItem `json:"lineItems"`
	TotalsCents       int64           `json:"totalsCents"`
}

// SnapshotLineItems copies cart lines into order lines.
func SnapshotLineItems(items []CartItem) []OrderLineItem {
	out := make([]OrderLineItem, len(items))
	for i, item := range items {
		out[i] = OrderLineItem{
			ProductRef:     item.ProductRef,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		}
	}
	return out
}

// OrderRecord is the orders table row. Payload holds the full Order JSON.
type OrderRecord struct {
	OrderID    string    `gorm:"primaryKey;size:32"`
	UserID     string    `gorm:"type:uuid;index;not null"`
	TotalCents int64     `gorm:"not null"`
	Payload    string    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"index"`
}

func (OrderRecord) TableName() string { return "orders" }

// NewOrderRecord serialises an order into its table row.
func NewOrderRecord(o *Order) (*OrderRecord, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order %s: %w", o.OrderID, err)
	}
	return &OrderRecord{
		OrderID:    o.OrderID,
		UserID:     o.Account.ID,
		TotalCents: o.TotalsCents,
		Payload:    string(payload),
		CreatedAt:  o.CreatedAt,
	}, nil
}

// ToOrder decodes the stored payload.
func (r *OrderRecord) ToOrder() (*Order, error) {
	var o Order
	if err := json.Unmarshal([]byte(r.Payload), &o); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", r.OrderID, err)
	}
	return &o, nil
}
