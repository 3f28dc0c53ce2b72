package models_test

import (
	"regexp"
	"testing"
	"time"

	"storefront-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", models.FormatCents(0))
	assert.Equal(t, "$0.05", models.FormatCents(5))
	assert.Equal(t, "$199.00", models.FormatCents(19900))
	assert.Equal(t, "$1234.56", models.FormatCents(123456))
	assert.Equal(t, "-$2.50", models.FormatCents(-250))
}

func TestDollarsToCents(t *testing.T) {
	assert.Equal(t, int64(10000), models.DollarsToCents(100))
	assert.Equal(t, int64(0), models.DollarsToCents(0))
}

func TestNewOrderID(t *testing.T) {
	pattern := regexp.MustCompile(`^MR-[0-9A-F]{16}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := models.NewOrderID()
		require.Regexp(t, pattern, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestOrderRecord_RoundTrip(t *testing.T) {
	order := &models.Order{
		OrderID:   "MR-0123456789ABCDEF",
		CreatedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		Account:   models.OrderAccount{ID: "6f1c2d9e-8b0a-4c1e-9f7a-1b2c3d4e5f60", Name: "Ada"},
		LineItems: models.SnapshotLineItems([]models.CartItem{
			{ProductRef: "latte-copy-pack", Name: "Silent Patch", UnitPriceCents: 10000, Quantity: 2},
		}),
		TotalsCents: 20000,
	}

	rec, err := models.NewOrderRecord(order)
	require.NoError(t, err)
	assert.Equal(t, order.Account.ID, rec.UserID)
	assert.Equal(t, int64(20000), rec.TotalCents)

	decoded, err := rec.ToOrder()
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}
