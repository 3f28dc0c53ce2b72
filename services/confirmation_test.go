package services_test

import (
	"context"
	"testing"
	"time"

	apperrors "storefront-service/common/errors"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrder() *models.Order {
	return &models.Order{
		OrderID:           "MR-0123456789ABCDEF",
		CreatedAt:         time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		SessionCredential: validCredential,
		Account:           models.OrderAccount{ID: testAccount().ID, Name: "Ada", Email: "ada@example.com"},
		Payment: models.PaymentDetails{
			Method:             models.PaymentMethodCrypto,
			Network:            "USDT (TRC20)",
			TxReference:        models.TxReferenceMissing,
			DestinationAddress: "TMockAddress1234567890DEMOONLY0000",
		},
		LineItems: []models.OrderLineItem{
			{ProductRef: "latte-copy-pack", Name: "Silent Patch", UnitPriceCents: 10000, Quantity: 2},
		},
		TotalsCents: 20000,
	}
}

func TestRenderOrder_Empty(t *testing.T) {
	view := services.RenderOrder(nil)

	assert.True(t, view.Empty)
	assert.Equal(t, "No recent order", view.Message)
	assert.Empty(t, view.LineItems)
}

func TestRenderOrder_Formats(t *testing.T) {
	view := services.RenderOrder(sampleOrder())

	assert.False(t, view.Empty)
	assert.Equal(t, "MR-0123456789ABCDEF", view.OrderID)
	assert.Equal(t, "$200.00", view.Total)
	assert.Equal(t, "Sat, 14 Mar 2026 15:09:26 UTC", view.PlacedAt)
	require.Len(t, view.LineItems, 1)
	assert.Equal(t, "$100.00", view.LineItems[0].UnitPrice)
	assert.Equal(t, "$200.00", view.LineItems[0].LineTotal)
}

func TestRenderOrder_MissingFields(t *testing.T) {
	order := sampleOrder()
	order.CreatedAt = time.Time{}
	order.Account.Name = ""
	order.Payment.Network = " "

	view := services.RenderOrder(order)

	assert.Equal(t, services.NotRecorded, view.PlacedAt)
	assert.Equal(t, services.NotRecorded, view.CustomerName)
	assert.Equal(t, services.NotRecorded, view.Network)
	assert.Equal(t, "ada@example.com", view.CustomerEmail)
}

func TestConfirmationRenderer_Render(t *testing.T) {
	orders := &fakeOrders{}
	r := services.NewConfirmationRenderer(orders, zap.NewNop())

	view, err := r.Render(context.Background(), testAccount().ID)
	require.NoError(t, err)
	assert.True(t, view.Empty)

	orders.saved = append(orders.saved, sampleOrder())
	view, err = r.Render(context.Background(), testAccount().ID)
	require.NoError(t, err)
	assert.Equal(t, "MR-0123456789ABCDEF", view.OrderID)

	orders.lastErr = errBackendDown
	_, err = r.Render(context.Background(), testAccount().ID)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
}
