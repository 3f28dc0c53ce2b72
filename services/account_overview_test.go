package services_test

import (
	"context"
	"testing"

	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverview_Complete(t *testing.T) {
	orders := &fakeOrders{}
	first := sampleOrder()
	second := sampleOrder()
	second.OrderID = "MR-FFFFFFFFFFFFFFFF"
	orders.saved = append(orders.saved, first, second)

	svc := services.NewAccountOverviewService(&fakeBalances{balance: 12345}, orders, zap.NewNop())
	overview := svc.Overview(context.Background(), *testAccount())

	require.NotNil(t, overview.BalanceCents)
	assert.Equal(t, int64(12345), *overview.BalanceCents)
	assert.Equal(t, "$123.45", overview.Balance)
	require.Len(t, overview.Orders, 2)
	assert.Equal(t, "MR-FFFFFFFFFFFFFFFF", overview.Orders[0].OrderID)
	assert.Empty(t, overview.Warnings)
}

func TestOverview_PartialOnFailures(t *testing.T) {
	svc := services.NewAccountOverviewService(
		&fakeBalances{getErr: errBackendDown},
		&fakeOrders{listErr: errBackendDown},
		zap.NewNop(),
	)
	overview := svc.Overview(context.Background(), *testAccount())

	assert.Nil(t, overview.BalanceCents)
	assert.Empty(t, overview.Orders)
	assert.NotNil(t, overview.Orders)
	assert.ElementsMatch(t, []string{services.MsgBalanceUnavailable, services.MsgOrdersUnavailable}, overview.Warnings)
	assert.Equal(t, testAccount().ID, overview.Account.ID)
}
