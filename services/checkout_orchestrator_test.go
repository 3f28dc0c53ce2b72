package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "storefront-service/common/errors"
	"storefront-service/events"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkoutFixture struct {
	cart      *models.Cart
	session   *fakeSession
	balances  *fakeBalances
	orders    *fakeOrders
	publisher *fakePublisher
	orch      *services.CheckoutOrchestrator
}

func newCheckoutFixture(t *testing.T, balance int64, mutate func(*services.CheckoutConfig)) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		cart:      models.NewCart(),
		session:   &fakeSession{ready: true, account: testAccount()},
		balances:  &fakeBalances{balance: balance},
		orders:    &fakeOrders{},
		publisher: &fakePublisher{},
	}
	cfg := services.CheckoutConfig{
		BalanceTimeout:    time.Second,
		DebitOnCommit:     true,
		PaymentNetwork:    "USDT (TRC20)",
		DemoWalletAddress: "TMockAddress1234567890DEMOONLY0000",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.orch = services.NewCheckoutOrchestrator(services.CheckoutDeps{
		Cart:      f.cart,
		Session:   f.session,
		Balances:  f.balances,
		Orders:    f.orders,
		Verifier:  services.NewStaticCredentialVerifier(validCredential),
		Publisher: f.publisher,
		Logger:    zap.NewNop(),
	}, cfg)
	return f
}

func TestStart_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)

	snap, err := f.orch.Start(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
	assert.Contains(t, err.Error(), services.MsgCartEmpty)
	assert.Equal(t, models.CheckoutIdle, snap.State)
}

func TestStart_SignedOut(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	f.session.account = nil

	_, err := f.orch.Start(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
	assert.Contains(t, err.Error(), services.MsgSignInRequired)
}

func TestStart_SufficientBalance(t *testing.T) {
	f := newCheckoutFixture(t, 50000, nil)
	f.cart.AddItem(mustProduct("dark-roast-ui-kit"), 2) // 2 x 199.00

	snap, err := f.orch.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.CheckoutAwaitingCredential, snap.State)
	assert.Equal(t, int64(39800), snap.RequiredCents)
	assert.Equal(t, int64(50000), snap.BalanceCents)
	assert.True(t, strings.HasPrefix(snap.OrderID, "MR-"))
	assert.Equal(t, uint64(1), snap.AttemptID)
}

func TestStart_InsufficientBalanceIsNotAnError(t *testing.T) {
	f := newCheckoutFixture(t, 1000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)

	snap, err := f.orch.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.CheckoutInsufficientFunds, snap.State)
	assert.Equal(t, services.TopUpPath, snap.Redirect)
	assert.Equal(t, int64(10000), snap.RequiredCents)
}

func TestStart_BalanceErrorFailsClosed(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.balances.getErr = errBackendDown
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)

	snap, err := f.orch.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.CheckoutInsufficientFunds, snap.State)
	assert.Equal(t, int64(0), snap.BalanceCents)
}

func TestStart_BalanceTimeoutFailsClosed(t *testing.T) {
	f := newCheckoutFixture(t, 999999, func(c *services.CheckoutConfig) {
		c.BalanceTimeout = 20 * time.Millisecond
	})
	f.balances.release = make(chan struct{}) // never released
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)

	start := time.Now()
	snap, err := f.orch.Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.CheckoutInsufficientFunds, snap.State)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStart_RejectsConcurrentAttempt(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.balances.called = make(chan struct{}, 1)
	f.balances.release = make(chan struct{})
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orch.Start(context.Background())
	}()
	<-f.balances.called

	_, err := f.orch.Start(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	assert.True(t, f.orch.Busy())

	close(f.balances.release)
	<-done
	assert.Equal(t, models.CheckoutAwaitingCredential, f.orch.Snapshot().State)
}

func TestStart_StaleBalanceResultIsDropped(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.balances.called = make(chan struct{}, 1)
	f.balances.release = make(chan struct{})
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)

	type result struct {
		snap models.CheckoutSnapshot
		err  error
	}
	out := make(chan result, 1)
	go func() {
		snap, err := f.orch.Start(context.Background())
		out <- result{snap, err}
	}()
	<-f.balances.called

	require.NoError(t, f.orch.Reset())
	close(f.balances.release)
	r := <-out

	require.Error(t, r.err)
	assert.True(t, apperrors.Is(r.err, apperrors.KindConflict))
	assert.Equal(t, models.CheckoutIdle, f.orch.Snapshot().State)
	assert.Equal(t, int64(0), f.orch.Snapshot().BalanceCents)
}

func TestSubmit_BeforeStart(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)

	_, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
}

func TestSubmit_FormatErrorKeepsCartAndAllowsRetry(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: "not-hex"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindFormat))
	assert.Equal(t, models.CheckoutError, f.orch.Snapshot().State)
	assert.Equal(t, services.MsgCredentialFormat, f.orch.Snapshot().Reason)
	assert.False(t, f.cart.IsEmpty())

	order, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, models.CheckoutCommitted, f.orch.Snapshot().State)
}

func TestSubmit_CredentialMismatch(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	other := strings.Repeat("a", services.CredentialLength)
	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: other})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindCredentialMismatch))
	assert.Contains(t, err.Error(), services.MsgCredentialMismatch)
	assert.False(t, f.cart.IsEmpty())
	assert.Empty(t, f.orders.saved)
}

func TestSubmit_VerifierFailure(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	orch := services.NewCheckoutOrchestrator(services.CheckoutDeps{
		Cart:     f.cart,
		Session:  f.session,
		Balances: f.balances,
		Orders:   f.orders,
		Verifier: fakeVerifier{err: errBackendDown},
	}, services.CheckoutConfig{BalanceTimeout: time.Second})
	_, err := orch.Start(context.Background())
	require.NoError(t, err)

	_, err = orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
	assert.Equal(t, models.CheckoutError, orch.Snapshot().State)
}

func TestSubmit_CommitsOrder(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 2)
	f.cart.AddItem(mustProduct("cold-brew-icon-pack"), 1)
	snap, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	order, err := f.orch.Submit(context.Background(), services.SubmitInput{
		Credential: "  " + strings.ToUpper(validCredential) + "\n",
	})
	require.NoError(t, err)

	assert.Equal(t, snap.OrderID, order.OrderID)
	assert.Equal(t, validCredential, order.SessionCredential)
	assert.Equal(t, int64(35000), order.TotalsCents)
	assert.Len(t, order.LineItems, 2)
	assert.Equal(t, "Ada", order.Account.Name)
	assert.Equal(t, models.PaymentMethodCrypto, order.Payment.Method)
	assert.Equal(t, "USDT (TRC20)", order.Payment.Network)
	assert.Equal(t, models.TxReferenceMissing, order.Payment.TxReference)
	assert.Equal(t, "TMockAddress1234567890DEMOONLY0000", order.Payment.DestinationAddress)

	assert.True(t, f.cart.IsEmpty())
	assert.Len(t, f.orders.saved, 1)
	assert.Equal(t, []string{order.OrderID}, f.balances.debits)
	assert.Equal(t, int64(65000), f.balances.Balance())

	after := f.orch.Snapshot()
	assert.Equal(t, models.CheckoutCommitted, after.State)
	assert.Equal(t, order, after.LastOrder)
	assert.Equal(t, int64(65000), after.BalanceCents)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.TypeOrderCommitted, f.publisher.events[0].Type)
	assert.Equal(t, order.OrderID, f.publisher.events[0].OrderID)
}

func TestSubmit_OrderIsASnapshot(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	order, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential, TxReference: "tx-1"})
	require.NoError(t, err)

	f.cart.AddItem(mustProduct("cold-brew-icon-pack"), 3)
	f.session.account.DisplayName = "Changed"

	assert.Len(t, order.LineItems, 1)
	assert.Equal(t, "Ada", order.Account.Name)
	assert.Equal(t, "tx-1", order.Payment.TxReference)
}

func TestSubmit_SaveFailureRefundsAndKeepsCart(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.orders.saveErr = errBackendDown
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	snap, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
	assert.False(t, f.cart.IsEmpty())
	assert.Equal(t, []string{snap.OrderID}, f.balances.debits)
	assert.Equal(t, []string{snap.OrderID}, f.balances.refunds)
	assert.Equal(t, int64(100000), f.balances.Balance())

	after := f.orch.Snapshot()
	assert.Equal(t, models.CheckoutError, after.State)
	assert.NotEqual(t, snap.OrderID, after.OrderID)
	assert.Nil(t, after.LastOrder)
	assert.Empty(t, f.publisher.events)

	// the retry commits under the fresh order id
	f.orders.saveErr = nil
	order, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})
	require.NoError(t, err)
	assert.Equal(t, after.OrderID, order.OrderID)
	assert.True(t, f.cart.IsEmpty())
}

func TestSubmit_DebitRefused(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	// balance spent elsewhere between the check and the commit
	f.balances.mu.Lock()
	f.balances.balance = 500
	f.balances.mu.Unlock()

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientFunds))
	assert.Equal(t, models.CheckoutInsufficientFunds, f.orch.Snapshot().State)
	assert.Equal(t, services.TopUpPath, f.orch.Snapshot().Redirect)
	assert.Empty(t, f.orders.saved)
	assert.False(t, f.cart.IsEmpty())
}

func TestSubmit_DebitBackendFailure(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.balances.debitErr = errBackendDown
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
	assert.Empty(t, f.orders.saved)
	assert.False(t, f.cart.IsEmpty())
}

func TestSubmit_CartGrewPastBalance(t *testing.T) {
	f := newCheckoutFixture(t, 15000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientFunds))
	assert.Empty(t, f.balances.debits)
}

func TestSubmit_CartEmptiedAfterStart(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	f.cart.Clear()
	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
	assert.Equal(t, models.CheckoutError, f.orch.Snapshot().State)
}

func TestSubmit_WithoutDebit(t *testing.T) {
	f := newCheckoutFixture(t, 100000, func(c *services.CheckoutConfig) {
		c.DebitOnCommit = false
	})
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.NoError(t, err)
	assert.Empty(t, f.balances.debits)
	assert.Equal(t, int64(100000), f.balances.Balance())
}

func TestSubmit_PublishFailureDoesNotFailCommit(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.publisher.err = errors.New("broker down")
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	order, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, models.CheckoutCommitted, f.orch.Snapshot().State)
}

func TestReset_ReturnsToIdle(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.orch.Reset())

	snap := f.orch.Snapshot()
	assert.Equal(t, models.CheckoutIdle, snap.State)
	assert.Empty(t, snap.OrderID)
	assert.False(t, f.cart.IsEmpty())

	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})
	assert.True(t, apperrors.Is(err, apperrors.KindPrecondition))
}

func TestStart_AfterCommitOpensNewAttempt(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	first, err := f.orch.Start(context.Background())
	require.NoError(t, err)
	_, err = f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})
	require.NoError(t, err)

	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	second, err := f.orch.Start(context.Background())

	require.NoError(t, err)
	assert.Greater(t, second.AttemptID, first.AttemptID)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.NotNil(t, second.LastOrder)
}

func TestStart_FundsBoundary(t *testing.T) {
	tests := []struct {
		name      string
		balance   int64
		wantState models.CheckoutState
	}{
		{"one cent short", 9999, models.CheckoutInsufficientFunds},
		{"exact balance", 10000, models.CheckoutAwaitingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture(t, tt.balance, nil)
			f.cart.AddItem(mustProduct("latte-copy-pack"), 1) // 100.00

			snap, err := f.orch.Start(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantState, snap.State)
			assert.Equal(t, int64(10000), snap.RequiredCents)
			assert.Equal(t, tt.balance, snap.BalanceCents)
			assert.Empty(t, f.orders.saved)
			assert.Len(t, f.cart.Items(), 1)
		})
	}
}

func TestSubmit_CartChangesDuringSaveAreKept(t *testing.T) {
	f := newCheckoutFixture(t, 100000, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	f.orders.onSave = func() {
		f.cart.AddItem(mustProduct("dark-roast-ui-kit"), 1)
		f.cart.AddItem(mustProduct("latte-copy-pack"), 2)
	}

	order, err := f.orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})
	require.NoError(t, err)

	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "latte-copy-pack", order.LineItems[0].ProductRef)
	assert.Equal(t, 1, order.LineItems[0].Quantity)

	items := f.cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "latte-copy-pack", items[0].ProductRef)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "dark-roast-ui-kit", items[1].ProductRef)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestSubmit_VerifierTimeout(t *testing.T) {
	f := newCheckoutFixture(t, 999999, nil)
	f.cart.AddItem(mustProduct("latte-copy-pack"), 1)
	release := make(chan struct{})
	defer close(release)
	orch := services.NewCheckoutOrchestrator(services.CheckoutDeps{
		Cart:     f.cart,
		Session:  f.session,
		Balances: f.balances,
		Orders:   f.orders,
		Verifier: hangingVerifier{release: release},
	}, services.CheckoutConfig{BalanceTimeout: time.Second, VerifyTimeout: 20 * time.Millisecond})
	_, err := orch.Start(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = orch.Submit(context.Background(), services.SubmitInput{Credential: validCredential})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindBackendUnavailable))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, models.CheckoutError, orch.Snapshot().State)
	assert.Empty(t, f.orders.saved)
	assert.False(t, f.cart.IsEmpty())

	require.NoError(t, orch.Reset())
	assert.Equal(t, models.CheckoutIdle, orch.Snapshot().State)
}
