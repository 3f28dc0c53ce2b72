package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "storefront-service/common/errors"
	"storefront-service/events"
	"storefront-service/models"
	awspkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

// TopUpPath is where an underfunded checkout sends the visitor.
const TopUpPath = "/add-balance"

type CheckoutConfig struct {
	BalanceTimeout    time.Duration
	VerifyTimeout     time.Duration
	DebitOnCommit     bool
	PaymentNetwork    string
	DemoWalletAddress string
}

// AccountSource is the part of AccountSession the orchestrator reads.
type AccountSource interface {
	Account() *models.Account
}

type CheckoutDeps struct {
	Cart      *models.Cart
	Session   AccountSource
	Balances  BalanceService
	Orders    OrderStore
	Verifier  CredentialVerifier
	Publisher events.Publisher
	Metrics   MetricsRecorder
	Logger    *zap.Logger
}

type SubmitInput struct {
	Credential  string
	Network     string
	TxReference string
}

// CheckoutOrchestrator runs one visitor's checkout attempts. At most one
// attempt is in flight; results from a replaced attempt are dropped.
type CheckoutOrchestrator struct {
	cart      *models.Cart
	session   AccountSource
	balances  BalanceService
	orders    OrderStore
	verifier  CredentialVerifier
	publisher events.Publisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	cfg       CheckoutConfig

	now        func() time.Time
	newOrderID func() string

	mu            sync.Mutex
	state         models.CheckoutState
	attempt       uint64
	orderID       string
	balanceCents  int64
	requiredCents int64
	balancePassed bool
	committing    bool
	reason        string
	redirect      string
	lastOrder     *models.Order
}

func NewCheckoutOrchestrator(deps CheckoutDeps, cfg CheckoutConfig) *CheckoutOrchestrator {
	if cfg.BalanceTimeout <= 0 {
		cfg.BalanceTimeout = 5 * time.Second
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = 5 * time.Second
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutOrchestrator{
		cart:       deps.Cart,
		session:    deps.Session,
		balances:   deps.Balances,
		orders:     deps.Orders,
		verifier:   deps.Verifier,
		publisher:  publisher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		newOrderID: models.NewOrderID,
		state:      models.CheckoutIdle,
	}
}

// Start opens a new attempt and checks the balance against the cart subtotal.
// An underfunded balance is reported through the snapshot, not as an error.
func (o *CheckoutOrchestrator) Start(ctx context.Context) (models.CheckoutSnapshot, error) {
	account := o.session.Account()

	o.mu.Lock()
	if o.inFlightLocked() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, apperrors.Conflict(MsgCheckoutInProgress)
	}
	if o.cart.IsEmpty() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, apperrors.Precondition(MsgCartEmpty)
	}
	if account == nil {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, apperrors.Precondition(MsgSignInRequired)
	}

	o.attempt++
	attempt := o.attempt
	o.state = models.CheckoutLoadingBalance
	o.orderID = o.newOrderID()
	o.balanceCents = 0
	o.requiredCents = 0
	o.balancePassed = false
	o.reason = ""
	o.redirect = ""
	o.mu.Unlock()

	o.record(awspkg.MetricCheckoutStarted)

	balance := o.fetchBalance(ctx, account.ID)
	required := o.cart.Totals().SubtotalCents

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attempt != attempt || o.state != models.CheckoutLoadingBalance {
		o.logger.Debug("Dropping stale balance result", zap.Uint64("attempt", attempt))
		return o.snapshotLocked(), apperrors.Conflict(MsgCheckoutRestarted)
	}

	o.balanceCents = balance
	o.requiredCents = required
	if balance < required {
		o.state = models.CheckoutInsufficientFunds
		o.reason = MsgInsufficientFunds
		o.redirect = TopUpPath
		o.record(awspkg.MetricCheckoutInsufficientFunds)
		return o.snapshotLocked(), nil
	}

	o.balancePassed = true
	o.state = models.CheckoutAwaitingCredential
	return o.snapshotLocked(), nil
}

// fetchBalance fails closed: errors and timeouts read as a zero balance.
func (o *CheckoutOrchestrator) fetchBalance(ctx context.Context, accountID string) int64 {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.BalanceTimeout)
	defer cancel()

	type result struct {
		cents int64
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		cents, err := o.balances.GetBalance(ctx, accountID)
		ch <- result{cents: cents, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			o.logger.Warn("Balance lookup failed, treating balance as zero",
				zap.String("user_id", accountID),
				zap.Error(r.err),
			)
			return 0
		}
		if r.cents < 0 {
			return 0
		}
		return r.cents
	case <-ctx.Done():
		o.logger.Warn("Balance lookup timed out, treating balance as zero",
			zap.String("user_id", accountID),
			zap.Duration("timeout", o.cfg.BalanceTimeout),
		)
		return 0
	}
}

// verify bounds the verifier so a stuck backend cannot pin the attempt in
// Validating.
func (o *CheckoutOrchestrator) verify(ctx context.Context, account models.Account, credential string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.VerifyTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		ok, err := o.verifier.Verify(ctx, account, credential)
		ch <- result{ok: ok, err: err}
	}()

	select {
	case r := <-ch:
		return r.ok, r.err
	case <-ctx.Done():
		return false, fmt.Errorf("credential verification: %w", ctx.Err())
	}
}

// Submit validates the session credential and commits the order.
func (o *CheckoutOrchestrator) Submit(ctx context.Context, in SubmitInput) (*models.Order, error) {
	o.mu.Lock()
	if o.inFlightLocked() {
		o.mu.Unlock()
		return nil, apperrors.Conflict(MsgCheckoutInProgress)
	}
	resumable := o.state == models.CheckoutAwaitingCredential ||
		(o.state == models.CheckoutError && o.balancePassed)
	if !resumable {
		o.mu.Unlock()
		return nil, apperrors.Precondition(MsgCheckoutNotStarted)
	}
	attempt := o.attempt
	observed := o.balanceCents
	o.state = models.CheckoutValidating
	o.reason = ""
	o.mu.Unlock()

	account := o.session.Account()
	if account == nil {
		return nil, o.fail(attempt, apperrors.Precondition(MsgSignInRequired))
	}

	credential := NormalizeCredential(in.Credential)
	if !ValidCredentialFormat(credential) {
		return nil, o.fail(attempt, apperrors.Format(MsgCredentialFormat))
	}

	ok, err := o.verify(ctx, *account, credential)
	if err != nil {
		o.logger.Error("Credential verification failed", zap.String("user_id", account.ID), zap.Error(err))
		return nil, o.fail(attempt, apperrors.BackendUnavailable(MsgVerifierUnavailable, err))
	}
	if !ok {
		return nil, o.fail(attempt, apperrors.CredentialMismatch(MsgCredentialMismatch))
	}

	return o.commit(ctx, attempt, observed, *account, credential, in)
}

func (o *CheckoutOrchestrator) commit(ctx context.Context, attempt uint64, observed int64, account models.Account, credential string, in SubmitInput) (*models.Order, error) {
	items := o.cart.Items()
	if len(items) == 0 {
		return nil, o.fail(attempt, apperrors.Precondition(MsgCartEmpty))
	}
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	if total > observed {
		return nil, o.insufficient(attempt, total)
	}

	o.mu.Lock()
	if o.attempt != attempt {
		o.mu.Unlock()
		return nil, apperrors.Conflict(MsgCheckoutRestarted)
	}
	o.committing = true
	orderID := o.orderID
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.committing = false
		o.mu.Unlock()
	}()

	order := &models.Order{
		OrderID:           orderID,
		CreatedAt:         o.now().UTC(),
		SessionCredential: credential,
		Account: models.OrderAccount{
			ID:    account.ID,
			Name:  account.DisplayName,
			Email: account.Email,
		},
		Payment:     o.paymentDetails(in),
		LineItems:   models.SnapshotLineItems(items),
		TotalsCents: total,
	}

	debited := false
	if o.cfg.DebitOnCommit && total > 0 {
		if err := o.balances.Debit(ctx, account.ID, total, orderID); err != nil {
			if errors.Is(err, models.ErrInsufficientBalance) {
				return nil, o.insufficient(attempt, total)
			}
			o.logger.Error("Balance debit failed", zap.String("order_id", orderID), zap.Error(err))
			o.renewOrderID(attempt)
			return nil, o.fail(attempt, apperrors.BackendUnavailable(MsgBalanceUnavailable, err))
		}
		debited = true
	}

	if err := o.orders.SaveOrder(ctx, order); err != nil {
		o.logger.Error("Failed to save order", zap.String("order_id", orderID), zap.Error(err))
		if debited {
			refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.BalanceTimeout)
			if rerr := o.balances.Refund(refundCtx, account.ID, total, orderID); rerr != nil {
				o.logger.Error("Refund after failed order save did not complete",
					zap.String("order_id", orderID),
					zap.String("user_id", account.ID),
					zap.Int64("amount_cents", total),
					zap.Error(rerr),
				)
			}
			cancel()
		}
		o.renewOrderID(attempt)
		return nil, o.fail(attempt, apperrors.BackendUnavailable(MsgOrderSaveFailed, err))
	}

	// Lines changed while the order was being saved stay in the cart.
	o.cart.RemoveSnapshot(items)

	o.mu.Lock()
	o.state = models.CheckoutCommitted
	o.lastOrder = order
	o.balancePassed = false
	o.reason = ""
	o.redirect = ""
	if debited {
		o.balanceCents = observed - total
	}
	o.mu.Unlock()

	o.logger.Info("Order committed",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", account.ID),
		zap.Int64("total_cents", total),
	)
	o.record(awspkg.MetricCheckoutCommitted)
	o.publish(ctx, order)
	return order, nil
}

func (o *CheckoutOrchestrator) paymentDetails(in SubmitInput) models.PaymentDetails {
	network := strings.TrimSpace(in.Network)
	if network == "" {
		network = o.cfg.PaymentNetwork
	}
	reference := strings.TrimSpace(in.TxReference)
	if reference == "" {
		reference = models.TxReferenceMissing
	}
	return models.PaymentDetails{
		Method:             models.PaymentMethodCrypto,
		Network:            network,
		TxReference:        reference,
		DestinationAddress: o.cfg.DemoWalletAddress,
	}
}

// Reset abandons the current attempt. It is refused once the order is being written.
func (o *CheckoutOrchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.committing || o.state == models.CheckoutValidating {
		return apperrors.Conflict(MsgCheckoutCommitting)
	}
	o.attempt++
	o.state = models.CheckoutIdle
	o.orderID = ""
	o.balanceCents = 0
	o.requiredCents = 0
	o.balancePassed = false
	o.reason = ""
	o.redirect = ""
	return nil
}

func (o *CheckoutOrchestrator) Snapshot() models.CheckoutSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Busy reports whether an attempt is waiting on a backend.
func (o *CheckoutOrchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlightLocked()
}

// LastOrder is the order committed most recently by this orchestrator.
func (o *CheckoutOrchestrator) LastOrder() *models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastOrder
}

func (o *CheckoutOrchestrator) inFlightLocked() bool {
	return o.committing ||
		o.state == models.CheckoutLoadingBalance ||
		o.state == models.CheckoutValidating
}

func (o *CheckoutOrchestrator) snapshotLocked() models.CheckoutSnapshot {
	return models.CheckoutSnapshot{
		State:         o.state,
		AttemptID:     o.attempt,
		OrderID:       o.orderID,
		BalanceCents:  o.balanceCents,
		RequiredCents: o.requiredCents,
		Reason:        o.reason,
		Redirect:      o.redirect,
		LastOrder:     o.lastOrder,
	}
}

func (o *CheckoutOrchestrator) fail(attempt uint64, err *apperrors.Error) error {
	o.mu.Lock()
	if o.attempt == attempt {
		o.state = models.CheckoutError
		o.reason = err.Message
	}
	o.mu.Unlock()
	o.record(awspkg.MetricCheckoutFailed)
	return err
}

func (o *CheckoutOrchestrator) insufficient(attempt uint64, required int64) error {
	o.mu.Lock()
	if o.attempt == attempt {
		o.state = models.CheckoutInsufficientFunds
		o.requiredCents = required
		o.balancePassed = false
		o.reason = MsgInsufficientFunds
		o.redirect = TopUpPath
	}
	o.mu.Unlock()
	o.record(awspkg.MetricCheckoutInsufficientFunds)
	return apperrors.InsufficientFunds(MsgInsufficientFunds)
}

// renewOrderID gives a retried commit a fresh ledger reference.
func (o *CheckoutOrchestrator) renewOrderID(attempt uint64) {
	o.mu.Lock()
	if o.attempt == attempt {
		o.orderID = o.newOrderID()
	}
	o.mu.Unlock()
}

func (o *CheckoutOrchestrator) publish(ctx context.Context, order *models.Order) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := o.publisher.Publish(pubCtx, events.OrderCommitted(order)); err != nil {
		o.logger.Warn("Failed to publish order event", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

func (o *CheckoutOrchestrator) record(metric string) {
	if o.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.metrics.RecordCount(ctx, metric, map[string]string{"Service": "storefront-service"})
	}()
}
