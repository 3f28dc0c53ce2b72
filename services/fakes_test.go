package services_test

import (
	"context"
	"errors"
	"sync"

	"storefront-service/events"
	"storefront-service/models"
)

const validCredential = "05b95aad7d71e5fc95143d02acf32329591b2224d92849e1420d844adb3c953f1b"

var errBackendDown = errors.New("backend down")

// ---- balance service ----

type fakeBalances struct {
	mu        sync.Mutex
	balance   int64
	getErr    error
	debitErr  error
	refundErr error
	debits    []string
	refunds   []string

	// when set, GetBalance signals on called and waits for release
	called  chan struct{}
	release chan struct{}
}

func (f *fakeBalances) GetBalance(ctx context.Context, _ string) (int64, error) {
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.getErr
}

func (f *fakeBalances) Debit(_ context.Context, _ string, amount int64, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	if amount > f.balance {
		return models.ErrInsufficientBalance
	}
	f.balance -= amount
	f.debits = append(f.debits, reference)
	return nil
}

func (f *fakeBalances) Refund(_ context.Context, _ string, amount int64, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.balance += amount
	f.refunds = append(f.refunds, reference)
	return nil
}

func (f *fakeBalances) Balance() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

// ---- order store ----

type fakeOrders struct {
	mu      sync.Mutex
	saveErr error
	listErr error
	lastErr error
	saved   []*models.Order

	// runs at the start of SaveOrder, before anything is stored
	onSave func()
}

func (f *fakeOrders) SaveOrder(_ context.Context, order *models.Order) error {
	if f.onSave != nil {
		f.onSave()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, order)
	return nil
}

func (f *fakeOrders) ListOrders(_ context.Context, _ string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Order, 0, len(f.saved))
	for i := len(f.saved) - 1; i >= 0; i-- {
		out = append(out, *f.saved[i])
	}
	return out, nil
}

func (f *fakeOrders) GetLastOrder(_ context.Context, _ string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	if len(f.saved) == 0 {
		return nil, nil
	}
	return f.saved[len(f.saved)-1], nil
}

// ---- session ----

type fakeSession struct {
	mu      sync.Mutex
	ready   bool
	account *models.Account
}

func (f *fakeSession) AuthReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeSession) Account() *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == nil {
		return nil
	}
	cp := *f.account
	return &cp
}

// ---- publisher ----

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

// ---- verifier ----

type fakeVerifier struct {
	ok  bool
	err error
}

func (f fakeVerifier) Verify(context.Context, models.Account, string) (bool, error) {
	return f.ok, f.err
}

// hangingVerifier ignores its context and blocks until release is closed.
type hangingVerifier struct {
	release chan struct{}
}

func (h hangingVerifier) Verify(context.Context, models.Account, string) (bool, error) {
	<-h.release
	return true, nil
}

// ---- helpers ----

func testAccount() *models.Account {
	return &models.Account{
		ID:                "6f1c2d9e-8b0a-4c1e-9f7a-1b2c3d4e5f60",
		Email:             "ada@example.com",
		DisplayName:       "Ada",
		SessionCredential: validCredential,
	}
}

func mustProduct(ref string) models.Product {
	p, ok := models.FindProduct(ref)
	if !ok {
		panic("unknown product " + ref)
	}
	return p
}
