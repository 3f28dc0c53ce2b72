package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	apperrors "storefront-service/common/errors"
	"storefront-service/models"

	"go.uber.org/zap"
)

type SessionState string

const (
	SessionUnknown       SessionState = "unknown"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

const minPasswordLength = 8

type RegisterInput struct {
	Name              string
	Email             string
	SessionCredential string
	Password          string
}

// AccountSession tracks who the visitor is. It starts Unknown and moves to
// Anonymous or Authenticated once the first identity resolution finishes.
type AccountSession struct {
	accounts       AccountService
	profiles       ProfileStore
	logger         *zap.Logger
	resolveTimeout time.Duration

	mu          sync.RWMutex
	state       SessionState
	account     *models.Account
	version     uint64
	started     bool
	unsubscribe Unsubscribe

	ready     chan struct{}
	readyOnce sync.Once
}

func NewAccountSession(accounts AccountService, profiles ProfileStore, logger *zap.Logger) *AccountSession {
	return &AccountSession{
		accounts:       accounts,
		profiles:       profiles,
		logger:         logger,
		resolveTimeout: 10 * time.Second,
		state:          SessionUnknown,
		ready:          make(chan struct{}),
	}
}

// Start subscribes to identity changes and resolves the current identity in
// the background. Later calls are no-ops.
func (s *AccountSession) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	version := s.version
	s.mu.Unlock()

	unsubscribe := s.accounts.Subscribe(s.handleChange)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.resolveInitial(context.WithoutCancel(ctx), version)
}

func (s *AccountSession) resolveInitial(parent context.Context, version uint64) {
	ctx, cancel := context.WithTimeout(parent, s.resolveTimeout)
	defer cancel()

	identity, err := s.accounts.ResolveCurrentIdentity(ctx)
	if err != nil {
		s.logger.Warn("Identity resolution failed, treating visitor as signed out", zap.Error(err))
		identity = nil
	}

	var account *models.Account
	if identity != nil {
		account = s.accountFromIdentity(ctx, identity)
	}
	s.apply(version, account)
}

func (s *AccountSession) handleChange(identity *models.Identity) {
	s.mu.Lock()
	s.version++
	version := s.version
	s.mu.Unlock()

	var account *models.Account
	if identity != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.resolveTimeout)
		account = s.accountFromIdentity(ctx, identity)
		cancel()
	}
	s.apply(version, account)
}

// apply installs account unless a newer change superseded this resolution.
func (s *AccountSession) apply(version uint64, account *models.Account) {
	s.mu.Lock()
	if s.version == version {
		s.setLocked(account)
	}
	s.mu.Unlock()
	s.markReady()
}

func (s *AccountSession) commit(account *models.Account) {
	s.mu.Lock()
	s.version++
	s.setLocked(account)
	s.mu.Unlock()
	s.markReady()
}

func (s *AccountSession) setLocked(account *models.Account) {
	if account == nil {
		s.state = SessionAnonymous
		s.account = nil
		return
	}
	cp := *account
	s.state = SessionAuthenticated
	s.account = &cp
}

func (s *AccountSession) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// accountFromIdentity prefers identity metadata and fills gaps from the profile store.
func (s *AccountSession) accountFromIdentity(ctx context.Context, identity *models.Identity) *models.Account {
	account := &models.Account{
		ID:                identity.ID,
		Email:             identity.Email,
		DisplayName:       identity.Metadata.Name,
		SessionCredential: identity.Metadata.SessionCredential,
	}
	if account.DisplayName != "" && account.SessionCredential != "" {
		return account
	}
	if s.profiles == nil {
		return account
	}

	profile, err := s.profiles.FetchProfile(ctx, identity.ID)
	if err != nil {
		s.logger.Warn("Failed to load profile", zap.String("user_id", identity.ID), zap.Error(err))
		return account
	}
	if profile == nil {
		return account
	}
	if account.DisplayName == "" {
		account.DisplayName = profile.Name
	}
	if account.SessionCredential == "" {
		account.SessionCredential = profile.SessionCredential
	}
	if account.Email == "" {
		account.Email = profile.Email
	}
	return account
}

// Ready is closed once the first identity resolution has finished.
func (s *AccountSession) Ready() <-chan struct{} {
	return s.ready
}

func (s *AccountSession) AuthReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the session is resolved or ctx is done.
func (s *AccountSession) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AccountSession) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Account returns a copy of the signed-in account, or nil.
func (s *AccountSession) Account() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil
	}
	cp := *s.account
	return &cp
}

func (s *AccountSession) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	credential := strings.TrimSpace(in.SessionCredential)
	password := strings.TrimSpace(in.Password)

	if name == "" || email == "" || credential == "" || password == "" {
		return nil, apperrors.Validation(MsgRegisterRequired)
	}
	credential = NormalizeCredential(credential)
	if !ValidCredentialFormat(credential) {
		return nil, apperrors.Validation(MsgCredentialFormat)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, apperrors.Validation(MsgPasswordLength)
	}

	metadata := models.IdentityMetadata{Name: name, SessionCredential: credential}
	identity, err := s.accounts.CreateIdentity(ctx, email, password, metadata)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, apperrors.Conflict(MsgAccountExists)
		}
		s.logger.Error("Failed to create identity", zap.Error(err))
		return nil, apperrors.BackendUnavailable(MsgAccountUnavailable, err)
	}
	if identity == nil {
		identity, err = s.accounts.Authenticate(ctx, email, password)
		if err != nil {
			return nil, s.loginError(err)
		}
		if identity == nil {
			return nil, apperrors.BackendUnavailable(MsgAccountUnavailable, nil)
		}
	}

	account := &models.Account{
		ID:                identity.ID,
		Email:             email,
		DisplayName:       name,
		SessionCredential: credential,
	}
	s.saveProfile(ctx, account)
	s.commit(account)

	s.logger.Info("Account registered", zap.String("user_id", account.ID))
	return s.Account(), nil
}

func (s *AccountSession) Login(ctx context.Context, email, password string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, apperrors.Validation(MsgLoginRequired)
	}

	identity, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, s.loginError(err)
	}
	if identity == nil {
		return nil, apperrors.Auth(MsgInvalidLogin)
	}

	account := s.accountFromIdentity(ctx, identity)
	if account.Email == "" {
		account.Email = email
	}
	if account.SessionCredential != "" {
		s.saveProfile(ctx, account)
	}
	s.commit(account)
	return s.Account(), nil
}

func (s *AccountSession) Logout(ctx context.Context) error {
	if err := s.accounts.SignOut(ctx); err != nil {
		s.logger.Warn("Sign-out failed, clearing local session anyway", zap.Error(err))
	}
	s.commit(nil)
	return nil
}

// Close stops listening for identity changes.
func (s *AccountSession) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// saveProfile is best-effort: the identity already carries the same fields.
func (s *AccountSession) saveProfile(ctx context.Context, account *models.Account) {
	if s.profiles == nil {
		return
	}
	err := s.profiles.UpsertProfile(ctx, &models.Profile{
		ID:                account.ID,
		Name:              account.DisplayName,
		Email:             account.Email,
		SessionCredential: account.SessionCredential,
	})
	if err != nil {
		s.logger.Warn("Failed to save profile", zap.String("user_id", account.ID), zap.Error(err))
	}
}

func (s *AccountSession) loginError(err error) error {
	if errors.Is(err, ErrInvalidLogin) {
		return apperrors.Auth(MsgInvalidLogin)
	}
	s.logger.Error("Authentication backend failed", zap.Error(err))
	return apperrors.BackendUnavailable(MsgAccountUnavailable, err)
}
