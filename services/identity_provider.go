package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrInvalidLogin = errors.New("invalid email or password")
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string) (string, error)
	Subject(token string) (string, error)
}

// IdentityBackend is the shared identity store behind every visitor's AccountClient.
type IdentityBackend interface {
	CreateIdentity(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.Identity, string, error)
	Authenticate(ctx context.Context, email, password string) (*models.Identity, string, error)
	IdentityFromToken(ctx context.Context, token string) (*models.Identity, error)
}

// IdentityProvider stores bcrypt-hashed users in Postgres and issues access tokens.
type IdentityProvider struct {
	users    UserRepository
	tokens   TokenIssuer
	hashCost int
	logger   *zap.Logger
}

func NewIdentityProvider(users UserRepository, tokens TokenIssuer, logger *zap.Logger) *IdentityProvider {
	return &IdentityProvider{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
	}
}

func (p *IdentityProvider) CreateIdentity(ctx context.Context, email, password string, metadata models.IdentityMetadata) (*models.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := p.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.hashCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:                uuid.New(),
		Email:             email,
		PasswordHash:      string(hash),
		Name:              metadata.Name,
		SessionCredential: metadata.SessionCredential,
	}
	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailExists
		}
		return nil, "", fmt.Errorf("failed to create account: %w", err)
	}

	token, err := p.tokens.GenerateAccessToken(user.ID.String(), user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	p.logger.Info("Identity created", zap.String("user_id", user.ID.String()))
	return user.ToIdentity(), token, nil
}

func (p *IdentityProvider) Authenticate(ctx context.Context, email, password string) (*models.Identity, string, error) {
	user, err := p.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidLogin
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidLogin
	}

	token, err := p.tokens.GenerateAccessToken(user.ID.String(), user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user.ToIdentity(), token, nil
}

// IdentityFromToken maps an invalid, expired or orphaned token to "no identity".
// Only backend failures are returned as errors.
func (p *IdentityProvider) IdentityFromToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, nil
	}

	sub, err := p.tokens.Subject(token)
	if err != nil {
		return nil, nil
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, nil
	}

	user, err := p.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user.ToIdentity(), nil
}
