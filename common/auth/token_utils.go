package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenTypeAccess marks tokens that identify a signed-in storefront account.
const TokenTypeAccess = "access"

// TokenService is responsible for creating and validating JWTs.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenService creates a TokenService signing with the given HMAC secret.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("JWT secret not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secretKey: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long issued access tokens stay valid.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// GenerateAccessToken issues an HS256 access token for an identity.
func (s *TokenService) GenerateAccessToken(userID, email string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"typ":   TokenTypeAccess,
		"exp":   now.Add(s.ttl).Unix(),
		"iat":   now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (s *TokenService) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// Subject returns the "sub" claim of a validated access token.
func (s *TokenService) Subject(tokenStr string) (string, error) {
	claims, err := s.ParseAndValidateToken(tokenStr, TokenTypeAccess)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("invalid token: subject claim is missing")
	}
	return sub, nil
}
