package services

import (
	"context"
	"crypto/subtle"
	"regexp"
	"strings"

	"storefront-service/models"
)

// CredentialLength is the number of hex characters in a session credential.
const CredentialLength = 66

var credentialPattern = regexp.MustCompile(`^[a-f0-9]{66}$`)

// NormalizeCredential trims and lowercases user input.
func NormalizeCredential(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidCredentialFormat expects an already normalized credential.
func ValidCredentialFormat(credential string) bool {
	return credentialPattern.MatchString(credential)
}

// StaticCredentialVerifier accepts one shared credential for every account.
type StaticCredentialVerifier struct {
	accepted []byte
}

func NewStaticCredentialVerifier(accepted string) *StaticCredentialVerifier {
	return &StaticCredentialVerifier{accepted: []byte(NormalizeCredential(accepted))}
}

func (v *StaticCredentialVerifier) Verify(_ context.Context, _ models.Account, credential string) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(credential), v.accepted) == 1, nil
}

// AccountCredentialVerifier accepts the credential the account registered with.
type AccountCredentialVerifier struct{}

func (AccountCredentialVerifier) Verify(_ context.Context, account models.Account, credential string) (bool, error) {
	registered := NormalizeCredential(account.SessionCredential)
	if registered == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(registered)) == 1, nil
}
