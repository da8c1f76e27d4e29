package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKey is a configured service key. The plaintext key is never stored;
// only its bcrypt hash appears in configuration.
type APIKey struct {
	// Name identifies the key in logs and becomes the caller identity.
	Name string

	// Hash is the bcrypt hash of the key value.
	Hash string

	// Roles assigned to this key.
	Roles []string
}

// APIKeyConfig holds API key configuration.
type APIKeyConfig struct {
	Keys []APIKey
}

// APIKeyAuthenticator authenticates service callers by hashed API key.
type APIKeyAuthenticator struct {
	keys []APIKey
}

// NewAPIKeyAuthenticator creates an API key authenticator.
func NewAPIKeyAuthenticator(cfg APIKeyConfig) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: cfg.Keys}
}

// Authenticate compares the presented key against each configured hash.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context) (*UserContext, error) {
	presented := GetToken(ctx)
	if presented == "" {
		return nil, fmt.Errorf("no API key found in context")
	}

	for _, key := range a.keys {
		if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(presented)) == nil {
			return &UserContext{
				UserID:   "svc:" + key.Name,
				Name:     key.Name,
				Roles:    key.Roles,
				AuthType: "apikey",
			}, nil
		}
	}
	return nil, fmt.Errorf("invalid API key")
}

// HashKey hashes a plaintext key for storage in configuration.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing API key: %w", err)
	}
	return string(hash), nil
}

// Verify interface compliance.
var _ Authenticator = (*APIKeyAuthenticator)(nil)
