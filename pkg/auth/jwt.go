package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator validates a credential from the context into a UserContext.
type Authenticator interface {
	Authenticate(ctx context.Context) (*UserContext, error)
}

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer is the expected issuer claim.
	Issuer string

	// SigningKey is the HMAC key used to verify signatures.
	SigningKey []byte
}

// JWTAuthenticator validates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	cfg JWTConfig
}

// NewJWTAuthenticator creates a JWT authenticator.
func NewJWTAuthenticator(cfg JWTConfig) (*JWTAuthenticator, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("jwt signing key is required")
	}
	return &JWTAuthenticator{cfg: cfg}, nil
}

// Authenticate validates the bearer token and returns the caller.
func (a *JWTAuthenticator) Authenticate(ctx context.Context) (*UserContext, error) {
	tokenString := GetToken(ctx)
	if tokenString == "" {
		return nil, fmt.Errorf("no token found in context")
	}

	claims, err := a.parseAndValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, fmt.Errorf("missing sub claim")
	}
	name, _ := claims["name"].(string)

	var roles []string
	if raw, ok := claims["roles"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
	}

	return &UserContext{
		UserID:   userID,
		Name:     name,
		Roles:    roles,
		AuthType: "jwt",
	}, nil
}

// parseAndValidateToken parses and validates the JWT.
func (a *JWTAuthenticator) parseAndValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	iss, ok := claims["iss"].(string)
	if !ok || iss != a.cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer: got %q, want %q", iss, a.cfg.Issuer)
	}

	return claims, nil
}

// IssueToken mints a token for a user. Used by tests and local development;
// production deployments verify tokens minted by the identity provider.
func (a *JWTAuthenticator) IssueToken(userID, name string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": a.cfg.Issuer,
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify interface compliance.
var _ Authenticator = (*JWTAuthenticator)(nil)
