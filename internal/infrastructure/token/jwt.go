package token

import (
	"fmt"
	"time"

	"auth-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret accepted for snapshot tokens.
const MinSecretLength = 32

// JWTConfig holds snapshot token configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// SnapshotClaims describe one SessionState. Subject is the user ID and is
// empty for a logged-out snapshot.
type SnapshotClaims struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Version       uint64 `json:"ver"`
	jwt.RegisteredClaims
}

// JWTSigner signs session snapshots so downstream services can trust a
// relayed SessionState without calling the identity service.
// Implements domain.SnapshotSigner.
type JWTSigner struct {
	cfg JWTConfig
}

// NewJWTSigner creates a signer, rejecting secrets shorter than MinSecretLength.
func NewJWTSigner(cfg JWTConfig) (*JWTSigner, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d",
			domain.ErrSnapshotSecretWeak, MinSecretLength, len(cfg.Secret))
	}
	return &JWTSigner{cfg: cfg}, nil
}

// SignSnapshot generates a signed HS256 token for state.
func (j *JWTSigner) SignSnapshot(state domain.SessionState) (string, error) {
	now := time.Now()
	claims := SnapshotClaims{
		Authenticated: state.Authenticated,
		Version:       state.Version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
		},
	}
	if j.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.cfg.Audience}
	}
	if state.User != nil {
		claims.Subject = state.User.ID
		claims.Email = state.User.Email
		claims.Name = state.User.Name
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenGeneration, err)
	}
	return signed, nil
}

// ParseSnapshot verifies a token issued by this signer and returns its claims.
func (j *JWTSigner) ParseSnapshot(tokenStr string) (*SnapshotClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.cfg.Issuer),
	}
	if j.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(j.cfg.Audience))
	}

	claims := &SnapshotClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(j.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
