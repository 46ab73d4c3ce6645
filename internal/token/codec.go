// Package token signs and verifies the two token classes: short-lived
// access tokens and long-lived refresh tokens. The classes use distinct
// HMAC secrets, so a leaked refresh-signing key cannot mint access tokens
// and vice versa. Verification applies a bounded clock-skew leeway;
// issuance does not.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "taskmaster"

var (
	// ErrExpired marks a token whose signature is valid but whose expiry
	// has passed. Clients react to it by attempting a refresh.
	ErrExpired = errors.New("token expired")
	// ErrBadSignature marks a token that fails HMAC verification.
	ErrBadSignature = errors.New("token signature invalid")
	// ErrMalformed marks input that is not a well-formed token or is
	// missing required claims.
	ErrMalformed = errors.New("token malformed")
)

// Identity is the fixed set of claims embedded in every token. It never
// carries the secret hash.
type Identity struct {
	SubjectID string
	Email     string
	Username  string
}

type tokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config for a Codec. The Previous keys are optional and exist only for
// key rotation: a token signed with the previous key verifies until the
// key is removed from configuration.
type Config struct {
	AccessSecret          []byte
	AccessSecretPrevious  []byte
	RefreshSecret         []byte
	RefreshSecretPrevious []byte
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
}

type keyring struct {
	current  []byte
	previous []byte
}

// Codec issues and verifies both token classes.
type Codec struct {
	access     keyring
	refresh    keyring
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both signing secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}

	return &Codec{
		access:     keyring{current: cfg.AccessSecret, previous: cfg.AccessSecretPrevious},
		refresh:    keyring{current: cfg.RefreshSecret, previous: cfg.RefreshSecretPrevious},
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		leeway:     cfg.Leeway,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a self-contained access token for id.
func (c *Codec) IssueAccess(id Identity) (string, error) {
	return c.sign(id, "", c.access.current, c.accessTTL)
}

// IssueRefresh signs a refresh token for id and returns it together with
// its random token identifier (the jti claim). The identifier, not the
// full token string, is what the revocation store records.
func (c *Codec) IssueRefresh(id Identity) (token, jti string, err error) {
	jti = uuid.NewString()
	token, err = c.sign(id, jti, c.refresh.current, c.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// VerifyAccess validates an access token and returns its identity claims.
// Failures are classified as ErrExpired, ErrBadSignature, or ErrMalformed.
func (c *Codec) VerifyAccess(token string) (Identity, error) {
	claims, err := c.parse(token, c.access)
	if err != nil {
		return Identity{}, err
	}
	return identityFrom(claims)
}

// VerifyRefresh validates a refresh token and returns its identity claims
// and token identifier. A refresh token without a jti is malformed.
func (c *Codec) VerifyRefresh(token string) (Identity, string, error) {
	claims, err := c.parse(token, c.refresh)
	if err != nil {
		return Identity{}, "", err
	}
	id, err := identityFrom(claims)
	if err != nil {
		return Identity{}, "", err
	}
	if claims.ID == "" {
		return Identity{}, "", fmt.Errorf("%w: missing token id", ErrMalformed)
	}
	return id, claims.ID, nil
}

func (c *Codec) sign(id Identity, jti string, key []byte, ttl time.Duration) (string, error) {
	if id.SubjectID == "" {
		return "", errors.New("token: empty subject")
	}

	now := time.Now().UTC()
	claims := tokenClaims{
		Email:    id.Email,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			ID:        jti,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func (c *Codec) parse(token string, keys keyring) (*tokenClaims, error) {
	claims, err := c.parseWithKey(token, keys.current)
	if err != nil && errors.Is(err, ErrBadSignature) && len(keys.previous) > 0 {
		claims, err = c.parseWithKey(token, keys.previous)
	}
	return claims, err
}

func (c *Codec) parseWithKey(token string, key []byte) (*tokenClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &tokenClaims{}, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

func identityFrom(claims *tokenClaims) (Identity, error) {
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Username:  claims.Username,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
