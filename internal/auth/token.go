package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/indiantrademart/backend/internal/identity"
)

// MinSecretLength is the shortest HS256 signing secret accepted, in bytes.
const MinSecretLength = 32

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformed        = errors.New("malformed token")
	ErrExpired          = errors.New("token is expired")
	ErrNotYetValid      = errors.New("token is not valid yet")
	ErrUnsupported      = errors.New("unsupported token")
	ErrMissingClaims    = errors.New("token claims are missing")
)

// Claims is the identity asserted by a session token.
type Claims struct {
	Email     string
	UserID    string
	Role      identity.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService mints and validates HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock replaces time.Now for minting and expiry checks.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenService) { t.now = now }
}

// NewTokenService validates the signing secret and builds a TokenService.
func NewTokenService(secret string, ttl time.Duration, logger *slog.Logger, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Mint signs a token for the given identity.
func (t *TokenService) Mint(email, userID string, role identity.Role) (string, error) {
	now := t.now()
	claims := tokenClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Failures wrap one of
// ErrInvalidSignature, ErrMalformed, ErrExpired, ErrNotYetValid,
// ErrUnsupported or ErrMissingClaims.
func (t *TokenService) Parse(token string) (Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, t.key,
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}
	if claims.Subject == "" || claims.UserID == "" || claims.Role == "" || claims.IssuedAt == nil {
		return Claims{}, ErrMissingClaims
	}
	return Claims{
		Email:     claims.Subject,
		UserID:    claims.UserID,
		Role:      identity.Role(claims.Role),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate reports whether token parses. The failure kind is logged.
func (t *TokenService) Validate(token string) bool {
	if _, err := t.Parse(token); err != nil {
		t.logger.Warn("invalid jwt", slog.String("kind", TokenErrorKind(err)), slog.Any("error", err))
		return false
	}
	return true
}

func (t *TokenService) key(token *jwt.Token) (any, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("signing method %v is not accepted", token.Header["alg"])
	}
	return t.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrMissingClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// TokenErrorKind names the failure class of a Parse error for logging.
func TokenErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ErrMissingClaims):
		return "missing_claims"
	default:
		return "malformed"
	}
}
