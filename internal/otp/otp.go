// Package otp issues and verifies the six digit one-time codes used for
// passwordless login and email verification.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/indiantrademart/backend/internal/identity"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 10 * time.Minute

	codeMin  = 100000
	codeSpan = 900000
)

// ErrInvalidOrExpired is returned when no code is outstanding, the submitted
// code does not match, or the stored expiry has passed.
var ErrInvalidOrExpired = errors.New("invalid or expired otp")

// Store is the subset of identity.Repository the manager mutates.
type Store interface {
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	ConsumeOTP(ctx context.Context, id, code string, now time.Time) (identity.User, error)
}

// Challenge is an issued code and the instant it stops being accepted.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
}

// Manager generates, persists and consumes one-time codes.
type Manager struct {
	store  Store
	random io.Reader
	now    func() time.Time
	ttl    time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithRandom replaces crypto/rand.Reader as the source of code entropy.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.random = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a Manager backed by store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, random: rand.Reader, now: time.Now, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue generates a new code for user and persists it, replacing any code
// still outstanding.
func (m *Manager) Issue(ctx context.Context, user identity.User) (Challenge, error) {
	code, err := m.generate()
	if err != nil {
		return Challenge{}, err
	}
	expiresAt := m.now().UTC().Add(m.ttl)
	if err := m.store.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return Challenge{}, fmt.Errorf("store otp: %w", err)
	}
	return Challenge{Code: code, ExpiresAt: expiresAt}, nil
}

// Verify consumes code for user. On success the returned user has no
// outstanding challenge and a verified email.
func (m *Manager) Verify(ctx context.Context, user identity.User, code string) (identity.User, error) {
	now := m.now().UTC()
	if !user.HasPendingOTP() || user.OTPCode != code || !now.Before(*user.OTPExpiresAt) {
		return identity.User{}, ErrInvalidOrExpired
	}
	updated, err := m.store.ConsumeOTP(ctx, user.ID, code, now)
	if errors.Is(err, identity.ErrOTPMismatch) || errors.Is(err, identity.ErrNotFound) {
		return identity.User{}, ErrInvalidOrExpired
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("consume otp: %w", err)
	}
	return updated, nil
}

func (m *Manager) generate() (string, error) {
	n, err := rand.Int(m.random, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10), nil
}
