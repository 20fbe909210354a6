package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// Authenticator checks a password against the stored hash of an account.
type Authenticator struct {
	repo Repository
}

// NewAuthenticator builds an Authenticator over repo.
func NewAuthenticator(repo Repository) *Authenticator {
	return &Authenticator{repo: repo}
}

// Authenticate reports whether password matches the account registered under
// email. A missing account is reported as ErrNotFound; a mismatch is false
// with a nil error.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (bool, error) {
	user, err := a.repo.FindByIdentifier(ctx, email)
	if err != nil {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
