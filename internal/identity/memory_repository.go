package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	byPhone map[string]string
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, input NewUser) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[input.Email]; exists {
		return User{}, ErrDuplicateEmail
	}
	if input.Phone != "" {
		if _, exists := r.byPhone[input.Phone]; exists {
			return User{}, ErrDuplicatePhone
		}
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: append([]byte(nil), input.PasswordHash...),
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	if user.Phone != "" {
		r.byPhone[user.Phone] = user.ID
	}
	return clone(user), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(user), nil
}

func (r *memoryRepository) FindByIdentifier(_ context.Context, emailOrPhone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailOrPhone]
	if !ok {
		id, ok = r.byPhone[emailOrPhone]
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(r.users[id]), nil
}

func (r *memoryRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memoryRepository) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPhone[phone]
	return ok, nil
}

func (r *memoryRepository) SetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	expiry := expiresAt.UTC()
	user.OTPCode = code
	user.OTPExpiresAt = &expiry
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

func (r *memoryRepository) ConsumeOTP(_ context.Context, id, code string, now time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if !user.HasPendingOTP() || user.OTPCode != code || !user.OTPExpiresAt.After(now) {
		return User{}, ErrOTPMismatch
	}
	user.OTPCode = ""
	user.OTPExpiresAt = nil
	user.EmailVerified = true
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return clone(user), nil
}

func (r *memoryRepository) CountByRole(_ context.Context) (map[Role]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[Role]int64, len(Roles))
	for _, user := range r.users {
		counts[user.Role]++
	}
	return counts, nil
}

func (r *memoryRepository) CountUnverified(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, user := range r.users {
		if !user.EmailVerified || !user.PhoneVerified {
			count++
		}
	}
	return count, nil
}

// clone detaches the returned record from the stored one.
func clone(u User) User {
	if u.OTPExpiresAt != nil {
		expiry := *u.OTPExpiresAt
		u.OTPExpiresAt = &expiry
	}
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}
