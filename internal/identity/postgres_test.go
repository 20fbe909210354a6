package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/indiantrademart/backend/internal/infra"
	"github.com/indiantrademart/backend/internal/logging"
)

// postgresRepo connects to TEST_DATABASE_URL, applies migrations and returns
// a repository. The test is skipped when the variable is unset.
func postgresRepo(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	migrator, err := infra.NewMigrator(dsn, logging.Discard())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := infra.NewPostgresPool(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewPostgresRepository(pool)
}

func uniqueContact(t *testing.T) (string, string) {
	t.Helper()
	id := uuid.New()
	return fmt.Sprintf("pg-%s@example.com", id), fmt.Sprintf("+91%010d", uint64(id.ID()))
}

func TestPostgresCreateMapsUniqueViolations(t *testing.T) {
	repo := postgresRepo(t)
	ctx := context.Background()
	email, phone := uniqueContact(t)
	t.Cleanup(func() { _, _ = repo.db.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email) })

	user, err := repo.Create(ctx, NewUser{Email: email, Phone: phone, PasswordHash: []byte("x"), Role: RoleVendor})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.Create(ctx, NewUser{Email: email, PasswordHash: []byte("x"), Role: RoleUser}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	other, _ := uniqueContact(t)
	if _, err := repo.Create(ctx, NewUser{Email: other, Phone: phone, PasswordHash: []byte("x"), Role: RoleUser}); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}

	found, err := repo.FindByIdentifier(ctx, phone)
	if err != nil || found.ID != user.ID || found.Role != RoleVendor {
		t.Fatalf("find by phone: %+v %v", found, err)
	}
}

func TestPostgresConsumeOTPIsSingleUseAndStrict(t *testing.T) {
	repo := postgresRepo(t)
	ctx := context.Background()
	email, _ := uniqueContact(t)
	t.Cleanup(func() { _, _ = repo.db.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email) })

	user, err := repo.Create(ctx, NewUser{Email: email, PasswordHash: []byte("x"), Role: RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	expiry := now.Add(10 * time.Minute)
	if err := repo.SetOTP(ctx, user.ID, "123456", expiry); err != nil {
		t.Fatalf("set otp: %v", err)
	}

	if _, err := repo.ConsumeOTP(ctx, user.ID, "654321", now); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("wrong code: expected ErrOTPMismatch, got %v", err)
	}
	if _, err := repo.ConsumeOTP(ctx, user.ID, "123456", expiry); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("at expiry: expected ErrOTPMismatch, got %v", err)
	}

	verified, err := repo.ConsumeOTP(ctx, user.ID, "123456", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !verified.EmailVerified || verified.HasPendingOTP() {
		t.Fatalf("unexpected record after consume %+v", verified)
	}
	if _, err := repo.ConsumeOTP(ctx, user.ID, "123456", now); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("reuse: expected ErrOTPMismatch, got %v", err)
	}
}

func TestPostgresConsumeOTPConcurrentSingleWinner(t *testing.T) {
	repo := postgresRepo(t)
	ctx := context.Background()
	email, _ := uniqueContact(t)
	t.Cleanup(func() { _, _ = repo.db.Exec(context.Background(), `DELETE FROM users WHERE email = $1`, email) })

	user, err := repo.Create(ctx, NewUser{Email: email, PasswordHash: []byte("x"), Role: RoleUser})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC()
	if err := repo.SetOTP(ctx, user.ID, "424242", now.Add(time.Minute)); err != nil {
		t.Fatalf("set otp: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumeOTP(ctx, user.ID, "424242", now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}
