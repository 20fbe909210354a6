package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	emailConstraintName = "users_email_key"
	phoneConstraintName = "users_phone_key"
)

// Repository persists user identity records.
type Repository interface {
	Create(ctx context.Context, input NewUser) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	// FindByIdentifier resolves a user by email or phone number.
	FindByIdentifier(ctx context.Context, emailOrPhone string) (User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	// SetOTP replaces any outstanding challenge for the user.
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	// ConsumeOTP clears the challenge and marks the email verified, but only
	// if code still matches and expires strictly after now. It returns
	// ErrOTPMismatch otherwise.
	ConsumeOTP(ctx context.Context, id, code string, now time.Time) (User, error)
	CountByRole(ctx context.Context) (map[Role]int64, error)
	CountUnverified(ctx context.Context) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, phone, password_hash, role,
	email_verified, phone_verified, otp_code, otp_expires_at, created_at, updated_at`

// Create inserts a new user. Unique constraint violations surface as
// ErrDuplicateEmail or ErrDuplicatePhone.
func (r *PostgresRepository) Create(ctx context.Context, input NewUser) (User, error) {
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, first_name, last_name, email, phone, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.FirstName, user.LastName, user.Email, nullable(user.Phone), user.PasswordHash, string(user.Role), now, now)
	if err != nil {
		return User{}, mapConstraintError(err)
	}
	return user, nil
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// FindByIdentifier prefers an email match over a phone match.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, emailOrPhone string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users
        WHERE email = $1 OR phone = $1
        ORDER BY (email = $1) DESC
        LIMIT 1`, emailOrPhone))
}

// ExistsByEmail reports whether an account uses the email.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// ExistsByPhone reports whether an account uses the phone number.
func (r *PostgresRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

// SetOTP stores a fresh challenge code and expiry.
func (r *PostgresRepository) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET otp_code = $1, otp_expires_at = $2, updated_at = NOW() WHERE id = $3`,
		code, expiresAt.UTC(), userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeOTP performs the verification as a single conditional UPDATE so two
// concurrent verifications of the same code cannot both succeed.
func (r *PostgresRepository) ConsumeOTP(ctx context.Context, id, code string, now time.Time) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	user, err := scanUser(r.db.QueryRow(ctx, `UPDATE users
        SET otp_code = NULL, otp_expires_at = NULL, email_verified = TRUE, updated_at = NOW()
        WHERE id = $1 AND otp_code = $2 AND otp_expires_at > $3
        RETURNING `+userColumns, userID, code, now.UTC()))
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrOTPMismatch
	}
	return user, err
}

// CountByRole returns the number of users per role.
func (r *PostgresRepository) CountByRole(ctx context.Context) (map[Role]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Role]int64, len(Roles))
	for rows.Next() {
		var (
			role  string
			count int64
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		counts[Role(role)] = count
	}
	return counts, rows.Err()
}

// CountUnverified counts users missing either email or phone verification.
func (r *PostgresRepository) CountUnverified(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email_verified = FALSE OR phone_verified = FALSE`).Scan(&count)
	return count, err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		phone     *string
		role      string
		otpCode   *string
		otpExpiry *time.Time
		user      User
	)
	err := row.Scan(&id, &user.FirstName, &user.LastName, &user.Email, &phone, &user.PasswordHash, &role,
		&user.EmailVerified, &user.PhoneVerified, &otpCode, &otpExpiry, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	if phone != nil {
		user.Phone = *phone
	}
	if otpCode != nil && otpExpiry != nil {
		user.OTPCode = *otpCode
		expiry := otpExpiry.UTC()
		user.OTPExpiresAt = &expiry
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case emailConstraintName:
			return ErrDuplicateEmail
		case phoneConstraintName:
			return ErrDuplicatePhone
		}
		return fmt.Errorf("unique violation on %s: %w", pgErr.ConstraintName, err)
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
