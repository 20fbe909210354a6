package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/indiantrademart/backend/internal/identity"
	"github.com/indiantrademart/backend/internal/notification"
	"github.com/indiantrademart/backend/internal/otp"
)

const (
	defaultNotifyTimeout = 5 * time.Second

	msgOTPSent    = "OTP sent successfully to your email!"
	msgRegistered = "User registered successfully! Please check your email for verification OTP."
)

// Users is the credential store consulted by the flows.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
	FindByIdentifier(ctx context.Context, emailOrPhone string) (identity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, input identity.NewUser) (identity.User, error)
}

// PasswordAuthenticator checks a password for the account under email.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (bool, error)
}

// OTPManager issues and consumes one-time codes.
type OTPManager interface {
	Issue(ctx context.Context, user identity.User) (otp.Challenge, error)
	Verify(ctx context.Context, user identity.User, code string) (identity.User, error)
}

// TokenMinter signs session tokens.
type TokenMinter interface {
	Mint(email, userID string, role identity.Role) (string, error)
}

// Deps lists the collaborators of Service. All but NotifyTimeout and
// Logger are required.
type Deps struct {
	Users         Users
	Authenticator PasswordAuthenticator
	OTP           OTPManager
	Tokens        TokenMinter
	Notifier      notification.Notifier
	NotifyTimeout time.Duration
	Logger        *slog.Logger
}

// Service orchestrates login, verification and registration.
type Service struct {
	users    Users
	auth     PasswordAuthenticator
	otp      OTPManager
	tokens   TokenMinter
	notifier notification.Notifier
	logger   *slog.Logger
}

// Session is the token bundle returned by a successful login or verification.
type Session struct {
	Token     string `json:"token"`
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// Result is a successful flow outcome: a session, or a message when the
// flow continues out of band.
type Result struct {
	Message string
	Session *Session
}

// Profile summarises an account for authenticated callers.
type Profile struct {
	UserID        string `json:"id"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	PhoneVerified bool   `json:"phoneVerified"`
}

// NewService wires the flow controller.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Users == nil:
		return nil, errors.New("auth: user store is required")
	case d.Authenticator == nil:
		return nil, errors.New("auth: authenticator is required")
	case d.OTP == nil:
		return nil, errors.New("auth: otp manager is required")
	case d.Tokens == nil:
		return nil, errors.New("auth: token minter is required")
	case d.Notifier == nil:
		return nil, errors.New("auth: notifier is required")
	}
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = defaultNotifyTimeout
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		users:    d.Users,
		auth:     d.Authenticator,
		otp:      d.OTP,
		tokens:   d.Tokens,
		notifier: notification.WithTimeout(d.Notifier, d.NotifyTimeout),
		logger:   d.Logger,
	}, nil
}

// Login authenticates with a password when one is supplied, and otherwise
// issues a one-time code and delivers it. A failed delivery leaves the
// issued code valid.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	user, err := s.users.FindByIdentifier(ctx, req.EmailOrPhone)
	if errors.Is(err, identity.ErrNotFound) {
		return Result{}, newError(KindUserNotFound, err)
	}
	if err != nil {
		return Result{}, s.internal("login: find user", err)
	}

	if req.Password != "" {
		ok, err := s.auth.Authenticate(ctx, user.Email, req.Password)
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, newError(KindInvalidCredentials, err)
		}
		if err != nil {
			return Result{}, s.internal("login: authenticate", err)
		}
		if !ok {
			return Result{}, newError(KindInvalidCredentials, nil)
		}
		s.logger.Info("user logged in", slog.String("user_id", user.ID), slog.String("method", "password"))
		return s.session(user)
	}

	challenge, err := s.otp.Issue(ctx, user)
	if err != nil {
		return Result{}, s.internal("login: issue otp", err)
	}
	if err := s.notifier.SendOTP(ctx, otpMessage(user, challenge)); err != nil {
		s.logger.Warn("otp delivery failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return Result{}, newError(KindOtpDeliveryFailed, err)
	}
	s.logger.Info("otp issued", slog.String("user_id", user.ID), slog.Time("expires_at", challenge.ExpiresAt))
	return Result{Message: msgOTPSent}, nil
}

// Verify consumes a one-time code and returns a session.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	user, err := s.users.FindByIdentifier(ctx, req.EmailOrPhone)
	if errors.Is(err, identity.ErrNotFound) {
		return Result{}, newError(KindUserNotFound, err)
	}
	if err != nil {
		return Result{}, s.internal("verify: find user", err)
	}

	verified, err := s.otp.Verify(ctx, user, req.OTP)
	if errors.Is(err, otp.ErrInvalidOrExpired) {
		return Result{}, newError(KindInvalidOrExpiredOtp, err)
	}
	if err != nil {
		return Result{}, s.internal("verify: consume otp", err)
	}
	s.logger.Info("user logged in", slog.String("user_id", verified.ID), slog.String("method", "otp"))
	return s.session(verified)
}

// Register creates an account and issues a verification code. The welcome
// notification is best effort.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return Result{}, s.internal("register: check email", err)
	}
	if exists {
		return Result{}, newError(KindDuplicateEmail, nil)
	}
	if req.Phone != "" {
		exists, err := s.users.ExistsByPhone(ctx, req.Phone)
		if err != nil {
			return Result{}, s.internal("register: check phone", err)
		}
		if exists {
			return Result{}, newError(KindDuplicatePhone, nil)
		}
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return Result{}, s.internal("register: hash password", err)
	}
	user, err := s.users.Create(ctx, identity.NewUser{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         identity.ParseRole(req.Role),
	})
	switch {
	case errors.Is(err, identity.ErrDuplicateEmail):
		return Result{}, newError(KindDuplicateEmail, err)
	case errors.Is(err, identity.ErrDuplicatePhone):
		return Result{}, newError(KindDuplicatePhone, err)
	case err != nil:
		return Result{}, s.internal("register: create user", err)
	}

	challenge, err := s.otp.Issue(ctx, user)
	if err != nil {
		return Result{}, s.internal("register: issue otp", err)
	}
	if err := s.notifier.SendWelcome(ctx, otpMessage(user, challenge)); err != nil {
		s.logger.Warn("welcome notification failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))
	return Result{Message: msgRegistered}, nil
}

// RegisterVendor registers an account with the vendor role regardless of
// the requested role.
func (s *Service) RegisterVendor(ctx context.Context, req RegisterRequest) (Result, error) {
	req.Role = string(identity.RoleVendor)
	return s.Register(ctx, req)
}

// Profile loads the account behind verified token claims.
func (s *Service) Profile(ctx context.Context, claims Claims) (Profile, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, identity.ErrNotFound) {
		return Profile{}, newError(KindUserNotFound, err)
	}
	if err != nil {
		return Profile{}, s.internal("profile: find user", err)
	}
	return Profile{
		UserID:        user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          user.Role.String(),
		EmailVerified: user.EmailVerified,
		PhoneVerified: user.PhoneVerified,
	}, nil
}

func (s *Service) session(user identity.User) (Result, error) {
	token, err := s.tokens.Mint(user.Email, user.ID, user.Role)
	if err != nil {
		return Result{}, s.internal("mint token", err)
	}
	return Result{Session: &Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role.String(),
	}}, nil
}

func otpMessage(user identity.User, challenge otp.Challenge) notification.Message {
	return notification.Message{Destination: user.Email, Code: challenge.Code, DisplayName: user.DisplayName()}
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("auth flow failed", slog.String("op", op), slog.Any("error", err))
	return newError(KindInternal, fmt.Errorf("%s: %w", op, err))
}
