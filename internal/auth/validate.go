package auth

import (
	"net/mail"
	"strings"
)

// LoginRequest starts a password or passwordless login.
type LoginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Password     string `json:"password"`
}

// VerifyRequest completes a passwordless login or email verification.
type VerifyRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	OTP          string `json:"otp"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type fieldErrors map[string]string

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "must not be blank"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	e := newError(KindValidation, nil)
	e.Fields = f
	return e
}

// Validate checks the request shape. The password may be empty, which
// selects the one-time code path.
func (r *LoginRequest) Validate() error {
	r.EmailOrPhone = strings.TrimSpace(r.EmailOrPhone)
	f := fieldErrors{}
	f.require("emailOrPhone", r.EmailOrPhone)
	return f.err()
}

// Validate checks the request shape. The code itself is compared verbatim.
func (r *VerifyRequest) Validate() error {
	r.EmailOrPhone = strings.TrimSpace(r.EmailOrPhone)
	f := fieldErrors{}
	f.require("emailOrPhone", r.EmailOrPhone)
	f.require("otp", r.OTP)
	return f.err()
}

// Validate requires an email address and a password and trims surrounding
// whitespace from the identity fields. Names and phone are optional.
func (r *RegisterRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)

	f := fieldErrors{}
	f.require("email", r.Email)
	if _, ok := f["email"]; !ok {
		if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
			f["email"] = "must be a valid email address"
		}
	}
	if r.Password == "" {
		f["password"] = "must not be blank"
	}
	return f.err()
}
