package identity

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail indicates the email is already bound to another account.
	ErrDuplicateEmail = errors.New("email is already in use")

	// ErrDuplicatePhone indicates the phone is already bound to another account.
	ErrDuplicatePhone = errors.New("phone number is already in use")

	// ErrOTPMismatch is returned by ConsumeOTP when the stored challenge no
	// longer matches the submitted code or has expired.
	ErrOTPMismatch = errors.New("otp does not match an outstanding challenge")
)
