package auth

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies the outcome of a failed auth flow.
type Kind string

const (
	KindValidation          Kind = "Validation"
	KindUserNotFound        Kind = "UserNotFound"
	KindInvalidCredentials  Kind = "InvalidCredentials"
	KindInvalidOrExpiredOtp Kind = "InvalidOrExpiredOtp"
	KindOtpDeliveryFailed   Kind = "OtpDeliveryFailed"
	KindDuplicateEmail      Kind = "DuplicateEmail"
	KindDuplicatePhone      Kind = "DuplicatePhone"
	KindInternal            Kind = "Internal"
)

// kindMessages are the client-facing texts. The web client keys on the
// "Error: " prefix of business failures.
var kindMessages = map[Kind]string{
	KindValidation:          "Error: Invalid request!",
	KindUserNotFound:        "Error: User not found!",
	KindInvalidCredentials:  "Error: Invalid credentials!",
	KindInvalidOrExpiredOtp: "Error: Invalid or expired OTP!",
	KindOtpDeliveryFailed:   "Error: Failed to send OTP. Please try again.",
	KindDuplicateEmail:      "Error: Email is already in use!",
	KindDuplicatePhone:      "Error: Phone number is already in use!",
	KindInternal:            "Internal error",
}

// Error is an expected, caller-visible failure of an auth flow. Fields holds
// per-field messages for KindValidation.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	err     error
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind], err: cause}
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

// KindOf returns the Kind carried by err. Errors that are not *Error are
// reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}
