package identity

import (
	"strings"
	"time"
)

// Role is the authorization level carried by a user and their session tokens.
type Role string

const (
	RoleUser   Role = "ROLE_USER"
	RoleVendor Role = "ROLE_VENDOR"
	RoleAdmin  Role = "ROLE_ADMIN"
)

const rolePrefix = "ROLE_"

// Roles lists every known role in display order.
var Roles = []Role{RoleUser, RoleVendor, RoleAdmin}

// ParseRole matches s against the known roles ignoring case and the optional
// ROLE_ prefix. Unknown or blank values yield RoleUser.
func ParseRole(s string) Role {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return RoleUser
	}
	if !strings.HasPrefix(name, rolePrefix) {
		name = rolePrefix + name
	}
	for _, r := range Roles {
		if string(r) == name {
			return r
		}
	}
	return RoleUser
}

func (r Role) String() string { return string(r) }

// User represents a registered trade directory account.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	PasswordHash  []byte
	Role          Role
	EmailVerified bool
	PhoneVerified bool
	OTPCode       string
	OTPExpiresAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPendingOTP reports whether a one-time code challenge is outstanding.
func (u User) HasPendingOTP() bool {
	return u.OTPCode != "" && u.OTPExpiresAt != nil
}

// DisplayName is the name used when addressing the user in notifications.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// NewUser is the input used to create an identity record.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash []byte
	Role         Role
}
