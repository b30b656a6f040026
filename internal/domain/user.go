package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrInvalidRole      = errors.New("invalid role")
	ErrNegativePoints   = errors.New("points cannot be negative")
)

// Role is the authorization level of a user.
type Role string

// Supported roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered user. It is a plain record: credential
// checks live in the auth package and operate on HashedPassword.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Password       string     `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string     `json:"-"` // Never expose password hash in JSON
	Role           Role       `json:"role"`
	Points         int        `json:"points"`
	LastStreakDate *time.Time `json:"last_streak_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewUser creates a new User with the given email and password.
// New users have the USER role and no points.
// Returns an error if validation fails.
//
// NOTE: the caller is responsible for hashing the password before storing the user.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     strings.TrimSpace(email),
		Password:  password,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyUserID)
	}

	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", ErrEmptyEmail)
	}

	if !validateEmailFormat(u.Email) {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}

	if u.Password != "" {
		switch {
		case len(u.Password) < 12:
			return NewValidationError("password", "is too short", ErrPasswordTooShort)
		case len(u.Password) > 72:
			return NewValidationError("password", "is too long", ErrPasswordTooLong)
		}
	} else if u.HashedPassword == "" {
		return NewValidationError("password", "cannot be empty", ErrEmptyPassword)
	}

	if !u.Role.Valid() {
		return NewValidationError("role", "is not a known role", ErrInvalidRole)
	}

	if u.Points < 0 {
		return NewValidationError("points", "cannot be negative", ErrNegativePoints)
	}

	return nil
}

// DisplayName is the local part of the user's email address.
func (u *User) DisplayName() string {
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// validateEmailFormat performs basic validation of email format: a non-empty
// local part, an @, and a domain containing a dot that is neither leading
// nor trailing.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domainPart := email[at+1:]
	if len(domainPart) < 3 || strings.ContainsRune(domainPart, '@') {
		return false
	}

	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
