package accounts

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// Account is the identity record of a user of the media-sharing application.
type Account struct {
	ID           string    `json:"_id"`                  // Unique identifier for the account
	Username     string    `json:"username"`             // Unique, lowercase username
	Email        string    `json:"email"`                // Unique, lowercase email address
	FullName     string    `json:"fullName"`             // Display name
	PasswordHash string    `json:"-"`                    // bcrypt digest - never serialize
	Avatar       string    `json:"avatar,omitempty"`     // Media store URL
	CoverImage   string    `json:"coverImage,omitempty"` // Media store URL
	RefreshToken string    `json:"-"`                    // The single live refresh token, empty when logged out - never serialize
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a copy that can be handed out without sharing state with a store.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// NormalizeUsername trims and case-folds a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail trims and case-folds an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks an already normalized username.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return apperrors.Validation(fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	if strings.ContainsAny(username, " \t\r\n@") {
		return apperrors.Validation("username must not contain whitespace or '@'")
	}
	return nil
}

// ValidateEmail checks an already normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.Validation("email is not a valid address")
	}
	return nil
}

// ValidateFullName checks a display name.
func ValidateFullName(fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		return apperrors.Validation("full name is required")
	}
	return nil
}

// Validate checks every field of the record.
func (a *Account) Validate() error {
	if err := ValidateUsername(a.Username); err != nil {
		return err
	}
	if err := ValidateEmail(a.Email); err != nil {
		return err
	}
	if err := ValidateFullName(a.FullName); err != nil {
		return err
	}
	if a.PasswordHash == "" {
		return apperrors.Validation("password is required")
	}
	return nil
}

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Username     *string
	Email        *string
	FullName     *string
	PasswordHash *string
	Avatar       *string
	CoverImage   *string
	RefreshToken *string
}

// IsEmpty reports whether no field is set.
func (c Changes) IsEmpty() bool {
	return c.Username == nil && c.Email == nil && c.FullName == nil && c.PasswordHash == nil &&
		c.Avatar == nil && c.CoverImage == nil && c.RefreshToken == nil
}

// Apply copies the set fields onto a.
func (c Changes) Apply(a *Account) {
	if c.Username != nil {
		a.Username = *c.Username
	}
	if c.Email != nil {
		a.Email = *c.Email
	}
	if c.FullName != nil {
		a.FullName = *c.FullName
	}
	if c.PasswordHash != nil {
		a.PasswordHash = *c.PasswordHash
	}
	if c.Avatar != nil {
		a.Avatar = *c.Avatar
	}
	if c.CoverImage != nil {
		a.CoverImage = *c.CoverImage
	}
	if c.RefreshToken != nil {
		a.RefreshToken = *c.RefreshToken
	}
}

// UpdateOptions controls how UpdateFields treats the resulting record.
type UpdateOptions struct {
	// SkipValidation writes the changes without re-validating unrelated fields.
	SkipValidation bool
}
