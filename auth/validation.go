package auth

import (
	"strings"

	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/media"
	"github.com/jrsteele09/go-account-service/password"
)

// RegisterInput is a sign-up request. Images are optional.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *media.Upload
	CoverImage *media.Upload
}

func (in *RegisterInput) normalize() {
	in.Username = accounts.NormalizeUsername(in.Username)
	in.Email = accounts.NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
}

func (in *RegisterInput) validate() error {
	if in.Username == "" || in.Email == "" || in.FullName == "" || in.Password == "" {
		return apperrors.Validation("please provide all the details")
	}
	if err := accounts.ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := accounts.ValidateEmail(in.Email); err != nil {
		return err
	}
	return password.ValidateStrength(in.Password)
}

// LoginInput identifies the account by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

func (in *LoginInput) normalize() {
	in.Username = accounts.NormalizeUsername(in.Username)
	in.Email = accounts.NormalizeEmail(in.Email)
}

func (in *LoginInput) validate() error {
	if in.Username == "" && in.Email == "" {
		return apperrors.Validation("please provide username or email")
	}
	if in.Password == "" {
		return apperrors.Validation("please provide password")
	}
	return nil
}

// identifier is the throttling key for the attempt.
func (in *LoginInput) identifier() string {
	if in.Username != "" {
		return in.Username
	}
	return in.Email
}

// DetailsInput is a partial profile update. Nil fields are left alone.
type DetailsInput struct {
	Username *string
	Email    *string
	FullName *string
}

func (in DetailsInput) changes() (accounts.Changes, error) {
	if in.Username == nil && in.Email == nil && in.FullName == nil {
		return accounts.Changes{}, apperrors.Validation("please provide at least one field to update")
	}

	var c accounts.Changes
	if in.Username != nil {
		u := accounts.NormalizeUsername(*in.Username)
		if err := accounts.ValidateUsername(u); err != nil {
			return accounts.Changes{}, err
		}
		c.Username = &u
	}
	if in.Email != nil {
		e := accounts.NormalizeEmail(*in.Email)
		if err := accounts.ValidateEmail(e); err != nil {
			return accounts.Changes{}, err
		}
		c.Email = &e
	}
	if in.FullName != nil {
		n := strings.TrimSpace(*in.FullName)
		if err := accounts.ValidateFullName(n); err != nil {
			return accounts.Changes{}, err
		}
		c.FullName = &n
	}
	return c, nil
}
