package config

import "time"

const (
	accessTokenSecretVar  = "ACCESS_TOKEN_SECRET"
	accessTokenExpiryVar  = "ACCESS_TOKEN_EXPIRY"
	refreshTokenSecretVar = "REFRESH_TOKEN_SECRET"
	refreshTokenExpiryVar = "REFRESH_TOKEN_EXPIRY"
)

type TokenConfig interface {
	GetAccessTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenSecret() string
	GetRefreshTokenExpiry() time.Duration
}

type Tokens struct {
	accessSecret  string
	accessExpiry  time.Duration
	refreshSecret string
	refreshExpiry time.Duration
}

var _ TokenConfig = Tokens{}

// NewTokens builds a token configuration directly, for tests and tools.
func NewTokens(accessSecret string, accessExpiry time.Duration, refreshSecret string, refreshExpiry time.Duration) Tokens {
	return Tokens{
		accessSecret:  accessSecret,
		accessExpiry:  accessExpiry,
		refreshSecret: refreshSecret,
		refreshExpiry: refreshExpiry,
	}
}

func loadTokens(r *reader) Tokens {
	return Tokens{
		accessSecret:  r.required(accessTokenSecretVar),
		accessExpiry:  r.requiredDuration(accessTokenExpiryVar),
		refreshSecret: r.required(refreshTokenSecretVar),
		refreshExpiry: r.requiredDuration(refreshTokenExpiryVar),
	}
}

func (t Tokens) GetAccessTokenSecret() string {
	return t.accessSecret
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.accessExpiry
}

func (t Tokens) GetRefreshTokenSecret() string {
	return t.refreshSecret
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return t.refreshExpiry
}
