package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/accounts"
	"github.com/jrsteele09/go-account-service/internal/config"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
)

// Pair is an access token and its companion refresh token.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims are the verified claims of an access token.
type AccessClaims struct {
	Subject   string
	Username  string
	Email     string
	FullName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// RefreshClaims are the verified claims of a refresh token.
type RefreshClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Issuer mints and verifies access and refresh tokens. Each kind has its own
// secret, so a token of one kind never verifies as the other.
type Issuer struct {
	access        Signer
	refresh       Signer
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowTime       func() time.Time
}

type IssuerOption func(i *Issuer)

// WithNowTime overrides the clock used for iat, exp and validation.
func WithNowTime(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = now
	}
}

func NewIssuer(cfg config.TokenConfig, opts ...IssuerOption) (*Issuer, error) {
	if cfg.GetAccessTokenSecret() == "" || cfg.GetRefreshTokenSecret() == "" {
		return nil, errors.New("[NewIssuer] token secrets must be set")
	}
	if cfg.GetAccessTokenSecret() == cfg.GetRefreshTokenSecret() {
		return nil, errors.New("[NewIssuer] access and refresh secrets must differ")
	}
	if cfg.GetAccessTokenExpiry() <= 0 || cfg.GetRefreshTokenExpiry() <= 0 {
		return nil, errors.New("[NewIssuer] token expiries must be positive")
	}

	i := &Issuer{
		access:        NewHMACSigner(cfg.GetAccessTokenSecret()),
		refresh:       NewHMACSigner(cfg.GetRefreshTokenSecret()),
		accessExpiry:  cfg.GetAccessTokenExpiry(),
		refreshExpiry: cfg.GetRefreshTokenExpiry(),
		nowTime:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAccess creates a short-lived token carrying the account's identity.
func (i *Issuer) IssueAccess(account *accounts.Account) (string, error) {
	now := i.nowTime()
	claims := jwt.MapClaims{
		"sub":      account.ID,
		"username": account.Username,
		"email":    account.Email,
		"fullName": account.FullName,
		"iat":      now.Unix(),
		"exp":      now.Add(i.accessExpiry).Unix(),
		"jti":      uuid.New().String(), // keeps tokens minted in the same second distinct
	}
	signed, err := i.access.Sign(claims)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("[Issuer.IssueAccess] %w", err))
	}
	return signed, nil
}

// IssueRefresh creates a long-lived token carrying only the account id.
func (i *Issuer) IssueRefresh(accountID string) (string, error) {
	now := i.nowTime()
	claims := jwt.MapClaims{
		"sub": accountID,
		"iat": now.Unix(),
		"exp": now.Add(i.refreshExpiry).Unix(),
		"jti": uuid.New().String(),
	}
	signed, err := i.refresh.Sign(claims)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("[Issuer.IssueRefresh] %w", err))
	}
	return signed, nil
}

// IssuePair creates both tokens for account.
func (i *Issuer) IssuePair(account *accounts.Account) (Pair, error) {
	access, err := i.IssueAccess(account)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.IssueRefresh(account.ID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccess verifies signature and expiry of an access token.
func (i *Issuer) ParseAccess(raw string) (*AccessClaims, error) {
	claims, err := i.parse(raw, i.access)
	if err != nil {
		return nil, err
	}
	ac := &AccessClaims{}
	if err := fillRegistered(claims, &ac.Subject, &ac.IssuedAt, &ac.ExpiresAt, &ac.ID); err != nil {
		return nil, err
	}
	ac.Username, _ = claims["username"].(string)
	ac.Email, _ = claims["email"].(string)
	ac.FullName, _ = claims["fullName"].(string)
	return ac, nil
}

// ParseRefresh verifies signature and expiry of a refresh token.
func (i *Issuer) ParseRefresh(raw string) (*RefreshClaims, error) {
	claims, err := i.parse(raw, i.refresh)
	if err != nil {
		return nil, err
	}
	rc := &RefreshClaims{}
	if err := fillRegistered(claims, &rc.Subject, &rc.IssuedAt, &rc.ExpiresAt, &rc.ID); err != nil {
		return nil, err
	}
	return rc, nil
}

func (i *Issuer) parse(raw string, signer Signer) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, apperrors.InvalidToken(errors.New("empty token"))
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.nowTime),
	)
	parsed, err := parser.ParseWithClaims(raw, jwt.MapClaims{}, signer.GetVerificationKey)
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperrors.InvalidToken(errors.New("error extracting claims from token"))
	}
	return claims, nil
}

func fillRegistered(claims jwt.MapClaims, sub *string, iat, exp *time.Time, jti *string) error {
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return apperrors.InvalidToken(errors.New("token missing sub claim"))
	}
	*sub = subject
	if issued, err := claims.GetIssuedAt(); err == nil && issued != nil {
		*iat = issued.Time
	}
	if expires, err := claims.GetExpirationTime(); err == nil && expires != nil {
		*exp = expires.Time
	}
	*jti, _ = claims["jti"].(string)
	return nil
}
