package refresh

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/rs/zerolog/log"
)

// Rotator exchanges a valid refresh token for a new pair. Each refresh token
// can be exchanged at most once.
type Rotator struct {
	issuer *token.Issuer
	store  *Store
}

func NewRotator(issuer *token.Issuer, store *Store) *Rotator {
	return &Rotator{issuer: issuer, store: store}
}

// Rotate runs extract, verify, resolve, cross-check and rotate in order.
// Any failure leaves the stored token untouched. Faults that are not one of
// the expected outcomes are reported as InvalidToken with the cause kept.
func (r *Rotator) Rotate(ctx context.Context, raw string) (token.Pair, *accounts.Account, error) {
	pair, account, err := r.rotate(ctx, raw)
	if err != nil {
		err = expectedOrInvalid(err)
		log.Debug().Err(err).Msg("refresh token rotation rejected")
		return token.Pair{}, nil, err
	}
	return pair, account, nil
}

func (r *Rotator) rotate(ctx context.Context, raw string) (token.Pair, *accounts.Account, error) {
	if raw == "" {
		return token.Pair{}, nil, apperrors.MissingCredential("unauthorized request")
	}

	claims, err := r.issuer.ParseRefresh(raw)
	if err != nil {
		return token.Pair{}, nil, err
	}

	account, err := r.store.Account(ctx, claims.Subject)
	if err != nil {
		return token.Pair{}, nil, err
	}

	if account.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(raw)) != 1 {
		return token.Pair{}, nil, apperrors.StaleOrRevoked()
	}

	pair, err := r.issuer.IssuePair(account)
	if err != nil {
		return token.Pair{}, nil, err
	}
	if err := r.store.Swap(ctx, account.ID, raw, pair.RefreshToken); err != nil {
		return token.Pair{}, nil, err
	}

	account.RefreshToken = pair.RefreshToken
	return pair, account, nil
}

func expectedOrInvalid(err error) error {
	for _, reason := range []error{
		apperrors.ErrMissingCredential,
		apperrors.ErrInvalidToken,
		apperrors.ErrAccountNotFound,
		apperrors.ErrStaleOrRevokedToken,
	} {
		if errors.Is(err, reason) {
			return err
		}
	}
	return apperrors.InvalidToken(err)
}
