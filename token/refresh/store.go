package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
)

const DefaultStoreTimeout = 5 * time.Second

// Store keeps the single live refresh token of each account. Writes only
// touch the refresh token field and never re-validate the rest of the record.
type Store struct {
	repo    accounts.Repo
	timeout time.Duration
}

type StoreOption func(s *Store)

// WithTimeout bounds every call into the account repo.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewStore(repo accounts.Repo, opts ...StoreOption) *Store {
	s := &Store{repo: repo, timeout: DefaultStoreTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persist overwrites the stored refresh token for accountID.
func (s *Store) Persist(ctx context.Context, accountID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.repo.UpdateFields(ctx, accountID, accounts.Changes{RefreshToken: &token}, accounts.UpdateOptions{SkipValidation: true})
	return storeError("Store.Persist", err)
}

// Clear empties the stored refresh token, revoking every outstanding one.
func (s *Store) Clear(ctx context.Context, accountID string) error {
	return s.Persist(ctx, accountID, "")
}

// Get returns the stored refresh token. An empty string means none is live.
func (s *Store) Get(ctx context.Context, accountID string) (string, error) {
	account, err := s.Account(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.RefreshToken, nil
}

// Account loads the account that owns the stored refresh token.
func (s *Store) Account(ctx context.Context, accountID string) (*accounts.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, storeError("Store.Account", err)
	}
	return account, nil
}

// Swap replaces current with next only if current is still the stored value.
// A lost race reports StaleOrRevokedToken.
func (s *Store) Swap(ctx context.Context, accountID, current, next string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	swapped, err := s.repo.CompareAndSwapRefreshToken(ctx, accountID, current, next)
	if err != nil {
		return storeError("Store.Swap", err)
	}
	if !swapped {
		return apperrors.StaleOrRevoked()
	}
	return nil
}

func storeError(fn string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Internal(fmt.Errorf("[%s] store timed out: %w", fn, err))
	}
	var tagged *apperrors.Error
	if errors.As(err, &tagged) {
		return err
	}
	return apperrors.Internal(fmt.Errorf("[%s] %w", fn, err))
}
