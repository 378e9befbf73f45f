package fakeaccountrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory accounts.Repo. Records are copied in and
// out so callers never share state with the store.
type FakeAccountRepo struct {
	accounts  map[string]*accounts.Account
	usernames map[string]string // username to account id
	emails    map[string]string // email to account id
	lock      sync.RWMutex
	nowTime   func() time.Time
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts:  make(map[string]*accounts.Account),
		usernames: make(map[string]string),
		emails:    make(map[string]string),
		nowTime:   time.Now,
	}
}

func (ar *FakeAccountRepo) Create(_ context.Context, account *accounts.Account) (*accounts.Account, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if _, ok := ar.usernames[account.Username]; ok {
		return nil, apperrors.Conflict("user with username or email already exists")
	}
	if _, ok := ar.emails[account.Email]; ok {
		return nil, apperrors.Conflict("user with username or email already exists")
	}

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := ar.nowTime()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	ar.accounts[stored.ID] = stored
	ar.usernames[stored.Username] = stored.ID
	ar.emails[stored.Email] = stored.ID
	return stored.Clone(), nil
}

func (ar *FakeAccountRepo) FindByID(_ context.Context, id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	a, ok := ar.accounts[id]
	if !ok {
		return nil, apperrors.AccountNotFound()
	}
	return a.Clone(), nil
}

func (ar *FakeAccountRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	if id, ok := ar.usernames[username]; ok && username != "" {
		return ar.accounts[id].Clone(), nil
	}
	if id, ok := ar.emails[email]; ok && email != "" {
		return ar.accounts[id].Clone(), nil
	}
	return nil, apperrors.AccountNotFound()
}

func (ar *FakeAccountRepo) UpdateFields(_ context.Context, id string, changes accounts.Changes, opts accounts.UpdateOptions) (*accounts.Account, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	current, ok := ar.accounts[id]
	if !ok {
		return nil, apperrors.AccountNotFound()
	}

	updated := current.Clone()
	changes.Apply(updated)

	if !opts.SkipValidation {
		if err := updated.Validate(); err != nil {
			return nil, err
		}
	}
	if owner, ok := ar.usernames[updated.Username]; ok && owner != id {
		return nil, apperrors.Conflict("username already taken")
	}
	if owner, ok := ar.emails[updated.Email]; ok && owner != id {
		return nil, apperrors.Conflict("email already taken")
	}

	delete(ar.usernames, current.Username)
	delete(ar.emails, current.Email)
	updated.UpdatedAt = ar.nowTime()
	ar.accounts[id] = updated
	ar.usernames[updated.Username] = id
	ar.emails[updated.Email] = id
	return updated.Clone(), nil
}

func (ar *FakeAccountRepo) CompareAndSwapRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	a, ok := ar.accounts[id]
	if !ok {
		return false, apperrors.AccountNotFound()
	}
	if a.RefreshToken != current {
		return false, nil
	}
	a.RefreshToken = next
	a.UpdatedAt = ar.nowTime()
	return true, nil
}

// Put stores account as-is, bypassing validation and uniqueness checks.
// Tests use it to seed records that are no longer valid under current rules.
func (ar *FakeAccountRepo) Put(account *accounts.Account) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
		account.ID = stored.ID
	}
	ar.accounts[stored.ID] = stored
	ar.usernames[stored.Username] = stored.ID
	ar.emails[stored.Email] = stored.ID
}
