package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/media"
	"github.com/jrsteele09/go-account-service/password"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/jrsteele09/go-account-service/token/refresh"
	"github.com/rs/zerolog/log"
)

const defaultStoreTimeout = 5 * time.Second

// LoginLimiter throttles repeated failed logins for one identifier.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, identifier string) error
	IncrementLogin(ctx context.Context, identifier string) error
	ResetLogin(ctx context.Context, identifier string) error
}

// Repos holds all repository dependencies for the AccountService
type Repos struct {
	Accounts accounts.Repo // Repository for account records
	Media    media.Store   // Store for avatar and cover images
}

// AccountService provides registration, login and session lifecycle for accounts.
type AccountService struct {
	repos        Repos
	hasher       *password.Hasher
	issuer       *token.Issuer
	sessions     *refresh.Store
	rotator      *refresh.Rotator
	limiter      LoginLimiter
	revoked      token.RevokedTokenCache
	storeTimeout time.Duration
}

// AccountServiceOption defines a function type to modify the AccountService instance.
type AccountServiceOption func(*AccountService)

// WithLoginLimiter enables throttling of failed logins.
func WithLoginLimiter(l LoginLimiter) AccountServiceOption {
	return func(as *AccountService) {
		as.limiter = l
	}
}

// WithRevokedTokenCache makes Logout revoke the caller's access token too.
func WithRevokedTokenCache(c token.RevokedTokenCache) AccountServiceOption {
	return func(as *AccountService) {
		as.revoked = c
	}
}

// WithStoreTimeout bounds each call into the account repo.
func WithStoreTimeout(d time.Duration) AccountServiceOption {
	return func(as *AccountService) {
		if d > 0 {
			as.storeTimeout = d
		}
	}
}

// NewAccountService initializes a new AccountService with required dependencies.
func NewAccountService(
	repos Repos,
	hasher *password.Hasher,
	issuer *token.Issuer,
	options ...AccountServiceOption,
) (*AccountService, error) {
	if repos.Accounts == nil {
		return nil, errors.New("[NewAccountService] Accounts repo is required")
	}
	if repos.Media == nil {
		return nil, errors.New("[NewAccountService] Media store is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewAccountService] hasher is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewAccountService] issuer is required")
	}

	as := &AccountService{
		repos:        repos,
		hasher:       hasher,
		issuer:       issuer,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range options {
		opt(as)
	}

	as.sessions = refresh.NewStore(repos.Accounts, refresh.WithTimeout(as.storeTimeout))
	as.rotator = refresh.NewRotator(issuer, as.sessions)
	return as, nil
}

// Sessions exposes the refresh token store.
func (as *AccountService) Sessions() *refresh.Store {
	return as.sessions
}

// Register creates an account. Images are uploaded before the record is
// written and removed again if the write fails.
func (as *AccountService) Register(ctx context.Context, in RegisterInput) (*accounts.Account, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	rctx, cancel := as.storeContext(ctx)
	_, err := as.repos.Accounts.FindByUsernameOrEmail(rctx, in.Username, in.Email)
	cancel()
	switch {
	case err == nil:
		return nil, apperrors.Conflict("user with username or email already exists")
	case !errors.Is(err, apperrors.ErrAccountNotFound):
		return nil, apperrors.Tagged(err)
	}

	account := &accounts.Account{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
	}

	var uploaded []string
	for _, img := range []struct {
		upload *media.Upload
		folder string
		field  *string
	}{
		{in.Avatar, media.FolderAvatars, &account.Avatar},
		{in.CoverImage, media.FolderCoverImages, &account.CoverImage},
	} {
		if img.upload == nil {
			continue
		}
		img.upload.Folder = img.folder
		ref, err := as.repos.Media.Upload(ctx, *img.upload)
		if err != nil {
			as.discardMedia(ctx, uploaded...)
			return nil, apperrors.Internal(fmt.Errorf("[AccountService.Register] uploading %s: %w", img.folder, err))
		}
		*img.field = ref
		uploaded = append(uploaded, ref)
	}

	digest, err := as.hasher.Hash(ctx, in.Password)
	if err != nil {
		as.discardMedia(ctx, uploaded...)
		return nil, err
	}
	account.PasswordHash = digest

	rctx, cancel = as.storeContext(ctx)
	defer cancel()
	created, err := as.repos.Accounts.Create(rctx, account)
	if err != nil {
		as.discardMedia(ctx, uploaded...)
		return nil, apperrors.Tagged(err)
	}
	return created, nil
}

// Login verifies credentials and starts a new session. Any refresh token
// issued before is superseded.
func (as *AccountService) Login(ctx context.Context, in LoginInput) (*accounts.Account, token.Pair, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, token.Pair{}, err
	}

	if err := as.checkLimiter(ctx, in.identifier()); err != nil {
		return nil, token.Pair{}, err
	}

	rctx, cancel := as.storeContext(ctx)
	account, err := as.repos.Accounts.FindByUsernameOrEmail(rctx, in.Username, in.Email)
	cancel()
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			as.recordFailure(ctx, in.identifier())
		}
		return nil, token.Pair{}, apperrors.Tagged(err)
	}

	if !as.hasher.Verify(ctx, in.Password, account.PasswordHash) {
		as.recordFailure(ctx, in.identifier())
		return nil, token.Pair{}, apperrors.InvalidCredentials()
	}

	pair, err := as.issuer.IssuePair(account)
	if err != nil {
		return nil, token.Pair{}, err
	}
	if err := as.sessions.Persist(ctx, account.ID, pair.RefreshToken); err != nil {
		return nil, token.Pair{}, apperrors.Tagged(err)
	}
	as.resetLimiter(ctx, in.identifier())

	account.RefreshToken = pair.RefreshToken
	return account, pair, nil
}

// Logout clears the stored refresh token of accountID. When access is given
// and a revocation cache is configured, that access token stops working too.
func (as *AccountService) Logout(ctx context.Context, accountID string, access *token.AccessClaims) error {
	if err := as.sessions.Clear(ctx, accountID); err != nil {
		return apperrors.Tagged(err)
	}
	if as.revoked != nil && access != nil {
		if err := as.revoked.Revoke(ctx, access.ID, access.ExpiresAt); err != nil {
			log.Warn().Err(err).Str("account_id", accountID).Msg("Logout: failed to revoke access token")
		}
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair.
func (as *AccountService) Refresh(ctx context.Context, rawRefreshToken string) (token.Pair, *accounts.Account, error) {
	return as.rotator.Rotate(ctx, rawRefreshToken)
}

// Authenticate verifies an access token and loads its account.
func (as *AccountService) Authenticate(ctx context.Context, rawAccessToken string) (*accounts.Account, *token.AccessClaims, error) {
	if rawAccessToken == "" {
		return nil, nil, apperrors.MissingCredential("unauthorized request")
	}
	claims, err := as.issuer.ParseAccess(rawAccessToken)
	if err != nil {
		return nil, nil, err
	}
	if as.revoked != nil {
		revoked, err := as.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, apperrors.InvalidToken(err)
		}
		if revoked {
			return nil, nil, apperrors.StaleOrRevoked()
		}
	}

	rctx, cancel := as.storeContext(ctx)
	defer cancel()
	account, err := as.repos.Accounts.FindByID(rctx, claims.Subject)
	if err != nil {
		return nil, nil, apperrors.Tagged(err)
	}
	return account, claims, nil
}

// ChangePassword replaces the password hash after checking the old password.
func (as *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.Validation("please provide old and new password")
	}
	if err := password.ValidateStrength(newPassword); err != nil {
		return err
	}

	account, err := as.Current(ctx, accountID)
	if err != nil {
		return err
	}
	if !as.hasher.Verify(ctx, oldPassword, account.PasswordHash) {
		return apperrors.New(apperrors.KindUnauthenticated, apperrors.ErrInvalidCredentials, "incorrect old password")
	}

	digest, err := as.hasher.Hash(ctx, newPassword)
	if err != nil {
		return err
	}

	rctx, cancel := as.storeContext(ctx)
	defer cancel()
	if _, err := as.repos.Accounts.UpdateFields(rctx, accountID, accounts.Changes{PasswordHash: &digest}, accounts.UpdateOptions{SkipValidation: true}); err != nil {
		return apperrors.Tagged(err)
	}
	return nil
}

// UpdateDetails changes username, email or display name. The password hash
// is never part of this update.
func (as *AccountService) UpdateDetails(ctx context.Context, accountID string, in DetailsInput) (*accounts.Account, error) {
	changes, err := in.changes()
	if err != nil {
		return nil, err
	}

	rctx, cancel := as.storeContext(ctx)
	defer cancel()
	account, err := as.repos.Accounts.UpdateFields(rctx, accountID, changes, accounts.UpdateOptions{})
	if err != nil {
		return nil, apperrors.Tagged(err)
	}
	return account, nil
}

// Current returns the account with the given id.
func (as *AccountService) Current(ctx context.Context, accountID string) (*accounts.Account, error) {
	rctx, cancel := as.storeContext(ctx)
	defer cancel()
	account, err := as.repos.Accounts.FindByID(rctx, accountID)
	if err != nil {
		return nil, apperrors.Tagged(err)
	}
	return account, nil
}

// UpdateAvatar uploads a new avatar and drops the previous one.
func (as *AccountService) UpdateAvatar(ctx context.Context, accountID string, upload media.Upload) (*accounts.Account, error) {
	return as.replaceImage(ctx, accountID, upload, media.FolderAvatars, func(c *accounts.Changes, ref *string) { c.Avatar = ref },
		func(a *accounts.Account) string { return a.Avatar })
}

// UpdateCoverImage uploads a new cover image and drops the previous one.
func (as *AccountService) UpdateCoverImage(ctx context.Context, accountID string, upload media.Upload) (*accounts.Account, error) {
	return as.replaceImage(ctx, accountID, upload, media.FolderCoverImages, func(c *accounts.Changes, ref *string) { c.CoverImage = ref },
		func(a *accounts.Account) string { return a.CoverImage })
}

func (as *AccountService) replaceImage(
	ctx context.Context,
	accountID string,
	upload media.Upload,
	folder string,
	set func(c *accounts.Changes, ref *string),
	previous func(a *accounts.Account) string,
) (*accounts.Account, error) {
	if upload.Body == nil {
		return nil, apperrors.Validation("please provide an image")
	}

	current, err := as.Current(ctx, accountID)
	if err != nil {
		return nil, err
	}

	upload.Folder = folder
	ref, err := as.repos.Media.Upload(ctx, upload)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("[AccountService.replaceImage] uploading %s: %w", folder, err))
	}

	var changes accounts.Changes
	set(&changes, &ref)

	rctx, cancel := as.storeContext(ctx)
	defer cancel()
	updated, err := as.repos.Accounts.UpdateFields(rctx, accountID, changes, accounts.UpdateOptions{SkipValidation: true})
	if err != nil {
		as.discardMedia(ctx, ref)
		return nil, apperrors.Tagged(err)
	}

	if old := previous(current); old != "" {
		as.discardMedia(ctx, old)
	}
	return updated, nil
}

// discardMedia deletes objects best effort. Failures are only logged.
func (as *AccountService) discardMedia(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if _, err := as.repos.Media.Delete(ctx, ref); err != nil {
			log.Warn().Err(err).Str("reference", ref).Msg("Failed to delete media object")
		}
	}
}

func (as *AccountService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, as.storeTimeout)
}

// The limiter fails open: an unreachable Redis must not lock everyone out.
func (as *AccountService) checkLimiter(ctx context.Context, identifier string) error {
	if as.limiter == nil {
		return nil
	}
	err := as.limiter.CheckLogin(ctx, identifier)
	if errors.Is(err, apperrors.ErrTooManyAttempts) {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Msg("Login limiter unavailable")
	}
	return nil
}

func (as *AccountService) recordFailure(ctx context.Context, identifier string) {
	if as.limiter == nil {
		return
	}
	if err := as.limiter.IncrementLogin(ctx, identifier); err != nil {
		log.Warn().Err(err).Msg("Login limiter unavailable")
	}
}

func (as *AccountService) resetLimiter(ctx context.Context, identifier string) {
	if as.limiter == nil {
		return
	}
	if err := as.limiter.ResetLogin(ctx, identifier); err != nil {
		log.Warn().Err(err).Msg("Login limiter unavailable")
	}
}
