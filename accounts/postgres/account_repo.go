package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, full_name, password_hash, avatar, cover_image, refresh_token, created_at, updated_at`

var _ accounts.Repo = (*AccountRepo)(nil)

type AccountRepo struct {
	db DBTX
}

func NewAccountRepo(db DBTX) *AccountRepo {
	return &AccountRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*accounts.Account, error) {
	a := &accounts.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash,
		&a.Avatar, &a.CoverImage, &a.RefreshToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// translate maps driver errors onto the service taxonomy.
func translate(fn string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.AccountNotFound()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.Conflict("user with username or email already exists")
	}
	return apperrors.Internal(fmt.Errorf("[%s] db error: %w", fn, err))
}

func (r *AccountRepo) Create(ctx context.Context, account *accounts.Account) (*accounts.Account, error) {
	id := account.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := `INSERT INTO accounts (id, username, email, full_name, password_hash, avatar, cover_image, refresh_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING ` + accountColumns

	row := r.db.QueryRowContext(ctx, query, id, account.Username, account.Email, account.FullName,
		account.PasswordHash, account.Avatar, account.CoverImage, account.RefreshToken)
	created, err := scanAccount(row)
	if err != nil {
		return nil, translate("AccountRepo.Create", err)
	}
	return created, nil
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate("AccountRepo.FindByID", err)
	}
	return a, nil
}

func (r *AccountRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*accounts.Account, error) {
	if username == "" && email == "" {
		return nil, apperrors.AccountNotFound()
	}
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 LIMIT 1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, username, email))
	if err != nil {
		return nil, translate("AccountRepo.FindByUsernameOrEmail", err)
	}
	return a, nil
}

// UpdateFields writes the set fields of changes. Unless opts.SkipValidation
// is set, the merged record is validated before anything is written.
func (r *AccountRepo) UpdateFields(ctx context.Context, id string, changes accounts.Changes, opts accounts.UpdateOptions) (*accounts.Account, error) {
	if !opts.SkipValidation {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		changes.Apply(current)
		if err := current.Validate(); err != nil {
			return nil, err
		}
	}

	sets := make([]string, 0, 8)
	args := make([]any, 0, 8)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("username", changes.Username)
	add("email", changes.Email)
	add("full_name", changes.FullName)
	add("password_hash", changes.PasswordHash)
	add("avatar", changes.Avatar)
	add("cover_image", changes.CoverImage)
	add("refresh_token", changes.RefreshToken)
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), accountColumns)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate("AccountRepo.UpdateFields", err)
	}
	return a, nil
}

func (r *AccountRepo) CompareAndSwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	query := `UPDATE accounts SET refresh_token = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token = $2`

	res, err := r.db.ExecContext(ctx, query, id, current, next)
	if err != nil {
		return false, translate("AccountRepo.CompareAndSwapRefreshToken", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translate("AccountRepo.CompareAndSwapRefreshToken", err)
	}
	if n == 1 {
		return true, nil
	}

	// Nothing matched: either the token moved on or the account is gone.
	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, translate("AccountRepo.CompareAndSwapRefreshToken", err)
	}
	if !exists {
		return false, apperrors.AccountNotFound()
	}
	return false, nil
}
