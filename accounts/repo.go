package accounts

import "context"

// Repo persists accounts. Implementations return apperrors.AccountNotFound for
// unknown ids and apperrors.Conflict for duplicate usernames or emails.
type Repo interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*Account, error)
	UpdateFields(ctx context.Context, id string, changes Changes, opts UpdateOptions) (*Account, error)

	// CompareAndSwapRefreshToken stores next only if the stored refresh token
	// still equals current. It reports whether the swap happened.
	CompareAndSwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)
}
