package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-account-service/accounts"
	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyAccount stores the authenticated account
	ContextKeyAccount ContextKey = "account"
	// ContextKeyClaims stores the verified access token claims
	ContextKeyClaims ContextKey = "claims"
)

// RequireAuth is middleware that admits a request only with a valid access
// token whose account still exists. Callers see a single unauthorized answer
// whatever the reason; the reason itself is logged.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			account, claims, err := s.accounts.Authenticate(r.Context(), accessTokenFromRequest(r))
			if err != nil {
				if apperrors.KindOf(err) == apperrors.KindInternal {
					writeError(w, r, err)
					return
				}
				log.Info().
					Err(err).
					Str("reason", rejectReason(err)).
					Str("path", r.URL.Path).
					Msg("RequireAuth: request not authenticated")
				writeJSON(w, http.StatusUnauthorized, apiError{
					StatusCode: http.StatusUnauthorized,
					Message:    "unauthorized request",
					Success:    false,
				})
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAccount, account)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func rejectReason(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrMissingCredential):
		return "missing_credential"
	case apperrors.Is(err, apperrors.ErrStaleOrRevokedToken):
		return "revoked_token"
	case apperrors.Is(err, apperrors.ErrAccountNotFound):
		return "account_not_found"
	case apperrors.Is(err, apperrors.ErrInvalidToken):
		return "invalid_token"
	default:
		return apperrors.KindOf(err).String()
	}
}

// AccountFromContext returns the account attached by RequireAuth.
func AccountFromContext(ctx context.Context) (*accounts.Account, bool) {
	account, ok := ctx.Value(ContextKeyAccount).(*accounts.Account)
	return account, ok && account != nil
}

// ClaimsFromContext returns the access token claims attached by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.AccessClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.AccessClaims)
	return claims, ok && claims != nil
}
