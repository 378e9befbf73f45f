package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesReasonAndCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := apperrors.InvalidToken(cause)

	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, err.Cause())
	require.NotContains(t, err.Message, "connection reset")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"validation", apperrors.Validation("bad"), apperrors.KindValidation},
		{"conflict", apperrors.Conflict("dup"), apperrors.KindConflict},
		{"missing credential", apperrors.MissingCredential("none"), apperrors.KindUnauthenticated},
		{"stale", apperrors.StaleOrRevoked(), apperrors.KindUnauthenticated},
		{"not found", apperrors.AccountNotFound(), apperrors.KindNotFound},
		{"wrapped", fmt.Errorf("outer: %w", apperrors.AccountNotFound()), apperrors.KindNotFound},
		{"untagged", stderrors.New("boom"), apperrors.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, apperrors.KindOf(tt.err))
		})
	}
}

func TestTagged_RetagsUntaggedAsInternal(t *testing.T) {
	cause := stderrors.New("disk full")
	tagged := apperrors.Tagged(cause)

	require.Equal(t, apperrors.KindInternal, tagged.Kind)
	require.ErrorIs(t, tagged, apperrors.ErrInternal)
	require.ErrorIs(t, tagged, cause)
	require.Nil(t, apperrors.Tagged(nil))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(apperrors.KindValidation))
	require.Equal(t, http.StatusConflict, apperrors.HTTPStatus(apperrors.KindConflict))
	require.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(apperrors.KindUnauthenticated))
	require.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(apperrors.KindNotFound))
	require.Equal(t, http.StatusTooManyRequests, apperrors.HTTPStatus(apperrors.KindRateLimited))
	require.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(apperrors.KindInternal))
}
