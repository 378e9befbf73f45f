package password_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"github.com/jrsteele09/go-account-service/password"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	ctx := context.Background()
	h := password.NewHasher()

	digest, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", digest)

	require.True(t, h.Verify(ctx, "secret1", digest))
	require.False(t, h.Verify(ctx, "secret2", digest))

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	require.Equal(t, password.DefaultCost, cost)
}

func TestHash_IsSalted(t *testing.T) {
	ctx := context.Background()
	h := password.NewHasher()

	first, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "secret1")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, h.Verify(ctx, "secret1", first))
	require.True(t, h.Verify(ctx, "secret1", second))
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := password.NewHasher()
	for _, digest := range []string{"", "not-a-hash", "$2a$10$short"} {
		require.False(t, h.Verify(context.Background(), "secret1", digest))
	}
}

func TestWithCost_FloorsToDefault(t *testing.T) {
	h := password.NewHasher(password.WithCost(4))
	digest, err := h.Hash(context.Background(), "secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	require.Equal(t, password.DefaultCost, cost)
}

func TestHash_CancelledContext(t *testing.T) {
	h := password.NewHasher(password.WithWorkers(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "secret1")
	require.Error(t, err)
	require.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	require.False(t, h.Verify(ctx, "secret1", "$2a$10$whatever"))
}

func TestHash_ConcurrentWithSingleWorker(t *testing.T) {
	ctx := context.Background()
	h := password.NewHasher(password.WithWorkers(1))

	var wg sync.WaitGroup
	digests := make([]string, 4)
	errs := make([]error, 4)
	for i := range digests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			digests[i], errs[i] = h.Hash(ctx, "secret1")
		}(i)
	}
	wg.Wait()

	for i, d := range digests {
		require.NoError(t, errs[i])
		require.True(t, h.Verify(ctx, "secret1", d))
	}
}

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"too short", "abc12", false},
		{"minimum", "abc123", true},
		{"maximum", strings.Repeat("a", 20), true},
		{"too long", strings.Repeat("a", 21), false},
		{"empty", "", false},
		{"multibyte within limits", strings.Repeat("é", 20), true},
		{"too many bytes", strings.Repeat("😀", 20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := password.ValidateStrength(tt.password)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestValidateStrength_AcceptedPasswordsHash(t *testing.T) {
	h := password.NewHasher()
	for _, pw := range []string{strings.Repeat("é", 20), strings.Repeat("😀", 18)} {
		require.NoError(t, password.ValidateStrength(pw))
		_, err := h.Hash(context.Background(), pw)
		require.NoError(t, err)
	}
}
