package password

import (
	"context"
	"fmt"
	"runtime"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-account-service/internal/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	MinLength = 6
	MaxLength = 20
	// MaxBytes is the longest input bcrypt accepts.
	MaxBytes = 72

	DefaultCost = 10
)

// Hasher hashes and verifies passwords with bcrypt. The number of bcrypt
// computations running at once is bounded by the worker count.
type Hasher struct {
	cost    int
	workers *semaphore.Weighted
}

type HasherOption func(h *Hasher)

// WithCost sets the bcrypt cost. Values below DefaultCost are raised to it.
func WithCost(cost int) HasherOption {
	return func(h *Hasher) {
		if cost < DefaultCost {
			cost = DefaultCost
		}
		h.cost = cost
	}
}

// WithWorkers bounds concurrent bcrypt computations.
func WithWorkers(n int) HasherOption {
	return func(h *Hasher) {
		if n < 1 {
			n = 1
		}
		h.workers = semaphore.NewWeighted(int64(n))
	}
}

func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{
		cost:    DefaultCost,
		workers: semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns a salted bcrypt digest of plaintext. Two calls with the same
// input give different digests.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return "", apperrors.Internal(fmt.Errorf("[Hasher.Hash] waiting for worker: %w", err))
	}
	defer h.workers.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("[Hasher.Hash] bcrypt: %w", err))
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest or a
// cancelled context is a mismatch, never an error.
func (h *Hasher) Verify(ctx context.Context, plaintext, digest string) bool {
	if err := h.workers.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.workers.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// ValidateStrength checks a candidate password before it is hashed.
func ValidateStrength(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinLength || n > MaxLength {
		return apperrors.Validation(fmt.Sprintf("password must be between %d and %d characters", MinLength, MaxLength))
	}
	if len(password) > MaxBytes {
		return apperrors.Validation(fmt.Sprintf("password must be at most %d bytes", MaxBytes))
	}
	return nil
}
