package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the status class of a failure as seen by callers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Failure reasons. Match with errors.Is against any error returned by the service.
var (
	// Input errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicateAccount = errors.New("username or email already exists")

	// Authentication errors
	ErrMissingCredential   = errors.New("missing credential")
	ErrInvalidToken        = errors.New("invalid token")
	ErrStaleOrRevokedToken = errors.New("stale or revoked token")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTooManyAttempts     = errors.New("too many attempts")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Error is the single tagged failure returned from every public operation.
// The cause is kept for logging and never rendered to clients.
type Error struct {
	Kind    Kind
	Reason  error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.cause}
}

// Cause returns the underlying fault, if any.
func (e *Error) Cause() error {
	return e.cause
}

// New creates a tagged failure without an underlying cause.
func New(kind Kind, reason error, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

// Wrap creates a tagged failure that retains cause for logging.
func Wrap(kind Kind, reason error, cause error, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, cause: cause}
}

func Validation(message string) *Error {
	return New(KindValidation, ErrInvalidInput, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, ErrDuplicateAccount, message)
}

func MissingCredential(message string) *Error {
	return New(KindUnauthenticated, ErrMissingCredential, message)
}

func InvalidToken(cause error) *Error {
	return Wrap(KindUnauthenticated, ErrInvalidToken, cause, "invalid or expired token, please log in again")
}

func StaleOrRevoked() *Error {
	return New(KindUnauthenticated, ErrStaleOrRevokedToken, "refresh token is no longer valid, please log in again")
}

func InvalidCredentials() *Error {
	return New(KindUnauthenticated, ErrInvalidCredentials, "incorrect password")
}

func AccountNotFound() *Error {
	return New(KindNotFound, ErrAccountNotFound, "account not found")
}

func RateLimited() *Error {
	return New(KindRateLimited, ErrTooManyAttempts, "too many attempts, try again later")
}

func Internal(cause error) *Error {
	return Wrap(KindInternal, ErrInternal, cause, "something went wrong")
}

// KindOf returns the status class of err. Untagged errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Tagged returns err as a tagged failure, re-tagging untagged faults as Internal.
func Tagged(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// HTTPStatus maps a Kind onto its status class.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
