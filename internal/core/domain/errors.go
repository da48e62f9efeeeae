package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Credential errors.

	// ErrUnauthenticated indicates no credential exists for the user.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRefreshFailed indicates the credential cannot be renewed and the
	// user must authorise again.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrRefreshRejected is returned by token refreshers when the
	// authorisation server rejects the refresh grant (e.g. revoked token).
	ErrRefreshRejected = errors.New("refresh grant rejected")

	// Remote API errors.

	// ErrTransient indicates a failure worth retrying later
	// (timeout, 5xx, rate limiting).
	ErrTransient = errors.New("transient failure")

	// ErrAuth indicates the remote API rejected the access token.
	ErrAuth = errors.New("access token rejected")

	// ErrPermanent indicates a failure that retrying cannot fix
	// (malformed data, 4xx other than auth).
	ErrPermanent = errors.New("permanent failure")

	// Scheduler errors.

	// ErrPollInProgress indicates a poll cycle is already running for the user.
	ErrPollInProgress = errors.New("poll in progress")

	// ErrSchedulerStopped indicates the scheduler is not accepting work.
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// NeedsReauth reports whether err means the user has to log in again.
func NeedsReauth(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrRefreshFailed)
}
