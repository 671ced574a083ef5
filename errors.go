package kidauth

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before
	// a required collaborator was wired through the Builder.
	ErrEngineNotReady = errors.New("engine not initialized")

	// Validation failures. Always recoverable by correcting input.
	ErrMissingField     = errors.New("required field missing")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordPolicy   = errors.New("password policy violation")
	ErrPINFormat        = errors.New("pin must be exactly 6 digits")
	ErrUnderage         = errors.New("must be at least 18 years old")

	// Authentication failures. The initial credential check never reveals
	// whether the email or the password was wrong.
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountUnverified   = errors.New("email not verified")
	ErrProfileIncomplete   = errors.New("profile completion required")
	ErrCodeInvalid         = errors.New("invalid or expired verification code")
	ErrTokenInvalid        = errors.New("invalid verification token")
	ErrPINInvalid          = errors.New("invalid pin")
	ErrAssertionInvalid    = errors.New("invalid identity assertion")
	ErrSubjectMismatch     = errors.New("federated subject mismatch")
	ErrProfileAccessDenied = errors.New("profile access denied")

	// Lookup failures.
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileNotFound = errors.New("profile not found")

	// Conflicts.
	ErrEmailTaken      = errors.New("email already in use")
	ErrAlreadyVerified = errors.New("account already verified")

	// Throttling.
	ErrLoginRateLimited = errors.New("login rate limited")

	// Dependency failures. Local state already persisted before the
	// dependency call is never rolled back because of one.
	ErrMailDelivery         = errors.New("verification email delivery failed")
	ErrSMSDelivery          = errors.New("verification sms delivery failed")
	ErrIdentityUnavailable  = errors.New("identity verifier unavailable")
	ErrCodeStoreUnavailable = errors.New("code store backend unavailable")
	ErrProviderUnavailable  = errors.New("account provider unavailable")

	// ErrProviderDuplicateEmail must be returned by [AccountProvider.Create]
	// when the email uniqueness constraint is violated.
	ErrProviderDuplicateEmail = errors.New("provider duplicate email")

	ErrSessionCreationFailed = errors.New("session creation failed")
)

// ErrorKind buckets engine errors into the response classes a transport
// layer needs: validation, not-found, authentication, conflict, dependency,
// rate-limited, or internal.
type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindAuthentication
	KindConflict
	KindDependency
	KindRateLimited
)

// Kind classifies err against the package sentinels. Unknown errors map to
// KindInternal so transports can return a generic failure without leaking
// internal detail.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPINFormat),
		errors.Is(err, ErrUnderage):
		return KindValidation
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrProfileNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountUnverified),
		errors.Is(err, ErrProfileIncomplete),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrPINInvalid),
		errors.Is(err, ErrAssertionInvalid),
		errors.Is(err, ErrSubjectMismatch),
		errors.Is(err, ErrProfileAccessDenied):
		return KindAuthentication
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrProviderDuplicateEmail):
		return KindConflict
	case errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMailDelivery),
		errors.Is(err, ErrSMSDelivery),
		errors.Is(err, ErrIdentityUnavailable),
		errors.Is(err, ErrCodeStoreUnavailable),
		errors.Is(err, ErrProviderUnavailable):
		return KindDependency
	default:
		return KindInternal
	}
}
