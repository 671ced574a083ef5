package kidauth

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of an account.
//
// Pending accounts have registered but not yet confirmed their email.
// PendingCompletion accounts were created through federated first contact
// and still lack phone, PIN, and birth date. Active is terminal for the
// normal flow; no transition leads back to Pending.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountPending
	AccountPendingCompletion
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountPending:
		return "pending"
	case AccountPendingCompletion:
		return "pending_completion"
	default:
		return "unknown"
	}
}

// Account is the full identity record exchanged with [AccountProvider].
// It carries credential digests, never plaintext secrets.
//
// Invariant: VerificationToken is non-empty iff Status == AccountPending.
type Account struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	Country         string
	CountryDialCode string
	PasswordHash    string
	PINHash         string
	BirthDate       time.Time
	Status          AccountStatus

	// VerificationToken is the opaque single-use email verification secret,
	// set only while the account is pending.
	VerificationToken string

	// FederatedSubject is the external identity provider's subject id, empty
	// for purely local accounts.
	FederatedSubject string
}

// RestrictedProfile is a child-safe sub-identity owned by exactly one
// account and gated by its own PIN, independent of the account PIN.
type RestrictedProfile struct {
	ID      string
	OwnerID string
	Name    string
	Avatar  string
	PINHash string
}

// AccountProvider is the repository interface callers implement to persist
// accounts. Email uniqueness is enforced by the provider: Create must return
// [ErrProviderDuplicateEmail] on a duplicate. Lookups return
// [ErrAccountNotFound] when no record matches.
type AccountProvider interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id string) (Account, error)
	GetByVerificationToken(ctx context.Context, token string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
}

// ProfileProvider persists restricted profiles. Lookups return
// [ErrProfileNotFound] when no record matches.
type ProfileProvider interface {
	GetByID(ctx context.Context, id string) (RestrictedProfile, error)
	ListByOwner(ctx context.Context, ownerID string) ([]RestrictedProfile, error)
	Create(ctx context.Context, profile RestrictedProfile) (RestrictedProfile, error)
	Update(ctx context.Context, profile RestrictedProfile) (RestrictedProfile, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int, error)
}

// MailSender delivers the verification deep link. A failure is reported to
// the caller but never rolls back the registration that preceded it.
type MailSender interface {
	SendVerificationEmail(ctx context.Context, to, token, displayName string) error
}

// SMSSender delivers a one-time login code to an already normalized
// international phone number.
type SMSSender interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// IdentityAssertion is the verified payload of a federated identity token.
type IdentityAssertion struct {
	Subject     string
	Email       string
	DisplayName string
}

// IdentityVerifier validates an opaque federated assertion against the
// provider's keys and audience. Invalid, expired, or wrong-audience tokens
// must fail with an error.
type IdentityVerifier interface {
	VerifyAssertion(ctx context.Context, assertion string) (IdentityAssertion, error)
}

// AccountInfo is the sanitized account view returned to callers. It never
// includes digests, codes, or tokens.
type AccountInfo struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Country   string
}

func accountInfo(a Account) AccountInfo {
	return AccountInfo{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Country:   a.Country,
	}
}

// ProfileInfo is the sanitized restricted-profile view (no PIN hash).
type ProfileInfo struct {
	ID      string
	OwnerID string
	Name    string
	Avatar  string
}

func profileInfo(p RestrictedProfile) ProfileInfo {
	return ProfileInfo{
		ID:      p.ID,
		OwnerID: p.OwnerID,
		Name:    p.Name,
		Avatar:  p.Avatar,
	}
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Country         string
	CountryDialCode string
	Password        string
	ConfirmPassword string
	PIN             string
	BirthDate       time.Time
}

// RegisterResult is returned by [Engine.Register]. EmailSent is false when
// the account was created but the verification email could not be delivered;
// the caller should offer a resend path.
type RegisterResult struct {
	AccountID string
	EmailSent bool
}

// LoginResult is returned by [Engine.Login] after the credential check
// succeeds. The one-time code itself is never part of the response.
type LoginResult struct {
	AccountID    string
	CodeRequired bool
}

// SessionResult carries a freshly minted bearer token and the sanitized
// account it identifies.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	Account   AccountInfo
}

// FederatedLoginResult is returned by [Engine.FederatedLogin]. Exactly one
// of Session or ProfileIncomplete is meaningful: first-contact accounts get
// ProfileIncomplete=true and no session until the profile is completed.
type FederatedLoginResult struct {
	AccountID         string
	NewAccount        bool
	ProfileIncomplete bool
	Session           *SessionResult
}

// CompleteProfileRequest is the input for [Engine.CompleteFederatedProfile].
// Assertion must be a fresh federated token for the same subject that
// created the account.
type CompleteProfileRequest struct {
	AccountID       string
	Assertion       string
	Phone           string
	PIN             string
	Country         string
	CountryDialCode string
	BirthDate       time.Time
}

// CreateProfileRequest is the input for [Engine.CreateRestrictedProfile].
type CreateProfileRequest struct {
	OwnerID string
	Name    string
	PIN     string
	Avatar  string
}

// UpdateProfileRequest is the input for [Engine.UpdateRestrictedProfile].
// An empty PIN leaves the stored PIN unchanged.
type UpdateProfileRequest struct {
	ProfileID string
	OwnerID   string
	Name      string
	PIN       string
	Avatar    string
}
