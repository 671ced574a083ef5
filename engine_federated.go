package kidauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kidstube/kidauth/internal"
)

// FederatedLogin signs a caller in with a verified external identity
// assertion. Three outcomes exist: a session for a known complete
// account, a link plus session for a known account seen through this
// provider for the first time, or a new pending-completion account that
// gets no session until CompleteFederatedProfile runs.
func (e *Engine) FederatedLogin(ctx context.Context, assertion string) (*FederatedLoginResult, error) {
	if e == nil || e.accounts == nil || e.secretHash == nil {
		return nil, ErrEngineNotReady
	}
	if e.identity == nil {
		return nil, ErrIdentityUnavailable
	}

	verified, err := e.identity.VerifyAssertion(ctx, assertion)
	if err != nil {
		e.emitAudit(ctx, AuditFederatedLogin, false, "", "", ErrAssertionInvalid, nil)
		return nil, ErrAssertionInvalid
	}
	email := normalizeEmail(verified.Email)
	if email == "" || verified.Subject == "" {
		return nil, ErrAssertionInvalid
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		return e.createFederatedAccount(ctx, verified, email)
	}

	switch account.FederatedSubject {
	case "":
		// First federated contact for an existing local account: link it.
		account.FederatedSubject = verified.Subject
		if account, err = e.accounts.Update(ctx, account); err != nil {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
	case verified.Subject:
	default:
		e.emitAudit(ctx, AuditFederatedLogin, false, account.ID, "", ErrSubjectMismatch, nil)
		return nil, ErrSubjectMismatch
	}

	if account.Status == AccountPendingCompletion {
		e.metricInc(MetricFederatedLogin)
		e.emitAudit(ctx, AuditFederatedLogin, true, account.ID, "", nil, func() map[string]string {
			return map[string]string{"profile_incomplete": "true"}
		})
		return &FederatedLoginResult{
			AccountID:         account.ID,
			ProfileIncomplete: true,
		}, nil
	}

	// The provider vouches for the email, so a still-pending local account
	// counts as verified from here on.
	if account.Status == AccountPending {
		account.Status = AccountActive
		account.VerificationToken = ""
		if account, err = e.accounts.Update(ctx, account); err != nil {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
	}

	session, err := e.issueSession(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricFederatedLogin)
	e.emitAudit(ctx, AuditFederatedLogin, true, account.ID, "", nil, nil)

	return &FederatedLoginResult{
		AccountID: account.ID,
		Session:   session,
	}, nil
}

// CompleteFederatedProfile supplies the fields federated first contact
// could not provide (phone, PIN, country, birth date) and activates the
// account. The assertion must be a fresh token for the same subject that
// created the account.
func (e *Engine) CompleteFederatedProfile(ctx context.Context, req CompleteProfileRequest) (*SessionResult, error) {
	if e == nil || e.accounts == nil || e.secretHash == nil {
		return nil, ErrEngineNotReady
	}
	if e.identity == nil {
		return nil, ErrIdentityUnavailable
	}

	if strings.TrimSpace(req.AccountID) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Country) == "" ||
		req.PIN == "" ||
		req.BirthDate.IsZero() {
		return nil, ErrMissingField
	}
	if !isDigits(req.PIN, e.config.Registration.PINDigits) {
		return nil, ErrPINFormat
	}
	if ageAt(req.BirthDate, time.Now()) < e.config.Registration.MinAge {
		e.metricInc(MetricRegisterUnderage)
		return nil, ErrUnderage
	}

	verified, err := e.identity.VerifyAssertion(ctx, req.Assertion)
	if err != nil {
		e.emitAudit(ctx, AuditFederatedCompleted, false, req.AccountID, "", ErrAssertionInvalid, nil)
		return nil, ErrAssertionInvalid
	}

	account, err := e.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if account.FederatedSubject == "" || account.FederatedSubject != verified.Subject {
		e.emitAudit(ctx, AuditFederatedCompleted, false, account.ID, "", ErrSubjectMismatch, nil)
		return nil, ErrSubjectMismatch
	}
	if account.Status != AccountPendingCompletion {
		return nil, ErrAlreadyVerified
	}

	pinHash, err := e.secretHash.Hash(req.PIN)
	if err != nil {
		return nil, ErrPINFormat
	}

	account.Phone = strings.TrimSpace(req.Phone)
	account.Country = strings.TrimSpace(req.Country)
	account.CountryDialCode = strings.TrimSpace(req.CountryDialCode)
	account.PINHash = pinHash
	account.BirthDate = req.BirthDate
	account.Status = AccountActive

	account, err = e.accounts.Update(ctx, account)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	session, err := e.issueSession(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricFederatedProfileCompleted)
	e.emitAudit(ctx, AuditFederatedCompleted, true, account.ID, "", nil, nil)

	return session, nil
}

func (e *Engine) createFederatedAccount(ctx context.Context, verified IdentityAssertion, email string) (*FederatedLoginResult, error) {
	first, last := splitDisplayName(verified.DisplayName)

	// The placeholder password is random and discarded, so password login
	// can never succeed until the user explicitly sets one.
	placeholder, err := internal.NewUnusableSecret()
	if err != nil {
		return nil, err
	}
	passwordHash, err := e.secretHash.Hash(placeholder)
	if err != nil {
		return nil, err
	}

	account := Account{
		ID:               uuid.NewString(),
		Email:            email,
		FirstName:        first,
		LastName:         last,
		PasswordHash:     passwordHash,
		Status:           AccountPendingCompletion,
		FederatedSubject: verified.Subject,
	}

	created, err := e.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	e.metricInc(MetricFederatedNewAccount)
	e.emitAudit(ctx, AuditFederatedAccountCreated, true, created.ID, "", nil, nil)

	return &FederatedLoginResult{
		AccountID:         created.ID,
		NewAccount:        true,
		ProfileIncomplete: true,
	}, nil
}

// splitDisplayName maps a provider display name onto first and last name:
// the first whitespace-separated token becomes the given name and the
// remainder the family name.
func splitDisplayName(displayName string) (string, string) {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
