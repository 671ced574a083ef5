package kidauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kidstube/kidauth/internal"
)

// Register creates a pending account and sends the email verification
// link. The account is persisted even when email delivery fails; the
// caller can offer ResendVerificationEmail in that case.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || e.accounts == nil || e.secretHash == nil || e.mail == nil {
		return nil, ErrEngineNotReady
	}

	if err := validateRegisterRequest(req, e.config.Password.MinLength, e.config.Registration.PINDigits); err != nil {
		return nil, err
	}
	if ageAt(req.BirthDate, time.Now()) < e.config.Registration.MinAge {
		e.metricInc(MetricRegisterUnderage)
		return nil, ErrUnderage
	}

	email := normalizeEmail(req.Email)

	if _, err := e.accounts.GetByEmail(ctx, email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, AuditRegister, false, "", "", ErrEmailTaken, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	passwordHash, err := e.secretHash.Hash(req.Password)
	if err != nil {
		return nil, ErrPasswordPolicy
	}
	pinHash, err := e.secretHash.Hash(req.PIN)
	if err != nil {
		return nil, ErrPINFormat
	}
	token, err := internal.NewVerificationToken()
	if err != nil {
		return nil, err
	}

	account := Account{
		ID:                uuid.NewString(),
		Email:             email,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Phone:             strings.TrimSpace(req.Phone),
		Country:           strings.TrimSpace(req.Country),
		CountryDialCode:   strings.TrimSpace(req.CountryDialCode),
		PasswordHash:      passwordHash,
		PINHash:           pinHash,
		BirthDate:         req.BirthDate,
		Status:            AccountPending,
		VerificationToken: token,
	}

	created, err := e.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditRegister, false, "", "", ErrEmailTaken, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, ErrEmailTaken
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	emailSent := true
	if err := e.sendVerificationEmail(ctx, created); err != nil {
		// Delivery is best-effort; the pending account stays.
		emailSent = false
		e.metricInc(MetricMailDeliveryFailure)
		e.warn("verification email delivery failed during registration")
	} else {
		e.metricInc(MetricEmailVerificationSent)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditRegister, true, created.ID, "", nil, func() map[string]string {
		return map[string]string{"email_sent": boolString(emailSent)}
	})

	return &RegisterResult{
		AccountID: created.ID,
		EmailSent: emailSent,
	}, nil
}

// ConfirmEmail redeems a verification token. The token is single-use:
// activation clears it, so a second redemption fails with
// [ErrTokenInvalid].
func (e *Engine) ConfirmEmail(ctx context.Context, token string) (AccountInfo, error) {
	if e == nil || e.accounts == nil {
		return AccountInfo{}, ErrEngineNotReady
	}
	if strings.TrimSpace(token) == "" {
		e.metricInc(MetricEmailVerificationFailure)
		return AccountInfo{}, ErrTokenInvalid
	}

	account, err := e.accounts.GetByVerificationToken(ctx, token)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, AuditEmailVerified, false, "", "", ErrTokenInvalid, nil)
		if errors.Is(err, ErrAccountNotFound) {
			return AccountInfo{}, ErrTokenInvalid
		}
		return AccountInfo{}, errors.Join(ErrProviderUnavailable, err)
	}
	if account.Status != AccountPending {
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, AuditEmailVerified, false, account.ID, "", ErrAlreadyVerified, nil)
		return AccountInfo{}, ErrAlreadyVerified
	}

	account.Status = AccountActive
	account.VerificationToken = ""

	updated, err := e.accounts.Update(ctx, account)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		return AccountInfo{}, errors.Join(ErrProviderUnavailable, err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, AuditEmailVerified, true, updated.ID, "", nil, nil)

	return accountInfo(updated), nil
}

// ResendVerificationEmail re-sends the verification link for a pending
// account, minting a fresh token and invalidating the previous one.
func (e *Engine) ResendVerificationEmail(ctx context.Context, email string) error {
	if e == nil || e.accounts == nil || e.mail == nil {
		return ErrEngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingField
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	if account.Status != AccountPending {
		return ErrAlreadyVerified
	}

	token, err := internal.NewVerificationToken()
	if err != nil {
		return err
	}
	account.VerificationToken = token

	account, err = e.accounts.Update(ctx, account)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}

	if err := e.sendVerificationEmail(ctx, account); err != nil {
		e.metricInc(MetricMailDeliveryFailure)
		e.emitAudit(ctx, AuditVerificationResent, false, account.ID, "", ErrMailDelivery, nil)
		return ErrMailDelivery
	}

	e.metricInc(MetricEmailVerificationSent)
	e.emitAudit(ctx, AuditVerificationResent, true, account.ID, "", nil, nil)
	return nil
}

func (e *Engine) sendVerificationEmail(ctx context.Context, account Account) error {
	mailCtx, cancel := deliveryContext(ctx, e.config.Mail.DeliveryTimeout)
	defer cancel()
	return e.mail.SendVerificationEmail(mailCtx, account.Email, account.VerificationToken, account.FirstName)
}

func validateRegisterRequest(req RegisterRequest, minPasswordLen, pinDigits int) error {
	if strings.TrimSpace(req.FirstName) == "" ||
		strings.TrimSpace(req.LastName) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Country) == "" ||
		req.Password == "" ||
		req.ConfirmPassword == "" ||
		req.PIN == "" ||
		req.BirthDate.IsZero() {
		return ErrMissingField
	}
	if req.Password != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(req.Password) < minPasswordLen {
		return ErrPasswordPolicy
	}
	if !isDigits(req.PIN, pinDigits) {
		return ErrPINFormat
	}
	return nil
}

// ageAt computes age by calendar-year subtraction only. Someone turning
// the minimum age later in the current year is already counted as that
// age; the boundary is the birth year, not the birthday.
func ageAt(birthDate, now time.Time) int {
	return now.Year() - birthDate.Year()
}

func isDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
