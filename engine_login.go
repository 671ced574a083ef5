package kidauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kidstube/kidauth/internal"
	"github.com/kidstube/kidauth/phone"
)

// Login performs the first step of the two-step login: it checks the
// password and, on success, texts a one-time code to the account's phone.
// No session exists until ConfirmLoginCode succeeds.
//
// Wrong email and wrong password both fail with [ErrInvalidCredentials];
// the caller cannot tell which factor was wrong.
func (e *Engine) Login(ctx context.Context, email, passwd string) (*LoginResult, error) {
	if e == nil || e.accounts == nil || e.secretHash == nil || e.codeStore == nil || e.sms == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}()

	email = normalizeEmail(email)
	if email == "" || passwd == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, ErrLoginRateLimited
		}
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		if lim := e.noteLoginFailure(ctx, email, ip); lim != nil {
			return nil, lim
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"email": email, "reason": "account_not_found"}
		})
		return nil, ErrInvalidCredentials
	}

	// Password is checked before the account status so an unverified
	// response is only ever returned to someone holding the password.
	ok, err := e.secretHash.Verify(passwd, account.PasswordHash)
	if err != nil || !ok {
		if lim := e.noteLoginFailure(ctx, email, ip); lim != nil {
			return nil, lim
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, false, account.ID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	switch account.Status {
	case AccountPending:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, false, account.ID, "", ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	case AccountPendingCompletion:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, false, account.ID, "", ErrProfileIncomplete, nil)
		return nil, ErrProfileIncomplete
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.secretHash.NeedsUpgrade(account.PasswordHash); err == nil && needsUpgrade {
			if upgraded, err := e.secretHash.Hash(passwd); err == nil {
				account.PasswordHash = upgraded
				// Rehash persistence is best-effort and must not block login.
				if updated, err := e.accounts.Update(ctx, account); err == nil {
					account = updated
				} else {
					e.warn("password hash upgrade update failed")
				}
			}
		}
	}
	passwd = ""

	if err := e.issueLoginCode(ctx, account, AuditLoginCodeSent); err != nil {
		return nil, err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, email, ip); err != nil {
			e.warn("login limiter reset failed")
		}
	}

	return &LoginResult{
		AccountID:    account.ID,
		CodeRequired: true,
	}, nil
}

// ConfirmLoginCode performs the second login step: it consumes the
// one-time code and mints the session. A consumed or expired code fails
// with [ErrCodeInvalid]; a wrong code leaves the stored code intact.
func (e *Engine) ConfirmLoginCode(ctx context.Context, accountID, code string) (*SessionResult, error) {
	if e == nil || e.accounts == nil || e.codeStore == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" || strings.TrimSpace(code) == "" {
		e.metricInc(MetricLoginCodeRejected)
		return nil, ErrCodeInvalid
	}

	if err := e.codeStore.Verify(ctx, accountID, code); err != nil {
		if errors.Is(err, ErrCodeStoreUnavailable) {
			return nil, err
		}
		e.metricInc(MetricLoginCodeRejected)
		e.emitAudit(ctx, AuditLoginCodeRejected, false, accountID, "", ErrCodeInvalid, nil)
		return nil, ErrCodeInvalid
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	if account.Status != AccountActive {
		e.emitAudit(ctx, AuditLoginFailed, false, account.ID, "", ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	session, err := e.issueSession(account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginCompleted, true, account.ID, "", nil, nil)

	return session, nil
}

// ResendLoginCode issues and texts a fresh code for an account that
// already passed the password step, superseding any previous code.
func (e *Engine) ResendLoginCode(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil || e.codeStore == nil || e.sms == nil {
		return ErrEngineNotReady
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrMissingField
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	if account.Status != AccountActive {
		return ErrAccountUnverified
	}

	return e.issueLoginCode(ctx, account, AuditLoginCodeResent)
}

// VerifyAccountPIN checks the parental PIN on the account itself, used to
// gate settings and purchases. It never issues a session.
func (e *Engine) VerifyAccountPIN(ctx context.Context, accountID, pin string) error {
	if e == nil || e.accounts == nil || e.secretHash == nil {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(accountID) == "" || pin == "" {
		return ErrMissingField
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return errors.Join(ErrProviderUnavailable, err)
	}
	if account.PINHash == "" {
		e.metricInc(MetricAccountPINFailure)
		return ErrPINInvalid
	}

	ok, err := e.secretHash.Verify(pin, account.PINHash)
	if err != nil || !ok {
		e.metricInc(MetricAccountPINFailure)
		e.emitAudit(ctx, AuditAccountPINRejected, false, account.ID, "", ErrPINInvalid, nil)
		return ErrPINInvalid
	}

	e.metricInc(MetricAccountPINSuccess)
	e.emitAudit(ctx, AuditAccountPINVerified, true, account.ID, "", nil, nil)
	return nil
}

// issueLoginCode stores a fresh one-time code and texts it to the
// account's normalized phone number. An SMS failure aborts the step and
// clears the stored code so a dead code cannot linger.
func (e *Engine) issueLoginCode(ctx context.Context, account Account, eventType string) error {
	code, err := internal.NewOTP(e.config.Login.CodeDigits)
	if err != nil {
		return err
	}

	number, err := e.normalizedPhone(account)
	if err != nil {
		return ErrMissingField
	}

	if err := e.codeStore.Issue(ctx, account.ID, code, e.config.Login.CodeTTL); err != nil {
		return err
	}

	smsCtx, cancel := deliveryContext(ctx, e.config.SMS.DeliveryTimeout)
	defer cancel()

	if err := e.sms.SendCode(smsCtx, number, code); err != nil {
		if clearErr := e.codeStore.Clear(ctx, account.ID); clearErr != nil {
			e.warn("login code cleanup failed after sms error")
		}
		e.metricInc(MetricSMSDeliveryFailure)
		e.emitAudit(ctx, eventType, false, account.ID, "", ErrSMSDelivery, nil)
		return ErrSMSDelivery
	}

	e.metricInc(MetricLoginCodeIssued)
	e.emitAudit(ctx, eventType, true, account.ID, "", nil, nil)
	return nil
}

// normalizedPhone resolves the dial code for an account's stored number:
// the account's explicit dial code wins, then the country lookup, then
// the configured default.
func (e *Engine) normalizedPhone(account Account) (string, error) {
	dialCode := account.CountryDialCode
	if dialCode == "" {
		dialCode, _ = phone.DialCodeForCountry(account.Country)
	}
	return phone.Normalize(account.Phone, dialCode, e.config.SMS.DefaultDialCode)
}

func (e *Engine) noteLoginFailure(ctx context.Context, email, ip string) error {
	if e.rateLimiter == nil {
		return nil
	}
	if err := e.rateLimiter.IncrementLogin(ctx, email, ip); err != nil {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, AuditLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"email": email}
		})
		return ErrLoginRateLimited
	}
	return nil
}
