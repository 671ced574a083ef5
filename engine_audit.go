package kidauth

import (
	"context"
	"errors"
	"time"
)

// auditErrorCode maps an operation error to the short code recorded on the
// event. Specific credential failures collapse into coarse codes so audit
// output never reveals which factor failed.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrPINInvalid):
		return "invalid_credentials"
	case errors.Is(err, ErrLoginRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAccountUnverified):
		return "account_unverified"
	case errors.Is(err, ErrProfileIncomplete):
		return "profile_incomplete"
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrAssertionInvalid),
		errors.Is(err, ErrSubjectMismatch):
		return "invalid_token"
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, ErrProfileAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrProviderDuplicateEmail):
		return "duplicate"
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrUnderage):
		return "underage"
	case errors.Is(err, ErrMissingField),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPINFormat):
		return "validation_failed"
	case errors.Is(err, ErrMailDelivery),
		errors.Is(err, ErrSMSDelivery),
		errors.Is(err, ErrIdentityUnavailable),
		errors.Is(err, ErrCodeStoreUnavailable),
		errors.Is(err, ErrProviderUnavailable):
		return "backend_unavailable"
	default:
		return "internal_error"
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	profileID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		ProfileID: profileID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	e.audit.Emit(ctx, event)
}
