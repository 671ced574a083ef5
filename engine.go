package kidauth

import (
	"context"
	"log"
	"time"

	"github.com/kidstube/kidauth/internal/rate"
	"github.com/kidstube/kidauth/jwt"
	"github.com/kidstube/kidauth/password"
)

// Engine orchestrates registration, two-step login, federated identity,
// and restricted profile flows. It owns no storage and no transport; all
// IO happens through the collaborators wired in by the [Builder].
//
// An Engine is immutable after Build and safe for concurrent use.
type Engine struct {
	config      Config
	accounts    AccountProvider
	profiles    ProfileProvider
	mail        MailSender
	sms         SMSSender
	identity    IdentityVerifier
	codeStore   CodeStore
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	secretHash  *password.Argon2
	jwtManager  *jwt.Manager
	logger      *log.Logger
}

// Close flushes and stops the audit dispatcher. The Engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// ValidateSession parses and validates a bearer token previously issued by
// this engine and returns its claims. Invalid or expired tokens fail with
// [ErrTokenInvalid].
func (e *Engine) ValidateSession(tokenStr string) (*jwt.SessionClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.Parse(tokenStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// warn logs a non-fatal operational problem. Warnings never carry secrets
// or full account records.
func (e *Engine) warn(msg string) {
	if e == nil {
		return
	}
	if e.logger != nil {
		e.logger.Print("kidauth: " + msg)
		return
	}
	log.Print("kidauth: " + msg)
}

// issueSession mints a bearer token for account and wraps it with the
// sanitized account view.
func (e *Engine) issueSession(account Account) (*SessionResult, error) {
	token, expiresAt, err := e.jwtManager.Issue(account.ID, account.Email, account.FirstName, account.LastName)
	if err != nil {
		return nil, ErrSessionCreationFailed
	}

	e.metricInc(MetricSessionIssued)
	return &SessionResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   accountInfo(account),
	}, nil
}

// deliveryContext bounds an outbound mail or SMS call. A zero timeout
// leaves the caller's context untouched.
func deliveryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
