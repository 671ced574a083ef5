package kidauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types emitted by the engine. Events carry identifiers and
// outcomes only; codes, tokens, PINs, and password material never appear
// in an event.
const (
	AuditRegister                = "account.register"
	AuditEmailVerified           = "account.email_verified"
	AuditVerificationResent      = "account.verification_resent"
	AuditLoginCodeSent           = "login.code_sent"
	AuditLoginCodeResent         = "login.code_resent"
	AuditLoginFailed             = "login.failed"
	AuditLoginRateLimited        = "login.rate_limited"
	AuditLoginCompleted          = "login.completed"
	AuditLoginCodeRejected       = "login.code_rejected"
	AuditFederatedLogin          = "federated.login"
	AuditFederatedAccountCreated = "federated.account_created"
	AuditFederatedCompleted      = "federated.profile_completed"
	AuditAccountPINVerified      = "account.pin_verified"
	AuditAccountPINRejected      = "account.pin_rejected"
	AuditProfileCreated          = "profile.created"
	AuditProfileUpdated          = "profile.updated"
	AuditProfileDeleted          = "profile.deleted"
	AuditProfilePINVerified      = "profile.pin_verified"
	AuditProfilePINRejected      = "profile.pin_rejected"
)

// AuditEvent is one security-relevant occurrence in the engine.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	ProfileID string            `json:"profile_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the engine's dispatcher goroutine.
// Implementations must be safe for concurrent use.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for the host
// application to drain.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to an io.Writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
