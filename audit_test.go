package kidauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAuditDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: AuditLoginCompleted, AccountID: "acc-1", Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != AuditLoginCompleted || event.AccountID != "acc-1" || !event.Success {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}
	// Nil dispatcher is a no-op everywhere.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	// An unread ChannelSink with a full dispatch buffer forces drops.
	sink := NewChannelSink(1)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 64; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLoginFailed})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	// Unblock delivery so Close can flush and join the worker.
	go func() {
		for range sink.Events() {
		}
	}()
	d.Close()
}

func TestAuditDispatcherCloseFlushes(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 4; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditRegister, Success: true})
	}
	d.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 flushed events, got %d", len(lines))
	}
	var event AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("event line is not valid JSON: %v", err)
	}
	if event.EventType != AuditRegister {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestEngineAuditEventsCarryNoSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: false}

	env := newTestEnv(t, cfg)
	sink := NewChannelSink(64)
	env.engine.audit = newAuditDispatcher(cfg.Audit, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	account := activeTestAccount(t, env, "alice@example.com")
	if _, err := env.engine.Login(ctx, "alice@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	code := env.sms.lastSent(t).Code
	if _, err := env.engine.ConfirmLoginCode(ctx, account.ID, code); err != nil {
		t.Fatalf("ConfirmLoginCode failed: %v", err)
	}
	env.engine.Close()

	seen := map[string]bool{}
	for {
		select {
		case event := <-sink.Events():
			seen[event.EventType] = true
			raw, err := json.Marshal(event)
			if err != nil {
				t.Fatalf("marshal event: %v", err)
			}
			if strings.Contains(string(raw), code) || strings.Contains(string(raw), "correct-password-123") {
				t.Fatalf("event leaks a secret: %s", raw)
			}
			if event.EventType == AuditLoginCompleted && event.IP != "203.0.113.9" {
				t.Fatalf("expected client IP on event, got %+v", event)
			}
		default:
			if !seen[AuditLoginCodeSent] || !seen[AuditLoginCompleted] {
				t.Fatalf("missing expected events, saw %v", seen)
			}
			return
		}
	}
}
