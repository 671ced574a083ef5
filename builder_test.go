package kidauth

import (
	"context"
	"testing"
)

func builderWithMocks() (*Builder, *mockAccountProvider) {
	accounts := newMockAccountProvider()
	b := New().
		WithConfig(func() Config {
			cfg := DefaultConfig()
			cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
			cfg.Audit.Enabled = false
			return cfg
		}()).
		WithAccountProvider(accounts).
		WithProfileProvider(newMockProfileProvider()).
		WithMailSender(&mockMailSender{}).
		WithSMSSender(&mockSMSSender{})
	return b, accounts
}

func TestBuilderBuildsWorkingEngine(t *testing.T) {
	b, accounts := builderWithMocks()

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	// Without Redis the engine runs on the in-process code store.
	if _, ok := engine.codeStore.(*MemoryCodeStore); !ok {
		t.Fatalf("expected memory code store, got %T", engine.codeStore)
	}

	result, err := engine.Register(context.Background(), validRegisterRequest("alice@example.com"))
	if err != nil {
		t.Fatalf("Register through built engine failed: %v", err)
	}
	if accounts.get(result.AccountID).Status != AccountPending {
		t.Fatal("registered account missing from provider")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b, _ := builderWithMocks()

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	cases := []struct {
		name  string
		build func() *Builder
	}{
		{"missing account provider", func() *Builder {
			return New().WithConfig(cfg).WithMailSender(&mockMailSender{}).WithSMSSender(&mockSMSSender{})
		}},
		{"missing mail sender", func() *Builder {
			return New().WithConfig(cfg).WithAccountProvider(newMockAccountProvider()).WithSMSSender(&mockSMSSender{})
		}},
		{"missing sms sender", func() *Builder {
			return New().WithConfig(cfg).WithAccountProvider(newMockAccountProvider()).WithMailSender(&mockMailSender{})
		}},
		{"throttle without redis", func() *Builder {
			c := cfg
			c.Security.EnableLoginThrottle = true
			b, _ := builderWithMocks()
			return b.WithConfig(c).
				WithAccountProvider(newMockAccountProvider()).
				WithMailSender(&mockMailSender{}).
				WithSMSSender(&mockSMSSender{})
		}},
		{"missing jwt key", func() *Builder {
			b, _ := builderWithMocks()
			return b.WithConfig(DefaultConfig())
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.build().Build(); err == nil {
				t.Fatal("expected Build to fail")
			}
		})
	}
}

func TestBuilderUsesRedisCodeStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b, _ := builderWithMocks()
	engine, err := b.WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, ok := engine.codeStore.(*RedisCodeStore); !ok {
		t.Fatalf("expected redis code store, got %T", engine.codeStore)
	}
}
