package kidauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kidstube/kidauth/jwt"
	"github.com/kidstube/kidauth/password"
	"github.com/redis/go-redis/v9"
)

type mockAccountProvider struct {
	mu         sync.Mutex
	accounts   map[string]Account
	failAll    bool
	failUpdate bool
}

func newMockAccountProvider() *mockAccountProvider {
	return &mockAccountProvider{accounts: map[string]Account{}}
}

func (m *mockAccountProvider) GetByEmail(ctx context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return Account{}, errors.New("provider down")
	}
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (m *mockAccountProvider) GetByID(ctx context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return Account{}, errors.New("provider down")
	}
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *mockAccountProvider) GetByVerificationToken(ctx context.Context, token string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return Account{}, errors.New("provider down")
	}
	for _, a := range m.accounts {
		if a.VerificationToken != "" && a.VerificationToken == token {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (m *mockAccountProvider) Create(ctx context.Context, account Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return Account{}, errors.New("provider down")
	}
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return Account{}, ErrProviderDuplicateEmail
		}
	}
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockAccountProvider) Update(ctx context.Context, account Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll || m.failUpdate {
		return Account{}, errors.New("provider down")
	}
	if _, ok := m.accounts[account.ID]; !ok {
		return Account{}, ErrAccountNotFound
	}
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockAccountProvider) get(id string) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id]
}

type mockProfileProvider struct {
	mu       sync.Mutex
	profiles map[string]RestrictedProfile
}

func newMockProfileProvider() *mockProfileProvider {
	return &mockProfileProvider{profiles: map[string]RestrictedProfile{}}
}

func (m *mockProfileProvider) GetByID(ctx context.Context, id string) (RestrictedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return RestrictedProfile{}, ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfileProvider) ListByOwner(ctx context.Context, ownerID string) ([]RestrictedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RestrictedProfile
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProfileProvider) Create(ctx context.Context, profile RestrictedProfile) (RestrictedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *mockProfileProvider) Update(ctx context.Context, profile RestrictedProfile) (RestrictedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; !ok {
		return RestrictedProfile{}, ErrProfileNotFound
	}
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *mockProfileProvider) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return ErrProfileNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileProvider) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, p := range m.profiles {
		if p.OwnerID == ownerID {
			delete(m.profiles, id)
			removed++
		}
	}
	return removed, nil
}

type sentMail struct {
	To          string
	Token       string
	DisplayName string
}

type mockMailSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *mockMailSender) SendVerificationEmail(ctx context.Context, to, token, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{To: to, Token: token, DisplayName: displayName})
	return nil
}

func (m *mockMailSender) lastSent(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected at least one email")
	}
	return m.sent[len(m.sent)-1]
}

type sentSMS struct {
	Number string
	Code   string
}

type mockSMSSender struct {
	mu   sync.Mutex
	sent []sentSMS
	fail bool
}

func (m *mockSMSSender) SendCode(ctx context.Context, phoneNumber, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sms gateway down")
	}
	m.sent = append(m.sent, sentSMS{Number: phoneNumber, Code: code})
	return nil
}

func (m *mockSMSSender) lastSent(t *testing.T) sentSMS {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected at least one sms")
	}
	return m.sent[len(m.sent)-1]
}

type mockIdentityVerifier struct {
	assertions map[string]IdentityAssertion
}

func (m *mockIdentityVerifier) VerifyAssertion(ctx context.Context, assertion string) (IdentityAssertion, error) {
	a, ok := m.assertions[assertion]
	if !ok {
		return IdentityAssertion{}, errors.New("assertion rejected")
	}
	return a, nil
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestJWT(t *testing.T) *jwt.Manager {
	t.Helper()

	m, err := jwt.NewManager(jwt.Config{
		SessionTTL:    24 * time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("jwt.NewManager failed: %v", err)
	}
	return m
}

type testEnv struct {
	engine   *Engine
	accounts *mockAccountProvider
	profiles *mockProfileProvider
	mail     *mockMailSender
	sms      *mockSMSSender
	identity *mockIdentityVerifier
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := &testEnv{
		accounts: newMockAccountProvider(),
		profiles: newMockProfileProvider(),
		mail:     &mockMailSender{},
		sms:      &mockSMSSender{},
		identity: &mockIdentityVerifier{assertions: map[string]IdentityAssertion{}},
	}

	env.engine = &Engine{
		config:     cfg,
		accounts:   env.accounts,
		profiles:   env.profiles,
		mail:       env.mail,
		sms:        env.sms,
		identity:   env.identity,
		codeStore:  NewMemoryCodeStore(),
		metrics:    NewMetrics(cfg.Metrics),
		secretHash: newTestHasher(t),
		jwtManager: newTestJWT(t),
	}
	t.Cleanup(env.engine.Close)
	return env
}

func mustRegister(t *testing.T, env *testEnv, email string) RegisterResult {
	t.Helper()

	result, err := env.engine.Register(context.Background(), validRegisterRequest(email))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return *result
}

func mustActivate(t *testing.T, env *testEnv, accountID string) Account {
	t.Helper()

	account := env.accounts.get(accountID)
	if _, err := env.engine.ConfirmEmail(context.Background(), account.VerificationToken); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
	return env.accounts.get(accountID)
}

func validRegisterRequest(email string) RegisterRequest {
	return RegisterRequest{
		FirstName:       "Alice",
		LastName:        "Rivera",
		Email:           email,
		Phone:           "88887777",
		Country:         "Costa Rica",
		Password:        "correct-password-123",
		ConfirmPassword: "correct-password-123",
		PIN:             "123456",
		BirthDate:       time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
	}
}
