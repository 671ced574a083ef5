package kidauth

import (
	"errors"
	"log"

	"github.com/kidstube/kidauth/internal/rate"
	"github.com/kidstube/kidauth/jwt"
	"github.com/kidstube/kidauth/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Collaborators are wired with the With*
// methods and validated once in Build; a Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	codeStore CodeStore
	accounts  AccountProvider
	profiles  ProfileProvider
	mail      MailSender
	sms       SMSSender
	identity  IdentityVerifier
	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis provides the Redis client used for the login throttle and the
// default code store. Single-node deployments can omit it and run on the
// in-process code store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCodeStore overrides the default code store selection.
func (b *Builder) WithCodeStore(store CodeStore) *Builder {
	b.codeStore = store
	return b
}

func (b *Builder) WithAccountProvider(p AccountProvider) *Builder {
	b.accounts = p
	return b
}

func (b *Builder) WithProfileProvider(p ProfileProvider) *Builder {
	b.profiles = p
	return b
}

func (b *Builder) WithMailSender(m MailSender) *Builder {
	b.mail = m
	return b
}

func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

// WithIdentityVerifier enables the federated login operations. Engines
// built without one reject federated calls with [ErrIdentityUnavailable].
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.identity = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}
	if b.mail == nil {
		return nil, errors.New("mail sender required")
	}
	if b.sms == nil {
		return nil, errors.New("sms sender required")
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttle requires redis client")
	}

	codeStore := b.codeStore
	if codeStore == nil {
		if b.redis != nil {
			codeStore = NewRedisCodeStore(b.redis)
		} else {
			codeStore = NewMemoryCodeStore()
		}
	}

	engine := &Engine{
		config:    cfg,
		accounts:  b.accounts,
		profiles:  b.profiles,
		mail:      b.mail,
		sms:       b.sms,
		identity:  b.identity,
		codeStore: codeStore,
		logger:    b.logger,
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.secretHash = hasher

	manager, err := jwt.NewManager(jwt.Config{
		SessionTTL:    cfg.JWT.SessionTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    append([]byte(nil), cfg.JWT.PrivateKey...),
		PublicKey:     append([]byte(nil), cfg.JWT.PublicKey...),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = manager

	b.built = true

	return engine, nil
}
