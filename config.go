package kidauth

import (
	"errors"
	"time"
)

// Config is the complete engine configuration. It is passed once at
// construction time; business logic never reads ambient process state.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	Registration RegistrationConfig
	Login        LoginConfig
	SMS          SMSConfig
	Mail         MailConfig
	Security     SecurityConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the session issuer. SessionTTL bounds every bearer
// token; expiry is the only session termination mechanism.
type JWTConfig struct {
	SessionTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
PASSWORD / PIN CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters shared by password and
// PIN hashing, plus the minimum password length enforced at registration.
// PINs are exempt from MinLength; their shape is fixed at six digits.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

// RegistrationConfig controls account creation policy.
type RegistrationConfig struct {
	MinAge    int
	PINDigits int
}

// LoginConfig controls the second factor of the login protocol.
type LoginConfig struct {
	CodeTTL    time.Duration
	CodeDigits int
}

// SMSConfig controls one-time-code delivery. DefaultDialCode is the
// fallback prefix for bare national numbers when neither the account's
// stored dial code nor a country lookup produced one.
type SMSConfig struct {
	DefaultDialCode string
	DeliveryTimeout time.Duration
}

// MailConfig controls verification email delivery.
type MailConfig struct {
	DeliveryTimeout time.Duration
}

// SecurityConfig holds the optional login throttle. When EnableLoginThrottle
// is false the engine runs without a rate limiter, matching deployments that
// throttle at the edge instead.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 24h sessions, 10-minute
// 6-digit codes, Argon2id at interactive cost, age gate at 18.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SessionTTL:    24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		Registration: RegistrationConfig{
			MinAge:    18,
			PINDigits: 6,
		},
		Login: LoginConfig{
			CodeTTL:    10 * time.Minute,
			CodeDigits: 6,
		},
		SMS: SMSConfig{
			DeliveryTimeout: 10 * time.Second,
		},
		Mail: MailConfig{
			DeliveryTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			EnableLoginThrottle: false,
			MaxLoginAttempts:    10,
			LoginCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.JWT.SessionTTL <= 0 {
		return errors.New("jwt session ttl must be positive")
	}
	if cfg.Login.CodeTTL <= 0 {
		return errors.New("login code ttl must be positive")
	}
	if cfg.Login.CodeDigits < 6 || cfg.Login.CodeDigits > 10 {
		return errors.New("login code digits must be between 6 and 10")
	}
	if cfg.Registration.PINDigits != 6 {
		return errors.New("pin digits must be 6")
	}
	if cfg.Registration.MinAge < 0 {
		return errors.New("minimum age must not be negative")
	}
	if cfg.Password.MinLength < 1 {
		return errors.New("password minimum length must be at least 1")
	}
	if cfg.Security.EnableLoginThrottle {
		if cfg.Security.MaxLoginAttempts < 1 {
			return errors.New("max login attempts must be at least 1")
		}
		if cfg.Security.LoginCooldown <= 0 {
			return errors.New("login cooldown must be positive")
		}
	}
	return nil
}
