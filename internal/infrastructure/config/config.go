package config

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Mailer MailerConfig
	HTTP   HTTPConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=compupay"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type AuthConfig struct {
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL,       default=24h"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL,      default=24h"`
	ResetTokenTTL       time.Duration `env:"RESET_TOKEN_TTL,        default=10m"`
	RefreshCookieMaxAge time.Duration `env:"REFRESH_COOKIE_MAX_AGE, default=168h"`
	OtpExpiresIn        OtpWindow     `env:"OTP_EXPIRES_IN,         default=5m"`
	OtpResetDigits      int           `env:"OTP_RESET_DIGITS,       default=6"`
	OtpRegisterDigits   int           `env:"OTP_REGISTER_DIGITS,    default=5"`
	BcryptCost          int           `env:"BCRYPT_COST,            default=10"`
}

type MailerConfig struct {
	Host       string `env:"MAILER_HOST"`
	Port       int    `env:"MAILER_PORT,       default=587"`
	User       string `env:"MAILER_USER"`
	Password   string `env:"MAILER_PASSWORD"`
	From       string `env:"MAILER_FROM"`
	FromName   string `env:"MAILER_FROM_NAME,  default=CompuPay App"`
	Encryption string `env:"MAILER_ENCRYPTION, default=STARTTLS"`
	Workers    int    `env:"MAILER_WORKERS,    default=4"`
}

type HTTPConfig struct {
	CORSOrigins       []string      `env:"CORS_ORIGINS,        default=*"`
	ResponseCacheTTL  time.Duration `env:"RESPONSE_CACHE_TTL,  default=5m"`
	RateLimitRequests int64         `env:"RATE_LIMIT_REQUESTS, default=60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW,   default=1m"`
	BodyLimit         string        `env:"BODY_LIMIT,          default=5M"`
}

// IsProduction reports whether ENV selects production behaviour (secure
// cookies, JSON logs).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// OtpWindow is an OTP validity window written as <number><unit>, unit one of
// s, m, h, d.
type OtpWindow time.Duration

var otpWindowPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var otpWindowUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseOtpWindow parses values such as "5m" or "1d".
func ParseOtpWindow(s string) (time.Duration, error) {
	m := otpWindowPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid OTP_EXPIRES_IN %q: want <number><s|m|h|d>", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid OTP_EXPIRES_IN %q: amount must be positive", s)
	}
	return time.Duration(n) * otpWindowUnits[m[2]], nil
}

// EnvDecode implements envconfig.Decoder.
func (w *OtpWindow) EnvDecode(val string) error {
	d, err := ParseOtpWindow(val)
	if err != nil {
		return err
	}
	*w = OtpWindow(d)
	return nil
}

func (w OtpWindow) Duration() time.Duration { return time.Duration(w) }

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}
