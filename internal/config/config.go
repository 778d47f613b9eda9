package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	Payment   PaymentConfig   `envPrefix:"PAYMENT_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`
	Upload    UploadConfig    `envPrefix:"UPLOAD_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Outbox    OutboxConfig    `envPrefix:"OUTBOX_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":5000"`
	// BaseURL is the public address used in payment callbacks and emails.
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:5000"`
	AllowOrigins string `env:"ALLOW_ORIGINS" envDefault:"^https?://localhost(:[0-9]+)?$"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed. Empty
	// means client addresses come from the TCP peer only.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	// Pprof exposes /admin/debug/pprof to logged in admins.
	Pprof bool `env:"PPROF" envDefault:"false"`
}

const (
	DriverMongo  = "mongodb"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver     string `env:"DRIVER" envDefault:"sqlite"`
	URI        string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Name       string `env:"NAME" envDefault:"agencia"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"banco_final.db"`
}

type RedisConfig struct {
	// URL enables the shared ban store. Empty keeps bans in process memory.
	URL string `env:"URL"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"chave-dev-padrao"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	CookieName    string        `env:"COOKIE_NAME" envDefault:"agencia_session"`
	AdminUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
}

type MailConfig struct {
	Host       string `env:"HOST"`
	Port       int    `env:"PORT" envDefault:"465"`
	Username   string `env:"USERNAME"`
	Password   string `env:"PASSWORD"`
	From       string `env:"FROM"`
	FromName   string `env:"FROM_NAME" envDefault:"Agência"`
	Encryption string `env:"ENCRYPTION" envDefault:"SSL/TLS"`
	// AdminAddress receives lead and chat notifications.
	AdminAddress string `env:"ADMIN_ADDRESS"`
}

type PaymentConfig struct {
	AccessToken string `env:"ACCESS_TOKEN" envDefault:"TEST-00000000-0000-0000-0000-000000000000"`
	BaseURL     string `env:"BASE_URL" envDefault:"https://api.mercadopago.com"`
}

type KafkaConfig struct {
	Enabled  bool     `env:"ENABLED" envDefault:"false"`
	Brokers  []string `env:"BROKERS" envSeparator:","`
	Topic    string   `env:"TOPIC" envDefault:"agencia.events"`
	ClientID string   `env:"CLIENT_ID" envDefault:"agencia-web"`
}

type UploadConfig struct {
	Dir               string   `env:"DIR" envDefault:"static/uploads"`
	MaxBytes          int64    `env:"MAX_BYTES" envDefault:"16777216"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envSeparator:"," envDefault:"png,jpg,jpeg,pdf,doc,docx,csv,xlsx,webm,mp3,ogg,wav"`
}

type RateLimitConfig struct {
	PublicLimit  int64         `env:"PUBLIC_LIMIT" envDefault:"30"`
	PublicWindow time.Duration `env:"PUBLIC_WINDOW" envDefault:"1m"`
	LoginLimit   int64         `env:"LOGIN_LIMIT" envDefault:"5"`
	LoginWindow  time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	// Strikes is how many rejected requests within BanTTL ban an address.
	Strikes int64         `env:"STRIKES" envDefault:"3"`
	BanTTL  time.Duration `env:"BAN_TTL" envDefault:"1h"`
}

type OutboxConfig struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"20"`
	Workers      int           `env:"WORKERS" envDefault:"2"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	BaseBackoff  time.Duration `env:"BASE_BACKOFF" envDefault:"30s"`
	ClaimLease   time.Duration `env:"CLAIM_LEASE" envDefault:"5m"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.IsProduction() && c.Auth.JWTSecret == "chave-dev-padrao" {
		return errors.New("AUTH_JWT_SECRET must be set in production")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when kafka is enabled")
	}
	for i, ext := range c.Upload.AllowedExtensions {
		c.Upload.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	return nil
}

// Load reads .env (when present) and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
