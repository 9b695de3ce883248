// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

// ErrConfiguration — конфигурация неполна или противоречива (фатально на старте).
var ErrConfiguration = errors.New("configuration error")

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Tokens   TokensConfig  `yaml:"tokens"`
	Mail     MailConfig    `yaml:"mail"`
	Account  AccountConfig `yaml:"account"`
	Cookie   CookieConfig  `yaml:"cookie"`
	Janitor  JanitorConfig `yaml:"janitor"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — настройки подключения к базе данных.
// Драйвер memory предназначен для локального запуска без PostgreSQL.
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// RedisConfig — зеркало отозванных access-токенов. Пустой URL отключает зеркало.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:bl:"`
}

// FamilyConfig — параметры подписи одного семейства токенов.
// Переменные окружения получают префикс семейства: ACCESS_SECRET, RESET_TTL и т.д.
type FamilyConfig struct {
	Secret   string        `yaml:"secret" env:"SECRET"`
	Issuer   string        `yaml:"issuer" env:"ISSUER"`
	Audience []string      `yaml:"audience" env:"AUDIENCE"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// Время жизни по умолчанию, если TTL семейства не задан.
const (
	DefaultAccessTTL       = 15 * time.Minute
	DefaultVerificationTTL = 60 * time.Minute
	DefaultResetTTL        = 30 * time.Minute
	DefaultSessionTTL      = 720 * time.Hour
)

// TokensConfig — параметры выпуска и валидации токенов по семействам.
// Email- и account-верификация подписываются общим семейством verification.
type TokensConfig struct {
	Access       FamilyConfig  `yaml:"access" env-prefix:"ACCESS_"`
	Verification FamilyConfig  `yaml:"verification" env-prefix:"VERIFICATION_"`
	Reset        FamilyConfig  `yaml:"reset" env-prefix:"RESET_"`
	Session      FamilyConfig  `yaml:"session" env-prefix:"SESSION_"`
	BlacklistTTL time.Duration `yaml:"blacklist_grace" env:"BLACKLIST_GRACE" env-default:"30m"`
}

// MailConfig — эндпоинты внешнего провайдера писем по семействам.
type MailConfig struct {
	EmailVerificationURL   string        `yaml:"email_verification_url" env:"MAIL_EMAIL_VERIFICATION_URL"`
	AccountVerificationURL string        `yaml:"account_verification_url" env:"MAIL_ACCOUNT_VERIFICATION_URL"`
	ResetPasswordURL       string        `yaml:"reset_password_url" env:"MAIL_RESET_PASSWORD_URL"`
	Timeout                time.Duration `yaml:"timeout" env:"MAIL_TIMEOUT" env-default:"5s"`
}

// AccountConfig — прикладные настройки учётных записей.
type AccountConfig struct {
	FrontendBaseURL  string   `yaml:"frontend_base_url" env:"FRONTEND_BASE_URL" env-default:"http://localhost:3000"`
	RestrictedEmails []string `yaml:"restricted_emails" env:"RESTRICTED_EMAILS"`
	BusinessTimezone string   `yaml:"business_timezone" env:"BUSINESS_TIMEZONE" env-default:"UTC"`
}

// CookieConfig — атрибуты cookie с токенами.
type CookieConfig struct {
	Domain   string `yaml:"domain" env:"COOKIE_DOMAIN"`
	Secure   bool   `yaml:"secure" env:"COOKIE_SECURE" env-default:"true"`
	SameSite string `yaml:"same_site" env:"COOKIE_SAME_SITE" env-default:"lax"`
}

// JanitorConfig — периоды фоновых очисток.
type JanitorConfig struct {
	BlacklistSweep time.Duration `yaml:"blacklist_sweep" env:"JANITOR_BLACKLIST_SWEEP" env-default:"1h"`
	TokenCleanup   time.Duration `yaml:"token_cleanup" env:"JANITOR_TOKEN_CLEANUP" env-default:"30m"`
	TokenRetention time.Duration `yaml:"token_retention" env:"JANITOR_TOKEN_RETENTION" env-default:"24h"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"TIMEOUT_REQUEST" env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"TIMEOUT_SHUTDOWN" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
// Итоговая конфигурация проходит Validate.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q does not exist: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}

// normalize приводит списки и регистры к каноническому виду.
func (c *Config) normalize() {
	setTTL := func(fc *FamilyConfig, def time.Duration) {
		if fc.TTL == 0 {
			fc.TTL = def
		}
	}
	setTTL(&c.Tokens.Access, DefaultAccessTTL)
	setTTL(&c.Tokens.Verification, DefaultVerificationTTL)
	setTTL(&c.Tokens.Reset, DefaultResetTTL)
	setTTL(&c.Tokens.Session, DefaultSessionTTL)

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))

	emails := c.Account.RestrictedEmails[:0]
	for _, e := range c.Account.RestrictedEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails = append(emails, e)
		}
	}
	c.Account.RestrictedEmails = emails
}

// Validate проверяет обязательные параметры. Отсутствие ключа, издателя
// или аудитории любого семейства токенов — ErrConfiguration.
func (c *Config) Validate() error {
	families := []struct {
		name string
		fc   FamilyConfig
	}{
		{"access", c.Tokens.Access},
		{"verification", c.Tokens.Verification},
		{"reset", c.Tokens.Reset},
		{"session", c.Tokens.Session},
	}

	for _, f := range families {
		switch {
		case f.fc.Secret == "":
			return fmt.Errorf("%w: tokens.%s.secret is required", ErrConfiguration, f.name)
		case f.fc.Issuer == "":
			return fmt.Errorf("%w: tokens.%s.issuer is required", ErrConfiguration, f.name)
		case len(f.fc.Audience) == 0:
			return fmt.Errorf("%w: tokens.%s.audience is required", ErrConfiguration, f.name)
		case f.fc.TTL <= 0:
			return fmt.Errorf("%w: tokens.%s.ttl must be positive", ErrConfiguration, f.name)
		}
	}

	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("%w: db.db_url is required for postgres driver", ErrConfiguration)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown db.driver %q", ErrConfiguration, c.DB.Driver)
	}

	if _, err := time.LoadLocation(c.Account.BusinessTimezone); err != nil {
		return fmt.Errorf("%w: account.business_timezone: %v", ErrConfiguration, err)
	}

	return nil
}
