package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath        = "CONFIG_PATH"
	EnvDBConnection      = "DB_CONNECTION"
	EnvJWTSecret         = "JWT_SECRET"
	EnvJWTExpiry         = "JWT_EXPIRY"
	EnvPort              = "PORT"
	EnvGatewayTmnCode    = "GATEWAY_TMN_CODE"
	EnvGatewayHashSecret = "GATEWAY_HASH_SECRET"
	EnvAdminUsername     = "ADMIN_USERNAME"
	EnvAdminPassword     = "ADMIN_PASSWORD"
)

// DefaultPort is the listen port when neither flag, env nor file sets one.
const DefaultPort = 8320

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ConfigExists reports whether a regular config file exists at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// readOptional decodes the config file into out. A missing or unreadable file
// leaves out untouched so env overrides still apply.
func readOptional(configPath string, out any) {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return
	}
	_ = yaml.Unmarshal(data, out)
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	var cfg fileConfig
	readOptional(configPath, &cfg)
	result := cfg.JWT

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// ServerConfig holds listener and logging settings.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file"`
	LogDir        string `yaml:"log-dir"`
}

// LoadServerConfig loads listener and logging settings. defaultPort applies
// when neither the file nor the PORT env sets one.
func LoadServerConfig(configPath string, defaultPort int) (ServerConfig, error) {
	var result ServerConfig
	readOptional(configPath, &result)

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return ServerConfig{}, fmt.Errorf("parse %s: %w", EnvPort, errParse)
		}
		result.Port = port
	}
	if result.Port <= 0 {
		result.Port = defaultPort
	}
	if result.Port <= 0 {
		result.Port = DefaultPort
	}
	if result.Port > 65535 {
		return ServerConfig{}, fmt.Errorf("invalid port: %d", result.Port)
	}
	result.LogDir = strings.TrimSpace(result.LogDir)
	if result.LogDir == "" {
		result.LogDir = "logs"
	}
	return result, nil
}

// GatewayConfig holds payment gateway merchant settings.
type GatewayConfig struct {
	TmnCode           string        `yaml:"tmn-code"`
	HashSecret        string        `yaml:"hash-secret"`
	PayURL            string        `yaml:"pay-url"`
	ReturnURL         string        `yaml:"return-url"`
	FrontendResultURL string        `yaml:"frontend-result-url"`
	OrderTTL          time.Duration `yaml:"order-ttl"`
}

const (
	defaultGatewayPayURL = "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"
	defaultOrderTTL      = 15 * time.Minute
)

// ErrMissingGatewayCredentials indicates the merchant code or secret is unset.
var ErrMissingGatewayCredentials = errors.New("missing gateway credentials (set `gateway.tmn-code` and `gateway.hash-secret`)")

// LoadGatewayConfig loads gateway settings from the YAML config file.
func LoadGatewayConfig(configPath string) (GatewayConfig, error) {
	// fileConfig maps the YAML fields needed for gateway settings.
	type fileConfig struct {
		Gateway GatewayConfig `yaml:"gateway"`
	}

	var cfg fileConfig
	readOptional(configPath, &cfg)
	result := cfg.Gateway

	if code := strings.TrimSpace(os.Getenv(EnvGatewayTmnCode)); code != "" {
		result.TmnCode = code
	}
	if secret := strings.TrimSpace(os.Getenv(EnvGatewayHashSecret)); secret != "" {
		result.HashSecret = secret
	}

	result.TmnCode = strings.TrimSpace(result.TmnCode)
	result.HashSecret = strings.TrimSpace(result.HashSecret)
	result.PayURL = strings.TrimSpace(result.PayURL)
	result.ReturnURL = strings.TrimSpace(result.ReturnURL)
	result.FrontendResultURL = strings.TrimSpace(result.FrontendResultURL)
	if result.PayURL == "" {
		result.PayURL = defaultGatewayPayURL
	}
	if result.OrderTTL <= 0 {
		result.OrderTTL = defaultOrderTTL
	}
	if result.TmnCode == "" || result.HashSecret == "" {
		return result, ErrMissingGatewayCredentials
	}
	return result, nil
}

// RedisConfig holds the optional distributed rate limiter backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds request rate limits.
type RateLimitConfig struct {
	// Limit is requests per second per company on quota and order routes.
	Limit             int         `yaml:"limit"`
	CallbackPerSecond float64     `yaml:"callback-per-second"`
	CallbackBurst     int         `yaml:"callback-burst"`
	Redis             RedisConfig `yaml:"redis"`
}

const (
	defaultCompanyRateLimit  = 20
	defaultCallbackPerSecond = 10
	defaultCallbackBurst     = 20
)

// LoadRateLimitConfig loads rate limit settings from the YAML config file.
func LoadRateLimitConfig(configPath string) (RateLimitConfig, error) {
	type fileConfig struct {
		RateLimit RateLimitConfig `yaml:"rate-limit"`
	}

	// Keys absent from the file keep their defaults; an explicit 0 disables.
	cfg := fileConfig{RateLimit: RateLimitConfig{
		Limit:             defaultCompanyRateLimit,
		CallbackPerSecond: defaultCallbackPerSecond,
		CallbackBurst:     defaultCallbackBurst,
	}}
	readOptional(configPath, &cfg)
	result := cfg.RateLimit

	if result.Limit < 0 {
		result.Limit = 0
	}
	if result.CallbackPerSecond < 0 {
		result.CallbackPerSecond = 0
	}
	if result.CallbackBurst <= 0 {
		result.CallbackBurst = defaultCallbackBurst
	}
	result.Redis.Addr = strings.TrimSpace(result.Redis.Addr)
	result.Redis.Prefix = strings.TrimSpace(result.Redis.Prefix)
	if result.Redis.DB < 0 {
		result.Redis.DB = 0
	}
	return result, nil
}

// SweeperConfig controls the stale order sweeper.
type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Grace    time.Duration `yaml:"grace"`
}

// LoadSweeperConfig loads the order sweeper settings. The sweeper is off
// unless the file enables it.
func LoadSweeperConfig(configPath string) (SweeperConfig, error) {
	type fileConfig struct {
		Sweeper SweeperConfig `yaml:"order-sweeper"`
	}

	var cfg fileConfig
	readOptional(configPath, &cfg)
	result := cfg.Sweeper
	result.Schedule = strings.TrimSpace(result.Schedule)
	if result.Schedule == "" {
		result.Schedule = "@every 5m"
	}
	if result.Grace <= 0 {
		result.Grace = 15 * time.Minute
	}
	return result, nil
}

// BootstrapAdmin holds the credentials for the first administrator.
type BootstrapAdmin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoadBootstrapAdmin loads bootstrap admin credentials. Empty values mean no
// admin is created at startup.
func LoadBootstrapAdmin(configPath string) (BootstrapAdmin, error) {
	type fileConfig struct {
		Admin BootstrapAdmin `yaml:"admin"`
	}

	var cfg fileConfig
	readOptional(configPath, &cfg)
	result := cfg.Admin

	if username := strings.TrimSpace(os.Getenv(EnvAdminUsername)); username != "" {
		result.Username = username
	}
	if password := os.Getenv(EnvAdminPassword); strings.TrimSpace(password) != "" {
		result.Password = password
	}
	result.Username = strings.TrimSpace(result.Username)
	return result, nil
}
