package ratelimit

import "strings"

// DefaultRedisPrefix namespaces limiter keys in a shared Redis.
const DefaultRedisPrefix = "hireledger:rl"

// SettingsConfig captures the limiter backend settings.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Normalize trims fields and clamps negative values.
func (cfg SettingsConfig) Normalize() SettingsConfig {
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = DefaultRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	return cfg
}

// StaticSettings returns a provider that always yields cfg.
func StaticSettings(cfg SettingsConfig) SettingsProvider {
	normalized := cfg.Normalize()
	return func() SettingsConfig { return normalized }
}

// defaultSettings keeps the memory backend with limits disabled.
func defaultSettings() SettingsConfig {
	return SettingsConfig{}.Normalize()
}
