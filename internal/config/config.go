package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BOTFLOW_STORE_DRIVER.
const EnvPrefix = "BOTFLOW"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config is the runtime configuration of the botflow binary.
type Config struct {
	BotsDir   string `mapstructure:"bots_dir"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`

	// EncryptionKey is a base64 encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys are previous keys still accepted for decryption.
	FallbackKeys []string `mapstructure:"fallback_keys"`
}

type AnalyticsConfig struct {
	// SQLitePath enables contact and message tracking in a SQLite file.
	SQLitePath string `mapstructure:"sqlite_path"`
	RedactPII  bool   `mapstructure:"redact_pii"`
}

type EngineConfig struct {
	StepLimit     int           `mapstructure:"step_limit"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	Bootstrap     bool          `mapstructure:"bootstrap"`
	Apology       string        `mapstructure:"apology"`
	NotConfigured string        `mapstructure:"not_configured"`
}

type DispatchConfig struct {
	MailboxSize int           `mapstructure:"mailbox_size"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type WebhookConfig struct {
	// URL receives outbound messages. Empty keeps them in memory for the sandbox API.
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every key on v. A key without a default is invisible to
// AutomaticEnv during Unmarshal, so even empty values are listed.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bots_dir", "bots")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.dir", ".botflow/sessions")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "botflow:session:")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.lock_ttl", 30*time.Second)
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})

	v.SetDefault("analytics.sqlite_path", "")
	v.SetDefault("analytics.redact_pii", false)

	v.SetDefault("engine.step_limit", 100)
	v.SetDefault("engine.max_delay", time.Duration(0))
	v.SetDefault("engine.bootstrap", true)
	v.SetDefault("engine.apology", "")
	v.SetDefault("engine.not_configured", "")

	v.SetDefault("dispatch.mailbox_size", 64)
	v.SetDefault("dispatch.idle_timeout", 5*time.Minute)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", 10*time.Second)
}

// Load reads .env (if present), the config file and BOTFLOW_* variables into a Config.
// configFile may be empty, in which case ./botflow.yaml is used when it exists.
// Flags bound with BindFlags take precedence over everything else.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("botflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BindFlags maps CLI flags onto config keys, e.g. "bots" onto "bots_dir".
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q (want memory, file or redis)", c.Store.Driver)
	}
	if c.Store.EncryptionKey != "" {
		if _, err := decodeKey(c.Store.EncryptionKey); err != nil {
			return fmt.Errorf("store.encryption_key: %w", err)
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := decodeKey(k); err != nil {
			return fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
	}
	if c.Engine.StepLimit < 0 {
		return fmt.Errorf("engine.step_limit must not be negative")
	}
	if c.Dispatch.MailboxSize < 0 {
		return fmt.Errorf("dispatch.mailbox_size must not be negative")
	}
	return nil
}

// Keys returns the decoded active and fallback encryption keys. active is nil when
// encryption is disabled.
func (c StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	if active, err = decodeKey(c.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for _, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
