// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"telegram-phone-sales/internal/domain"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token     string `yaml:"token"`
	Mode      string `yaml:"mode"`       // polling | console
	Workers   int    `yaml:"workers"`    // update workers
	QueueSize int    `yaml:"queue_size"` // per-worker queue

	SessionTTL    time.Duration `yaml:"session_ttl"`    // idle dialogs are dropped after this
	SweepInterval time.Duration `yaml:"sweep_interval"` // how often idle dialogs are looked for
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	RateLimit  int           `yaml:"rate_limit"` // messages per window
	RateWindow time.Duration `yaml:"rate_window"`
}

type AIConfig struct {
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GatewayKey      string        `yaml:"gateway_key"`      // OpenAI-compatible gateway (GigaChat proxy, Metis)
	GatewayBaseURL  string        `yaml:"gateway_base_url"` // required when gateway_key is set
	GeminiKey       string        `yaml:"gemini_key"`
	DefaultModel    string        `yaml:"default_model"`
	GeminiModel     string        `yaml:"gemini_model"`
	MaxPromptTokens int           `yaml:"max_prompt_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type OrderConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	PlatformID string        `yaml:"platform_id"`
	RoleID     string        `yaml:"role_id"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SecurityConfig struct {
	AdminJWTSecret string `yaml:"admin_jwt_secret"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Order    OrderConfig    `yaml:"order"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Placeholder values shipped in the sample .env; treated as missing.
var placeholders = map[string]bool{
	"your_telegram_token": true,
	"your_gigachat_token": true,
	"your_openai_key":     true,
	"your_gemini_key":     true,
}

// LoadConfig parses the -config and -dev flags and loads the file they point to.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads the yaml file at path (a missing file is allowed when the
// environment carries everything), applies .env and environment overrides,
// fills defaults and validates.
func Load(path string, dev bool) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Bot.Token, "TELEGRAM_TOKEN")
	override(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	override(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	override(&cfg.AI.GatewayKey, "GIGACHAT_TOKEN")
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Order.Endpoint, "ORDER_ENDPOINT")
	override(&cfg.Security.AdminJWTSecret, "ADMIN_JWT_SECRET")
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.QueueSize <= 0 {
		cfg.Bot.QueueSize = 16
	}
	if cfg.Bot.SessionTTL <= 0 {
		cfg.Bot.SessionTTL = 30 * time.Minute
	}
	if cfg.Bot.SweepInterval <= 0 {
		cfg.Bot.SweepInterval = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.Redis.RateLimit <= 0 {
		cfg.Redis.RateLimit = 20
	}
	if cfg.Redis.RateWindow <= 0 {
		cfg.Redis.RateWindow = time.Minute
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 2048
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.Order.Timeout <= 0 {
		cfg.Order.Timeout = 10 * time.Second
	}
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !placeholders[strings.ToLower(v)]
}

// Validate checks that the bot can start. Every failure wraps domain.ErrConfiguration.
func (c *Config) Validate() error {
	switch c.Bot.Mode {
	case "", "polling", "console":
	default:
		return fmt.Errorf("%w: bot.mode %q is not one of polling, console", domain.ErrConfiguration, c.Bot.Mode)
	}
	if c.Bot.Mode != "console" && !isSet(c.Bot.Token) {
		return fmt.Errorf("%w: bot.token (TELEGRAM_TOKEN) is required", domain.ErrConfiguration)
	}
	if !c.Runtime.Dev && !c.HasAIProvider() {
		return fmt.Errorf("%w: one of ai.openai_key, ai.gateway_key (GIGACHAT_TOKEN), ai.gemini_key is required", domain.ErrConfiguration)
	}
	if isSet(c.AI.GatewayKey) && c.AI.GatewayBaseURL == "" {
		return fmt.Errorf("%w: ai.gateway_base_url is required with ai.gateway_key", domain.ErrConfiguration)
	}
	if c.Order.Endpoint == "" {
		return fmt.Errorf("%w: order.endpoint (ORDER_ENDPOINT) is required", domain.ErrConfiguration)
	}
	u, err := url.Parse(c.Order.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: order.endpoint %q is not an absolute URL", domain.ErrConfiguration, c.Order.Endpoint)
	}
	return nil
}

// HasAIProvider reports whether at least one generator key is configured.
func (c *Config) HasAIProvider() bool {
	return isSet(c.AI.OpenAIKey) || isSet(c.AI.GatewayKey) || isSet(c.AI.GeminiKey)
}

// Console reports whether the bot reads from stdin instead of the Bot API.
func (c *Config) Console() bool { return c.Bot.Mode == "console" }

// KeySet reports whether v is a usable secret (non-empty, not a placeholder).
func KeySet(v string) bool { return isSet(v) }
