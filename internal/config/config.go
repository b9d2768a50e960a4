package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"content-subscription-platform/internal/domain/model"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port          int           `yaml:"port"`
	Username      string        `yaml:"username"` // bootstrap admin account
	APIKey        string        `yaml:"api_key"`  // login credential for the admin API
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"` // subscription cache TTL
}

type NowPaymentsConfig struct {
	APIKey      string `yaml:"api_key"`
	IPNSecret   string `yaml:"ipn_secret"`
	CallbackURL string `yaml:"callback_url"`
	Sandbox     bool   `yaml:"sandbox"`
}

type PaymentConfig struct {
	NowPayments NowPaymentsConfig `yaml:"nowpayments"`
}

type PlanConfig struct {
	Tier     string  `yaml:"tier"`
	Name     string  `yaml:"name"`
	PriceUSD float64 `yaml:"price_usd"`
}

type SubscriptionConfig struct {
	DurationDays int          `yaml:"duration_days"`
	Plans        []PlanConfig `yaml:"plans"`
}

type SchedConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	ExpiryInterval    time.Duration `yaml:"expiry_interval"`
}

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Server       ServerConfig       `yaml:"server"`
	Admin        AdminConfig        `yaml:"admin"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Payment      PaymentConfig      `yaml:"payment"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Sched        SchedConfig        `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Minute
	}
	if cfg.Subscription.DurationDays <= 0 {
		cfg.Subscription.DurationDays = 30
	}
	if len(cfg.Subscription.Plans) == 0 {
		cfg.Subscription.Plans = []PlanConfig{
			{Tier: "beginner", Name: "Beginner to Mid", PriceUSD: 17.99},
			{Tier: "advanced", Name: "Mid to Pro", PriceUSD: 24.99},
			{Tier: "complete", Name: "Complete Pack", PriceUSD: 19.99},
		}
	}
	if cfg.Sched.ReconcileInterval <= 0 {
		cfg.Sched.ReconcileInterval = time.Minute
	}
	if cfg.Sched.StaleAfter <= 0 {
		cfg.Sched.StaleAfter = 10 * time.Minute
	}
	if cfg.Sched.ExpiryInterval <= 0 {
		cfg.Sched.ExpiryInterval = time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if !dev {
		if cfg.Payment.NowPayments.APIKey == "" {
			return nil, errors.New("payment.nowpayments.api_key is required")
		}
		if cfg.Payment.NowPayments.IPNSecret == "" {
			return nil, errors.New("payment.nowpayments.ipn_secret is required")
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// PlanCatalog builds the fixed plan set from config. Every plan shares the
// configured duration.
func (c *Config) PlanCatalog() (model.PlanCatalog, error) {
	dur := time.Duration(c.Subscription.DurationDays) * 24 * time.Hour
	catalog := make(model.PlanCatalog, len(c.Subscription.Plans))
	for _, p := range c.Subscription.Plans {
		tier, err := model.ParseTier(p.Tier)
		if err != nil {
			return nil, err
		}
		if p.PriceUSD <= 0 {
			return nil, fmt.Errorf("plan %s: price_usd must be positive", p.Tier)
		}
		catalog[tier] = model.Plan{Tier: tier, Name: p.Name, PriceUSD: p.PriceUSD, Duration: dur}
	}
	return catalog, nil
}
