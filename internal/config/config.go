package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN            string `yaml:"dsn"`
		MigrationsPath string `yaml:"migrations_path"`
	} `yaml:"db"`
	Upstream struct {
		Endpoints         []string `yaml:"endpoints"`
		TimeoutSeconds    int      `yaml:"timeout_seconds"`
		FailoverThreshold int      `yaml:"failover_threshold"`
	} `yaml:"upstream"`
	Redis struct {
		Addr              string `yaml:"addr"`
		Password          string `yaml:"password"`
		DB                int    `yaml:"db"`
		CatalogTTLSeconds int    `yaml:"catalog_ttl_seconds"`
	} `yaml:"redis"`
	Poll struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"poll"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds"`
		Batch           int   `yaml:"batch"`
	} `yaml:"worker"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Log struct {
		Env string `yaml:"env"`
	} `yaml:"log"`
}

// Load reads .env (when present), then the YAML file, then environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if len(cfg.Upstream.Endpoints) == 0 {
		return nil, errors.New("upstream.endpoints is required")
	}
	return &cfg, nil
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c *Config) CatalogTTL() time.Duration {
	return time.Duration(c.Redis.CatalogTTLSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.Worker.IntervalSeconds) * time.Second
}

func applyDefaults(cfg *Config) {
	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 10
	}
	if cfg.Upstream.FailoverThreshold <= 0 {
		cfg.Upstream.FailoverThreshold = 3
	}
	if cfg.Redis.CatalogTTLSeconds <= 0 {
		cfg.Redis.CatalogTTLSeconds = 300
	}
	if cfg.Poll.IntervalSeconds <= 0 {
		cfg.Poll.IntervalSeconds = 5
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 5
	}
	if cfg.Worker.Batch <= 0 {
		cfg.Worker.Batch = 50
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "receipt.status_changed"
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = "prod"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("MIGRATIONS_PATH"); v != "" {
		cfg.DB.MigrationsPath = v
	}
	if v := os.Getenv("UPSTREAM_ENDPOINTS"); v != "" {
		cfg.Upstream.Endpoints = splitCommaList(v)
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT_SECONDS"); v != "" {
		cfg.Upstream.TimeoutSeconds = atoiOr(cfg.Upstream.TimeoutSeconds, v)
	}
	if v := os.Getenv("UPSTREAM_FAILOVER_THRESHOLD"); v != "" {
		cfg.Upstream.FailoverThreshold = atoiOr(cfg.Upstream.FailoverThreshold, v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		cfg.Redis.DB = atoiOr(cfg.Redis.DB, v)
	}
	if v := os.Getenv("CATALOG_TTL_SECONDS"); v != "" {
		cfg.Redis.CatalogTTLSeconds = atoiOr(cfg.Redis.CatalogTTLSeconds, v)
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		cfg.Poll.IntervalSeconds = atoiOr(cfg.Poll.IntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.IntervalSeconds = atoi64Or(cfg.Worker.IntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_BATCH"); v != "" {
		cfg.Worker.Batch = atoiOr(cfg.Worker.Batch, v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCommaList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("LOG_ENV"); v != "" {
		cfg.Log.Env = v
	}
}

func splitCommaList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
