package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Upstream struct {
		BaseURL     string        `yaml:"base_url"`
		UserAgent   string        `yaml:"user_agent"`
		CallTimeout time.Duration `yaml:"call_timeout"`
		HistoryDays int           `yaml:"history_days"`
	} `yaml:"upstream"`
	Refresh struct {
		Workers       int           `yaml:"workers"`
		Retries       int           `yaml:"retries"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
		PacePerSec    float64       `yaml:"pace_per_sec"`
		PaceBurst     float64       `yaml:"pace_burst"`
		CycleDeadline time.Duration `yaml:"cycle_deadline"`
		SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
		Cron          string        `yaml:"cron"`
		MoversTopN    int           `yaml:"movers_top_n"`
	} `yaml:"refresh"`
	Watchlist struct {
		NotionToken      string            `yaml:"notion_token"`
		NotionDatabaseID string            `yaml:"notion_database_id"`
		RequestTimeout   time.Duration     `yaml:"request_timeout"`
		FallbackMaxAge   time.Duration     `yaml:"fallback_max_age"`
		Static           []string          `yaml:"static"`
		Sectors          map[string]string `yaml:"sectors"`
	} `yaml:"watchlist"`
	News struct {
		MaxPerSymbol int           `yaml:"max_per_symbol"`
		MarketLimit  int           `yaml:"market_limit"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"news"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		LogTopic     string        `yaml:"log_topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides, and
// validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		c.Watchlist.NotionToken = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		c.Watchlist.NotionDatabaseID = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Watchlist.Static = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v, c.Redis.Port)
		c.Redis.Host, c.Redis.Port = host, port
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Upstream.CallTimeout == 0 {
		c.Upstream.CallTimeout = 12 * time.Second
	}
	if c.Upstream.HistoryDays == 0 {
		c.Upstream.HistoryDays = 7
	}
	if c.Refresh.Workers == 0 {
		c.Refresh.Workers = 8
	}
	if c.Refresh.Retries == 0 {
		c.Refresh.Retries = 2
	}
	if c.Refresh.RetryBackoff == 0 {
		c.Refresh.RetryBackoff = 500 * time.Millisecond
	}
	if c.Refresh.PacePerSec == 0 {
		c.Refresh.PacePerSec = 5
	}
	if c.Refresh.PaceBurst == 0 {
		c.Refresh.PaceBurst = 8
	}
	if c.Refresh.CycleDeadline == 0 {
		c.Refresh.CycleDeadline = 150 * time.Second
	}
	if c.Refresh.SnapshotTTL == 0 {
		c.Refresh.SnapshotTTL = 5 * time.Minute
	}
	if c.Refresh.MoversTopN == 0 {
		c.Refresh.MoversTopN = 10
	}
	if c.Watchlist.RequestTimeout == 0 {
		c.Watchlist.RequestTimeout = 15 * time.Second
	}
	if c.Watchlist.FallbackMaxAge == 0 {
		c.Watchlist.FallbackMaxAge = 24 * time.Hour
	}
	if c.News.MaxPerSymbol == 0 {
		c.News.MaxPerSymbol = 3
	}
	if c.News.MarketLimit == 0 {
		c.News.MarketLimit = 10
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Refresh.Workers < 1 || c.Refresh.Workers > 64 {
		return fmt.Errorf("refresh.workers must be in [1,64], got %d", c.Refresh.Workers)
	}
	if c.Watchlist.NotionToken == "" && len(c.Watchlist.Static) == 0 {
		return fmt.Errorf("watchlist requires a notion token or a static symbol list")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

func splitHostPort(addr string, defPort int) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, defPort
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil || port == 0 {
		return host, defPort
	}
	return host, port
}
