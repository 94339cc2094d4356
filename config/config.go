package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	API       APIConfig       `yaml:"api"`
	Poller    PollerConfig    `yaml:"poller"`
	Redirect  RedirectConfig  `yaml:"redirect"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	TemplateTTL time.Duration `yaml:"template_ttl"`
}

// GatewayConfig points at the PunchOut gateway that accepts setup requests
// and serves stored cXML templates.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// APIConfig points at the audit/session REST backend.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	PersistResults bool          `yaml:"persist_results"`
}

type PollerConfig struct {
	PreDelay    time.Duration `yaml:"pre_delay"`
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type RedirectConfig struct {
	CountdownSeconds int `yaml:"countdown_seconds"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type MessagingConfig struct {
	Kafka               KafkaConfig   `yaml:"kafka"`
	ResultsTopic        string        `yaml:"results_topic"`
	RequestsTopic       string        `yaml:"requests_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	ConsoleID           string        `yaml:"console_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "punchlab.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "punchlab",
				User:     "punchlab",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:     "localhost:6379",
			Password:    "",
			DB:          0,
			TemplateTTL: 5 * time.Minute,
		},
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:8090",
			Timeout: 15 * time.Second,
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8091",
			Timeout:        10 * time.Second,
			PersistResults: true,
		},
		Poller: PollerConfig{
			PreDelay:    500 * time.Millisecond,
			Interval:    800 * time.Millisecond,
			MaxAttempts: 10,
		},
		Redirect: RedirectConfig{
			CountdownSeconds: 3,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8085,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "punchlab",
			},
			ResultsTopic:        "punchlab.results",
			RequestsTopic:       "punchlab.requests",
			OutboxDrainInterval: 5 * time.Second,
			ConsoleID:           "console",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
