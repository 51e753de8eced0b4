// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Rank, Search, Crawler, Server, Kafka, Redis, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Rank     RankConfig     `yaml:"rank"`
	Search   SearchConfig   `yaml:"search"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the demo front-end.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexConfig controls index construction and artifact placement.
type IndexConfig struct {
	DataDir     string `yaml:"dataDir"`
	IDFStrategy string `yaml:"idfStrategy"` // "plain" or "smooth"
	Stem        bool   `yaml:"stem"`
	Stopwords   string `yaml:"stopwords"`
	Workers     int    `yaml:"workers"`
}

// RankConfig controls the PageRank computation.
type RankConfig struct {
	Damping   float64 `yaml:"damping"`
	MaxIter   int     `yaml:"maxIter"`
	Tolerance float64 `yaml:"tolerance"`
	Normalize bool    `yaml:"normalize"`
}

// SearchConfig controls query-time scoring and result limits.
type SearchConfig struct {
	TopKPerTerm   int     `yaml:"topKPerTerm"`
	DefaultLimit  int     `yaml:"defaultLimit"`
	MaxResults    int     `yaml:"maxResults"`
	CosineWeight  float64 `yaml:"cosineWeight"`
	RankWeight    float64 `yaml:"rankWeight"`
	NormalizeRank bool    `yaml:"normalizeRank"`
}

// CrawlerConfig controls the polite breadth-first crawler.
type CrawlerConfig struct {
	Seeds         []string      `yaml:"seeds"`
	AllowedDomain string        `yaml:"allowedDomain"`
	MaxPages      int           `yaml:"maxPages"`
	MaxDepth      int           `yaml:"maxDepth"`
	Delay         time.Duration `yaml:"delay"`
	UserAgent     string        `yaml:"userAgent"`
	Output        string        `yaml:"output"`
}

// KafkaConfig holds Kafka broker and topic settings for streamed ingestion.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Topics        KafkaTopics   `yaml:"topics"`
	DrainTimeout  time.Duration `yaml:"drainTimeout"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CrawlRecords string `yaml:"crawlRecords"`
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// PostgresConfig holds PostgreSQL connection parameters for the optional
// document store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Index.IDFStrategy != "plain" && c.Index.IDFStrategy != "smooth" {
		return fmt.Errorf("invalid idf strategy %q: must be plain or smooth", c.Index.IDFStrategy)
	}
	if c.Rank.Damping <= 0 || c.Rank.Damping >= 1 {
		return fmt.Errorf("invalid damping factor %v: must be in (0,1)", c.Rank.Damping)
	}
	if c.Search.TopKPerTerm <= 0 {
		return fmt.Errorf("invalid topKPerTerm %d: must be positive", c.Search.TopKPerTerm)
	}
	return nil
}

// defaultConfig returns a Config with defaults matching the reference
// deployment over the CACM collection.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			DataDir:     "data/index",
			IDFStrategy: "plain",
			Stem:        true,
			Workers:     4,
		},
		Rank: RankConfig{
			Damping:   0.85,
			MaxIter:   100,
			Tolerance: 1e-6,
			Normalize: true,
		},
		Search: SearchConfig{
			TopKPerTerm:   10,
			DefaultLimit:  10,
			MaxResults:    100,
			CosineWeight:  0.7,
			RankWeight:    0.3,
			NormalizeRank: true,
		},
		Crawler: CrawlerConfig{
			MaxPages:  200,
			MaxDepth:  3,
			Delay:     time.Second,
			UserAgent: "citeseek-bot/1.0",
			Output:    "data/corpus.jsonl",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "citeseek-group",
			Topics: KafkaTopics{
				CrawlRecords: "crawl-records",
			},
			DrainTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "citeseek",
			User:            "citeseek",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("CS_INDEX_IDF_STRATEGY"); v != "" {
		cfg.Index.IDFStrategy = v
	}
	if v := os.Getenv("CS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
