// Package config loads shift settings from an optional YAML file and the
// SHIFT_* environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toolsascode/shift/internal/backends"
	"github.com/toolsascode/shift/internal/lock"
	"github.com/toolsascode/shift/internal/queuefactory"
)

// Config holds the application configuration
type Config struct {
	Server struct {
		HTTPPort string `yaml:"http_port"`
		GRPCPort string `yaml:"grpc_port"`
		APIToken string `yaml:"api_token"`
		// RunWorker consumes the queue inside the server process
		RunWorker bool `yaml:"run_worker"`
	} `yaml:"server"`
	Connection backends.ConnectionConfig `yaml:"connection"`
	History    struct {
		Schema string `yaml:"schema"` // schema holding the history table, postgres only
	} `yaml:"history"`
	Migrations struct {
		Dir          string `yaml:"dir"`
		WriteGoFiles bool   `yaml:"write_go_files"`
		// WatchInterval reloads the directory periodically when set, e.g. "30s"
		WatchInterval string `yaml:"watch_interval"`
	} `yaml:"migrations"`
	Queue struct {
		queuefactory.QueueConfig `yaml:",inline"`
		// Enabled makes apply requests asynchronous
		Enabled bool `yaml:"enabled"`
	} `yaml:"queue"`
	Lock lock.Config `yaml:"lock"`
	Log  struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	ProductVersion string `yaml:"product_version"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	c := &Config{}
	c.Server.HTTPPort = "7070"
	c.Server.GRPCPort = "9090"
	c.Connection.Backend = "postgresql"
	c.Connection.Host = "localhost"
	c.Connection.Port = "5432"
	c.Connection.Username = "postgres"
	c.Connection.Database = "postgres"
	c.Migrations.Dir = "migrations"
	c.Queue.Type = "kafka"
	c.Queue.KafkaTopic = "shift-migrations"
	c.Queue.KafkaGroupID = queuefactory.DefaultGroup
	c.Queue.PulsarURL = "pulsar://localhost:6650"
	c.Queue.PulsarTopic = "shift-migrations"
	c.Queue.PulsarSubscription = queuefactory.DefaultGroup
	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

// Load reads path when it is not empty, then applies SHIFT_* overrides
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()
	return config, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() {
	// Server configuration
	c.Server.HTTPPort = getEnvOrDefault("SHIFT_HTTP_PORT", c.Server.HTTPPort)
	c.Server.GRPCPort = getEnvOrDefault("SHIFT_GRPC_PORT", c.Server.GRPCPort)
	c.Server.APIToken = getEnvOrDefault("SHIFT_API_TOKEN", c.Server.APIToken)
	c.Server.RunWorker = getBoolEnv("SHIFT_RUN_WORKER", c.Server.RunWorker)

	// Target database
	conn := &c.Connection
	conn.Backend = getEnvOrDefault("SHIFT_DB_BACKEND", conn.Backend)
	conn.Host = getEnvOrDefault("SHIFT_DB_HOST", conn.Host)
	conn.Port = getEnvOrDefault("SHIFT_DB_PORT", conn.Port)
	conn.Username = getEnvOrDefault("SHIFT_DB_USERNAME", conn.Username)
	conn.Password = getEnvOrDefault("SHIFT_DB_PASSWORD", conn.Password)
	conn.Database = getEnvOrDefault("SHIFT_DB_NAME", conn.Database)
	conn.Schema = getEnvOrDefault("SHIFT_DB_SCHEMA", conn.Schema)

	// Extra connection settings, e.g. SHIFT_DB_EXTRA_SSLMODE=disable
	for _, envVar := range os.Environ() {
		parts := strings.SplitN(envVar, "=", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "SHIFT_DB_EXTRA_") {
			continue
		}
		if conn.Extra == nil {
			conn.Extra = make(map[string]string)
		}
		conn.Extra[strings.ToLower(strings.TrimPrefix(parts[0], "SHIFT_DB_EXTRA_"))] = parts[1]
	}

	c.History.Schema = getEnvOrDefault("SHIFT_HISTORY_SCHEMA", c.History.Schema)

	c.Migrations.Dir = getEnvOrDefault("SHIFT_MIGRATIONS_DIR", c.Migrations.Dir)
	c.Migrations.WriteGoFiles = getBoolEnv("SHIFT_WRITE_GO_FILES", c.Migrations.WriteGoFiles)
	c.Migrations.WatchInterval = getEnvOrDefault("SHIFT_MIGRATIONS_WATCH_INTERVAL", c.Migrations.WatchInterval)

	// Queue configuration
	q := &c.Queue
	q.Enabled = getBoolEnv("SHIFT_QUEUE_ENABLED", q.Enabled)
	q.Type = getEnvOrDefault("SHIFT_QUEUE_TYPE", q.Type)
	if kafkaBrokers := os.Getenv("SHIFT_QUEUE_KAFKA_BROKERS"); kafkaBrokers != "" {
		q.KafkaBrokers = strings.Split(kafkaBrokers, ",")
	} else if len(q.KafkaBrokers) == 0 {
		kafkaHost := getEnvOrDefault("SHIFT_QUEUE_KAFKA_HOST", "localhost")
		kafkaPort := getEnvOrDefault("SHIFT_QUEUE_KAFKA_PORT", "9092")
		q.KafkaBrokers = []string{fmt.Sprintf("%s:%s", kafkaHost, kafkaPort)}
	}
	q.KafkaTopic = getEnvOrDefault("SHIFT_QUEUE_KAFKA_TOPIC", q.KafkaTopic)
	q.KafkaGroupID = getEnvOrDefault("SHIFT_QUEUE_KAFKA_GROUP_ID", q.KafkaGroupID)
	q.PulsarURL = getEnvOrDefault("SHIFT_QUEUE_PULSAR_URL", q.PulsarURL)
	q.PulsarTopic = getEnvOrDefault("SHIFT_QUEUE_PULSAR_TOPIC", q.PulsarTopic)
	q.PulsarSubscription = getEnvOrDefault("SHIFT_QUEUE_PULSAR_SUBSCRIPTION", q.PulsarSubscription)
	if v, err := strconv.Atoi(os.Getenv("SHIFT_QUEUE_MEMORY_CAPACITY")); err == nil {
		q.MemoryCapacity = v
	}

	// Lock configuration
	c.Lock.Backend = getEnvOrDefault("SHIFT_LOCK_BACKEND", c.Lock.Backend)
	c.Lock.Key = getEnvOrDefault("SHIFT_LOCK_KEY", c.Lock.Key)
	c.Lock.Etcd.Endpoints = getEnvOrDefault("SHIFT_LOCK_ETCD_ENDPOINTS", c.Lock.Etcd.Endpoints)
	c.Lock.Etcd.Username = getEnvOrDefault("SHIFT_LOCK_ETCD_USERNAME", c.Lock.Etcd.Username)
	c.Lock.Etcd.Password = getEnvOrDefault("SHIFT_LOCK_ETCD_PASSWORD", c.Lock.Etcd.Password)
	c.Lock.Etcd.Prefix = getEnvOrDefault("SHIFT_LOCK_ETCD_PREFIX", c.Lock.Etcd.Prefix)

	c.Log.Level = getEnvOrDefault("SHIFT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("SHIFT_LOG_FORMAT", c.Log.Format)
	c.ProductVersion = getEnvOrDefault("SHIFT_PRODUCT_VERSION", c.ProductVersion)
}

// Validate checks backend names and required fields. Queue settings are
// checked only when the queue is enabled.
func (c *Config) Validate() error {
	var errs []error

	if _, err := backends.New(c.Connection.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Connection.Database == "" {
		errs = append(errs, errors.New("connection database is required"))
	}
	if c.Migrations.Dir == "" {
		errs = append(errs, errors.New("migrations dir is required"))
	}
	switch strings.ToLower(c.Lock.Backend) {
	case "", "none", "postgresql", "postgres", "pgx", "sqlite", "sqlite3", "etcd":
	default:
		errs = append(errs, fmt.Errorf("unknown lock backend %q", c.Lock.Backend))
	}
	if c.Queue.Enabled {
		if err := c.Queue.QueueConfig.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateServer also requires the API token
func (c *Config) ValidateServer() error {
	if c.Server.APIToken == "" {
		return errors.Join(c.Validate(), errors.New("SHIFT_API_TOKEN environment variable is required"))
	}
	return c.Validate()
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
