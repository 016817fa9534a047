package config

import (
	"os"

	redis_wrapper "github.com/joripage/miniexchange/pkg/infra/redis"
	riskrule "github.com/joripage/miniexchange/pkg/riskrule"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	OrderIDBackendMemory = "memory"
	OrderIDBackendRedis  = "redis"
)

type AppConfig struct {
	ServiceName     string                     `yaml:"service_name"`
	LogLevel        string                     `yaml:"log_level"`
	StatsIntervalMs int64                      `yaml:"stats_interval_ms"`
	HTTP            *HTTPConfig                `yaml:"http"`
	OrderID         *OrderIDConfig             `yaml:"order_id"`
	Redis           *redis_wrapper.RedisConfig `yaml:"redis"`
	Kafka           *KafkaConfig               `yaml:"kafka"`
	Risk            *riskrule.Config           `yaml:"risk"`
}

type HTTPConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ReadTimeoutMs   int64    `yaml:"read_timeout_ms"`
	WriteTimeoutMs  int64    `yaml:"write_timeout_ms"`
	ShutdownTimeout int64    `yaml:"shutdown_timeout_ms"`
}

type OrderIDConfig struct {
	Backend    string `yaml:"backend"` // memory | redis
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int64  `yaml:"ttl_seconds"`
}

type KafkaConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	TradeTopic string   `yaml:"trade_topic"`
	GroupID    string   `yaml:"group_id"`
}

// Default returns the config used for any section missing from the file.
func Default() *AppConfig {
	return &AppConfig{
		ServiceName:     "miniexchange",
		LogLevel:        "info",
		StatsIntervalMs: 10_000,
		HTTP: &HTTPConfig{
			Addr:            "127.0.0.1:3030",
			AllowedOrigins:  []string{"*"},
			ReadTimeoutMs:   5_000,
			WriteTimeoutMs:  5_000,
			ShutdownTimeout: 10_000,
		},
		OrderID: &OrderIDConfig{
			Backend:    OrderIDBackendMemory,
			KeyPrefix:  "order_id:",
			TTLSeconds: 0,
		},
		Kafka: &KafkaConfig{
			TradeTopic: "trades",
			GroupID:    "trade-tail",
		},
		Risk: &riskrule.Config{},
	}
}

// Load reads the config file at filePath, expanding environment variables.
// A .env file in the working directory, if present, is loaded first so that
// ${VAR} references in the file can be resolved from it.
func Load(filePath string) (*AppConfig, error) {
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")

	cfg := Default()
	if len(filePath) == 0 {
		sugar.Debug("No config file, using defaults")
		return cfg, nil
	}

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}
	cfg.fillDefaults()

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// fillDefaults restores sections that the file set to null.
func (c *AppConfig) fillDefaults() {
	def := Default()
	if c.ServiceName == "" {
		c.ServiceName = def.ServiceName
	}
	if c.HTTP == nil {
		c.HTTP = def.HTTP
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = def.HTTP.Addr
	}
	if c.OrderID == nil {
		c.OrderID = def.OrderID
	}
	if c.OrderID.Backend == "" {
		c.OrderID.Backend = def.OrderID.Backend
	}
	if c.Kafka == nil {
		c.Kafka = def.Kafka
	}
	if c.Risk == nil {
		c.Risk = def.Risk
	}
}
