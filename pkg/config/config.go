package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Engine   EngineConfig
	Alerting AlertingConfig
	SMTP     SMTPConfig
	History  HistoryConfig
	Rollup   RollupConfig
	Log      LogConfig
	Privacy  PrivacyConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StateTTL time.Duration
}

type KafkaConfig struct {
	Brokers        []string
	TopicEstimates string
	TopicAlerts    string
	NumPartitions  int
	ConsumerGroup  string
}

type EngineConfig struct {
	MaxUserHandles   int
	HandleIdleTTL    time.Duration
	EvictionInterval time.Duration
}

type AlertingConfig struct {
	DefaultMargin       float64
	ConsecutiveRequired int
	Cooldown            time.Duration
	WorkerShards        int
	MetricsAddr         string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type HistoryConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	MetricsAddr   string
}

type RollupConfig struct {
	RunInterval         time.Duration
	FrequencyWindowDays int
	MonthlyTime         string
	RefreshTime         string
}

type LogConfig struct {
	Mode string
}

type PrivacyConfig struct {
	ExportSalt string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("SERVER_HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "migraine_user"),
			Password: getEnv("DB_PASSWORD", "migraine_pass"),
			DBName:   getEnv("DB_NAME", "migraine_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			StateTTL: getEnvAsDuration("REDIS_STATE_TTL", 7*24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicEstimates: getEnv("KAFKA_TOPIC_ESTIMATES", "migraine.estimates"),
			TopicAlerts:    getEnv("KAFKA_TOPIC_ALERTS", "migraine.alerts"),
			NumPartitions:  getEnvAsInt("KAFKA_NUM_PARTITIONS", 12),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", ""),
		},
		Engine: EngineConfig{
			MaxUserHandles:   getEnvAsInt("ENGINE_MAX_USER_HANDLES", 10000),
			HandleIdleTTL:    getEnvAsDuration("ENGINE_HANDLE_IDLE_TTL", 30*time.Minute),
			EvictionInterval: getEnvAsDuration("ENGINE_EVICTION_INTERVAL", 5*time.Minute),
		},
		Alerting: AlertingConfig{
			DefaultMargin:       getEnvAsFloat("ALERT_DEFAULT_MARGIN", 0.15),
			ConsecutiveRequired: getEnvAsInt("ALERT_CONSECUTIVE_REQUIRED", 2),
			Cooldown:            getEnvAsDuration("ALERT_COOLDOWN", 24*time.Hour),
			WorkerShards:        getEnvAsInt("ALERT_WORKER_SHARDS", 8),
			MetricsAddr:         getEnv("ALERT_METRICS_ADDR", ":9091"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "alerts@migraine.example.com"),
		},
		History: HistoryConfig{
			BatchSize:     getEnvAsInt("HISTORY_BATCH_SIZE", 100),
			FlushInterval: getEnvAsDuration("HISTORY_FLUSH_INTERVAL", 5*time.Second),
			MetricsAddr:   getEnv("HISTORY_METRICS_ADDR", ":9092"),
		},
		Rollup: RollupConfig{
			RunInterval:         getEnvAsDuration("ROLLUP_RUN_INTERVAL", 0),
			FrequencyWindowDays: getEnvAsInt("ROLLUP_FREQUENCY_WINDOW_DAYS", 90),
			MonthlyTime:         getEnv("ROLLUP_MONTHLY_TIME", "00:30"),
			RefreshTime:         getEnv("ROLLUP_REFRESH_TIME", "01:00"),
		},
		Log: LogConfig{
			Mode: getEnv("LOG_MODE", "production"),
		},
		Privacy: PrivacyConfig{
			ExportSalt: getEnv("PRIVACY_EXPORT_SALT", "dev-export-salt"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
