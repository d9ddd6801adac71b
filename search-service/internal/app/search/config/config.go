package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config содержит все настройки Search Service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Search   SearchConfig
	Sweep    SweepConfig
	Log      LogConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig - настройки подключения к PostgreSQL
// Один пул pgx обслуживает и SQL репозитории схемы, и gorm
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig - кеш карты фасетов категории
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KafkaConfig - входящие события товаров и исходящие события фасетов
type KafkaConfig struct {
	Brokers      []string
	ProductTopic string // PRODUCT_DELETED, PRODUCT_DEACTIVATED
	FacetTopic   string // ATTRIBUTION_ATTACHED, ATTRIBUTION_DETACHED, FILTER_SCHEMA_CHANGED
	GroupID      string
}

// JWTConfig - секрет должен совпадать с Auth Service
type JWTConfig struct {
	Secret string
}

// SearchConfig - пагинация и таймаут поиска
type SearchConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	Timeout         time.Duration
	FacetCacheTTL   time.Duration
}

type SweepConfig struct {
	Schedule string
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8084")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "search_service")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", "0")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_PRODUCT_TOPIC", "product_events")
	v.SetDefault("KAFKA_FACET_TOPIC", "facet_events")
	v.SetDefault("KAFKA_GROUP_ID", "search-service")

	v.SetDefault("JWT_SECRET", "your-secret-key-change-this-in-production")

	v.SetDefault("SEARCH_DEFAULT_PAGE_SIZE", "20")
	v.SetDefault("SEARCH_MAX_PAGE_SIZE", "100")
	v.SetDefault("SEARCH_TIMEOUT", "5s")
	v.SetDefault("FACET_CACHE_TTL", "10m")

	v.SetDefault("SWEEP_SCHEDULE", "0 3 * * *")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOGSTASH_ADDR", "")
}

// Load читает .env (если есть), затем переменные окружения
// Невалидные числа и длительности возвращают ошибку, а не молча превращаются в ноль
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	redisDB, err := intValue(v, "REDIS_DB")
	if err != nil {
		return nil, err
	}
	defaultPageSize, err := intValue(v, "SEARCH_DEFAULT_PAGE_SIZE")
	if err != nil {
		return nil, err
	}
	maxPageSize, err := intValue(v, "SEARCH_MAX_PAGE_SIZE")
	if err != nil {
		return nil, err
	}
	if defaultPageSize < 1 || maxPageSize < defaultPageSize {
		return nil, fmt.Errorf("invalid page sizes: default %d, max %d", defaultPageSize, maxPageSize)
	}
	searchTimeout, err := durationValue(v, "SEARCH_TIMEOUT")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationValue(v, "FACET_CACHE_TTL")
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			ProductTopic: v.GetString("KAFKA_PRODUCT_TOPIC"),
			FacetTopic:   v.GetString("KAFKA_FACET_TOPIC"),
			GroupID:      v.GetString("KAFKA_GROUP_ID"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Search: SearchConfig{
			DefaultPageSize: defaultPageSize,
			MaxPageSize:     maxPageSize,
			Timeout:         searchTimeout,
			FacetCacheTTL:   cacheTTL,
		},
		Sweep: SweepConfig{
			Schedule: v.GetString("SWEEP_SCHEDULE"),
		},
		Log: LogConfig{
			Level:        v.GetString("LOG_LEVEL"),
			LogstashAddr: v.GetString("LOGSTASH_ADDR"),
		},
	}, nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value: must be positive", key)
	}
	return d, nil
}

// splitList разбирает KAFKA_BROKERS вида "kafka1:9092,kafka2:9092"
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// URL возвращает строку подключения для pgxpool
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}
