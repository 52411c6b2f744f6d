package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	MaxMemory int64 // 最大内存使用（字节）

	// Schedule and analysis
	SchedulePath   string
	Timezone       string
	MaxDuration    time.Duration
	SameDayOnly    bool
	PairSelection  string
	CategoryMode   string
	StrictCoverage bool
	SensitiveTags  []string
	ExcludePersons []string
	EngineWorkers  int

	// Optional infrastructure, disabled when empty
	RedisAddr    string
	CacheTTL     time.Duration
	KafkaBrokers []string
	KafkaTopic   string
	MQTTBroker   string
	MQTTTopic    string

	RateLimit int // requests per minute per IP
	LogLevel  string
	LogFormat string
}

// Load 加载配置. A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", ":8080"),
		DBPath:    getEnv("DB_PATH", "./data/losstime.db"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		MaxMemory: 1024 * 1024 * 800,

		SchedulePath:   os.Getenv("SCHEDULE_PATH"),
		Timezone:       getEnv("TIMEZONE", "Local"),
		MaxDuration:    time.Duration(getInt("MAX_DURATION_MINUTES", 210)) * time.Minute,
		SameDayOnly:    getBool("SAME_DAY_ONLY", true),
		PairSelection:  getEnv("PAIR_SELECTION", "nearest"),
		CategoryMode:   getEnv("CATEGORY_MODE", "last"),
		StrictCoverage: getBool("STRICT_COVERAGE", false),
		SensitiveTags:  getList("SENSITIVE_TAGS"),
		ExcludePersons: getList("EXCLUDE_PERSONS"),
		EngineWorkers:  getInt("ENGINE_WORKERS", 1),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		CacheTTL:     time.Duration(getInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "losstime.intervals"),
		MQTTBroker:   os.Getenv("MQTT_BROKER"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "badges/+/events"),

		RateLimit: getInt("RATE_LIMIT", 120),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Location resolves the configured time zone. An empty zone or "Local" is the
// process's local zone; any other name must be known to the tz database.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// getList splits a comma separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
