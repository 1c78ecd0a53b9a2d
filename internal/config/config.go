package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	SQLitePath      string
	PostgresDSN     string
	MongoURI        string
	NotesBackend    string // "sqlite" | "postgres" | "mongodb"
	RedisAddr       string
	KafkaBrokers    []string
	KafkaTopicNotes string
	KafkaGroupID    string
	UseKafka        bool
	CacheTTL        time.Duration
	FlushBatch      int           // items por pasada de flush
	SyncMaxAttempts int           // pasadas de flush por sincronización
	SyncBaseDelay   time.Duration // backoff exponencial base
	SyncJitter      time.Duration // jitter aleatorio añadido al backoff
	SyncPeriod      time.Duration // ping periódico de conectividad
	HTTPPort        string
}

func LoadConfig() *Config {
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	getEnvInt := func(key string, fallback int) int {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return fallback
	}

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	return &Config{
		SQLitePath:      getEnv("SQLITE_PATH", "./notelab.db"),
		PostgresDSN:     getEnv("POSTGRES_DSN", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		NotesBackend:    getEnv("NOTES_BACKEND", "sqlite"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    kafkaBrokers,
		KafkaTopicNotes: getEnv("KAFKA_TOPIC", "note-events"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "notelab-cache"),
		UseKafka:        getEnv("USE_KAFKA", "false") == "true",
		CacheTTL:        5 * time.Minute,
		FlushBatch:      getEnvInt("FLUSH_BATCH", 100),
		SyncMaxAttempts: getEnvInt("SYNC_MAX_ATTEMPTS", 5),
		SyncBaseDelay:   500 * time.Millisecond,
		SyncJitter:      200 * time.Millisecond,
		SyncPeriod:      30 * time.Second,
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
	}
}
