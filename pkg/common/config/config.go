package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	HealthRecordsTopic string
	AssessmentsTopic   string

	// Model
	ModelVariant     string
	ModelAlgorithm   string
	ModelStore       string
	ModelArtifactDir string
	ModelRedisPrefix string
	TerminologyFile  string
	DLPRulesFile     string

	// Training
	TrainingSeed    uint64
	TrainingSamples int
	ForestTrees     int
	RetrainSchedule string

	// Features
	PersistAssessments bool
	PublishAssessments bool

	// Gateway
	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present, and CONFIG_FILE may name a flat YAML
// file of KEY: value pairs used as defaults beneath the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return nil, err
		}
		src.file = overlay
	}

	cfg := &Config{
		ServerPort:     src.getEnv("SERVER_PORT", "8080"),
		ServerHost:     src.getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    src.getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   src.getDuration("WRITE_TIMEOUT", 120*time.Second),
		MaxRequestBody: int64(src.getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     src.getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     src.getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     src.getEnv("POSTGRES_USER", "maternal"),
		PostgresPassword: src.getEnv("POSTGRES_PASSWORD", "maternal123"),
		PostgresDB:       src.getEnv("POSTGRES_DB", "maternal_risk"),
		PostgresSSLMode:  src.getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     src.getEnv("REDIS_HOST", "localhost"),
		RedisPort:     src.getEnv("REDIS_PORT", "6379"),
		RedisPassword: src.getEnv("REDIS_PASSWORD", ""),
		RedisDB:       src.getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       src.getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       src.getEnv("KAFKA_GROUP_ID", "maternal-risk"),
		HealthRecordsTopic: src.getEnv("HEALTH_RECORDS_TOPIC", "health-records"),
		AssessmentsTopic:   src.getEnv("ASSESSMENTS_TOPIC", "risk-assessments"),

		ModelVariant:     src.getEnv("MODEL_VARIANT", "enhanced"),
		ModelAlgorithm:   src.getEnv("MODEL_ALGORITHM", ""),
		ModelStore:       strings.ToLower(src.getEnv("MODEL_STORE", "file")),
		ModelArtifactDir: src.getEnv("MODEL_ARTIFACT_DIR", "models"),
		ModelRedisPrefix: src.getEnv("MODEL_REDIS_PREFIX", "maternal-risk:model"),
		TerminologyFile:  src.getEnv("TERMINOLOGY_FILE", ""),
		DLPRulesFile:     src.getEnv("DLP_RULES_FILE", ""),

		TrainingSeed:    src.getSeedEnv("TRAINING_SEED", 42),
		TrainingSamples: src.getIntEnv("TRAINING_SAMPLES", 0),
		ForestTrees:     src.getIntEnv("FOREST_TREES", 100),
		RetrainSchedule: src.getEnv("RETRAIN_SCHEDULE", ""),

		PersistAssessments: src.getBoolEnv("PERSIST_ASSESSMENTS", false),
		PublishAssessments: src.getBoolEnv("PUBLISH_ASSESSMENTS", false),

		RateLimitRPS:   src.getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: src.getIntEnv("RATE_LIMIT_BURST", 100),
	}

	switch cfg.ModelStore {
	case "file", "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown MODEL_STORE %q", cfg.ModelStore)
	}
	return cfg, nil
}

func readOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
		case []interface{}:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// source resolves a key from the environment, then the overlay file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getIntEnv(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getSeedEnv accepts 0..MaxInt64 so seeds fit the signed column they are
// recorded in.
func (s source) getSeedEnv(key string, defaultValue uint64) uint64 {
	if value := s.lookup(key); value != "" {
		if seed, err := strconv.ParseUint(value, 10, 63); err == nil {
			return seed
		}
	}
	return defaultValue
}

func (s source) getBoolEnv(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (s source) getStringSliceEnv(key string, defaultValue []string) []string {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
