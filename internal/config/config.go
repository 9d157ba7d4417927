package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the GenomeHub server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Worker    WorkerConfig
	Estimate  EstimateConfig
	Recommend RecommendConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WorkerConfig sizes the execution dispatcher: how many jobs may execute
// concurrently and how many accepted jobs may wait in the queue.
type WorkerConfig struct {
	PoolSize      int
	QueueCapacity int
}

// EstimateConfig carries the cost/runtime estimation constants. The numbers
// have no derivation beyond operator calibration, so they live in
// configuration rather than code.
type EstimateConfig struct {
	HighPriorityMultiplier   float64
	UrgentPriorityMultiplier float64
	RatePerMinute            float64
	BreakdownComputeRatio    float64
	BreakdownStorageRatio    float64
	BreakdownTransferRatio   float64
	BreakdownOtherRatio      float64
}

// RecommendConfig carries the recommendation scoring weights.
type RecommendConfig struct {
	BaseConfidence    float64
	TypeMatchWeight   float64
	QuestionWeightCap float64
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("GENOMEHUB_PORT", 8080),
			Env:  envString("GENOMEHUB_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Worker: WorkerConfig{
			PoolSize:      envInt("WORKER_POOL_SIZE", 4),
			QueueCapacity: envInt("WORKER_QUEUE_CAPACITY", 256),
		},
		Estimate: EstimateConfig{
			HighPriorityMultiplier:   envFloat("ESTIMATE_HIGH_MULTIPLIER", 1.5),
			UrgentPriorityMultiplier: envFloat("ESTIMATE_URGENT_MULTIPLIER", 2.0),
			RatePerMinute:            envFloat("ESTIMATE_RATE_PER_MINUTE", 0.5),
			BreakdownComputeRatio:    envFloat("ESTIMATE_BREAKDOWN_COMPUTE", 0.70),
			BreakdownStorageRatio:    envFloat("ESTIMATE_BREAKDOWN_STORAGE", 0.20),
			BreakdownTransferRatio:   envFloat("ESTIMATE_BREAKDOWN_TRANSFER", 0.05),
			BreakdownOtherRatio:      envFloat("ESTIMATE_BREAKDOWN_OTHER", 0.05),
		},
		Recommend: RecommendConfig{
			BaseConfidence:    envFloat("RECOMMEND_BASE_CONFIDENCE", 0.5),
			TypeMatchWeight:   envFloat("RECOMMEND_TYPE_MATCH_WEIGHT", 0.3),
			QuestionWeightCap: envFloat("RECOMMEND_QUESTION_WEIGHT_CAP", 0.2),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.Worker.PoolSize)
	}
	if c.Worker.QueueCapacity < 1 {
		return fmt.Errorf("WORKER_QUEUE_CAPACITY must be at least 1, got %d", c.Worker.QueueCapacity)
	}

	if c.Estimate.HighPriorityMultiplier < 1 || c.Estimate.UrgentPriorityMultiplier < 1 {
		return fmt.Errorf("priority multipliers must be >= 1")
	}
	if c.Estimate.RatePerMinute <= 0 {
		return fmt.Errorf("ESTIMATE_RATE_PER_MINUTE must be positive, got %v", c.Estimate.RatePerMinute)
	}

	ratioSum := c.Estimate.BreakdownComputeRatio + c.Estimate.BreakdownStorageRatio +
		c.Estimate.BreakdownTransferRatio + c.Estimate.BreakdownOtherRatio
	if math.Abs(ratioSum-1.0) > 1e-9 {
		return fmt.Errorf("cost breakdown ratios must sum to 1.0, got %v", ratioSum)
	}

	if c.Recommend.BaseConfidence < 0 || c.Recommend.BaseConfidence > 1 {
		return fmt.Errorf("RECOMMEND_BASE_CONFIDENCE must be in [0,1], got %v", c.Recommend.BaseConfidence)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
