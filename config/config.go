// Package config loads process configuration from the environment (with an
// optional .env file) into a flat struct, using getEnv-style helpers with
// defaults and no hard failure on missing optional values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// NodeSpec describes one configured audio node.
type NodeSpec struct {
	Name     string
	Host     string
	Password string
	Secure   bool
	Regions  []string
}

// Config is the process-wide configuration.
type Config struct {
	Nodes         []NodeSpec
	DefaultRegion string

	RestTimeout    time.Duration
	RestMaxRetries int
	RestCacheTTL   time.Duration
	TrackCacheTTL  time.Duration

	PlayerBatchDelay time.Duration
	VoiceBatchDelay  time.Duration
	StuckThreshold   time.Duration

	PoolRebalanceInterval  time.Duration
	PoolMigrationThreshold float64
	HealthCacheTTL         time.Duration

	AdminAddr      string
	AdminJWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UseRedisCache bool

	MySQLDSN  string
	UseSQLStore bool

	SnapshotPath string

	LogLevel      string
	LogOutputPath string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// parseNodes parses NODE_URLS entries of the form
// "name=host:port:password[:secure[:region|region2]]", comma-separated.
func parseNodes(raw string) []NodeSpec {
	if raw == "" {
		return nil
	}
	var nodes []NodeSpec
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		nameHost := strings.SplitN(entry, "=", 2)
		if len(nameHost) != 2 {
			continue
		}
		parts := strings.Split(nameHost[1], ":")
		spec := NodeSpec{Name: nameHost[0]}
		switch len(parts) {
		case 2:
			spec.Host = parts[0] + ":" + parts[1]
		case 3:
			spec.Host = parts[0] + ":" + parts[1]
			spec.Password = parts[2]
		case 4:
			spec.Host = parts[0] + ":" + parts[1]
			spec.Password = parts[2]
			spec.Secure, _ = strconv.ParseBool(parts[3])
		case 5:
			spec.Host = parts[0] + ":" + parts[1]
			spec.Password = parts[2]
			spec.Secure, _ = strconv.ParseBool(parts[3])
			spec.Regions = strings.Split(parts[4], "|")
		default:
			continue
		}
		nodes = append(nodes, spec)
	}
	return nodes
}

// Load reads configuration from the environment, attempting to load a
// .env file first (missing .env is not an error).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Nodes:         parseNodes(getEnv("NODE_URLS", "")),
		DefaultRegion: getEnv("DEFAULT_REGION", "unknown"),

		RestTimeout:    getEnvDuration("REST_TIMEOUT", 15*time.Second),
		RestMaxRetries: getEnvInt("REST_MAX_RETRIES", 3),
		RestCacheTTL:   getEnvDuration("REST_CACHE_TTL", 30*time.Second),
		TrackCacheTTL:  getEnvDuration("TRACK_CACHE_TTL", 5*time.Minute),

		PlayerBatchDelay: getEnvDuration("PLAYER_BATCH_DELAY", 25*time.Millisecond),
		VoiceBatchDelay:  getEnvDuration("VOICE_BATCH_DELAY", 50*time.Millisecond),
		StuckThreshold:   getEnvDuration("STUCK_THRESHOLD", 30*time.Second),

		PoolRebalanceInterval:  getEnvDuration("POOL_REBALANCE_INTERVAL", 30*time.Second),
		PoolMigrationThreshold: getEnvFloat("POOL_MIGRATION_THRESHOLD", 1.0),
		HealthCacheTTL:         getEnvDuration("HEALTH_CACHE_TTL", 30*time.Second),

		AdminAddr:      getEnv("ADMIN_ADDR", ":8686"),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		UseRedisCache: getEnvBool("USE_REDIS_CACHE", false),

		MySQLDSN:    getEnv("MYSQL_DSN", ""),
		UseSQLStore: getEnvBool("USE_SQL_STORE", false),

		SnapshotPath: getEnv("SNAPSHOT_PATH", "players.snapshot.json"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
	}
}
