// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kdufoot/matchfinder/internal/quota"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	LogLevel  string // zerolog level name
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // shared secret used to verify access tokens

	Routing   RoutingConfig
	Discovery DiscoveryConfig
	Quota     QuotaConfig
	Broker    BrokerConfig

	ContactRetransition string   // "allow" or "reject"
	CORSOrigins         []string // browser origins allowed to call the API
}

// RoutingConfig configures the distance matrix client.
type RoutingConfig struct {
	BaseURL     string
	APIKey      string
	BatchSize   int
	Timeout     time.Duration
	Parallelism int
	RPS         float64
	Burst       int
}

// DiscoveryConfig tunes radius searches.
type DiscoveryConfig struct {
	BoxFactor    float64
	CandidateCap int
	MaxRadiusKm  float64
}

// QuotaConfig selects the quota table and the counter mode.
type QuotaConfig struct {
	File   string // optional YAML table; empty means built-in defaults
	Strict bool   // use the store's atomic consume when available
}

// BrokerConfig configures the lifecycle event broker.  An empty URL
// disables publishing.
type BrokerConfig struct {
	URL      string
	Queue    string
	Consumer bool // run the in-process lifecycle consumer
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", "8080"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    envStr("DB_PORT", "3306"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
		Routing: RoutingConfig{
			BaseURL:     os.Getenv("ROUTING_BASE_URL"),
			APIKey:      os.Getenv("GOOGLE_MAPS_API_KEY"),
			BatchSize:   envInt("ROUTING_BATCH_SIZE", 25),
			Timeout:     envDur("ROUTING_TIMEOUT", 5*time.Second),
			Parallelism: envInt("ROUTING_PARALLELISM", 1),
			RPS:         envFloat("ROUTING_RPS", 10),
			Burst:       envInt("ROUTING_BURST", 1),
		},
		Discovery: DiscoveryConfig{
			BoxFactor:    envFloat("DISCOVERY_BBOX_FACTOR", 1.4),
			CandidateCap: envInt("DISCOVERY_CANDIDATE_CAP", 100),
			MaxRadiusKm:  envFloat("DISCOVERY_MAX_RADIUS_KM", 200),
		},
		Quota: QuotaConfig{
			File:   os.Getenv("QUOTA_CONFIG_FILE"),
			Strict: envBool("QUOTA_STRICT", false),
		},
		Broker: BrokerConfig{
			URL:      firstEnv("RABBITMQ_URL", "AMQP_URL"),
			Queue:    envStr("RABBITMQ_QUEUE", "match.lifecycle"),
			Consumer: envBool("RABBITMQ_CONSUMER", false),
		},
		ContactRetransition: envStr("CONTACT_RETRANSITION", "allow"),
		CORSOrigins:         envList("CORS_ALLOW_ORIGINS"),
	}
}

// QuotaTable returns the configured quota table: the YAML file when one
// is set, the built-in table otherwise.
func (q QuotaConfig) QuotaTable() (quota.Table, error) {
	if q.File == "" {
		return quota.DefaultTable(), nil
	}
	data, err := os.ReadFile(q.File)
	if err != nil {
		return nil, err
	}
	return quota.ParseTable(data)
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envList(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid int, using default")
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid float, using default")
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid duration, using default")
	return d
}
