package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the pipeline runner needs from the environment
// so main stays lean. The core engine never reads this directly; it receives
// a timeline.RunConfig built from it.
type Config struct {
	// OpsAddr serves /metrics and /healthz while a run executes.
	OpsAddr string

	// PostgresDSN points at the ingested-entity store. Empty means the
	// in-memory reader is used (fixtures / local runs).
	PostgresDSN string

	// RedisURL enables the run-result cache when set.
	RedisURL     string
	CacheTTL     time.Duration
	RedisTimeout time.Duration

	// KafkaBrokers/KafkaTopic route metric records to the metric sink.
	// Empty brokers means the in-memory sink is used.
	KafkaBrokers []string
	KafkaTopic   string

	// Concurrency bounds the number of persons processed in parallel.
	Concurrency int

	// MetricKinds enables output metric families independently.
	SpanDurationMetrics  bool
	PopulationMetrics    bool
	EventCountMetrics    bool
	CalculationMonths    int      // month window for span-duration expansion, -1 = unbounded
	PopulationSnapshots  []string // ISO dates for point-in-time counts
	LogLevel             string
}

// FromEnv builds a Config from environment variables, with defaults suited to
// local runs against in-memory adapters.
func FromEnv() Config {
	cfg := Config{
		OpsAddr:             getenv("CASELINE_OPS_ADDR", ":9090"),
		PostgresDSN:         os.Getenv("CASELINE_POSTGRES_DSN"),
		RedisURL:            os.Getenv("CASELINE_REDIS_URL"),
		CacheTTL:            getduration("CASELINE_CACHE_TTL", 24*time.Hour),
		RedisTimeout:        getduration("CASELINE_REDIS_TIMEOUT", 2*time.Second),
		KafkaTopic:          getenv("CASELINE_KAFKA_TOPIC", "caseline.metrics"),
		Concurrency:         getint("CASELINE_CONCURRENCY", 8),
		SpanDurationMetrics: getbool("CASELINE_SPAN_DURATION_METRICS", true),
		PopulationMetrics:   getbool("CASELINE_POPULATION_METRICS", true),
		EventCountMetrics:   getbool("CASELINE_EVENT_COUNT_METRICS", true),
		CalculationMonths:   getint("CASELINE_CALCULATION_MONTHS", 36),
		LogLevel:            getenv("CASELINE_LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("CASELINE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if snaps := os.Getenv("CASELINE_POPULATION_SNAPSHOTS"); snaps != "" {
		cfg.PopulationSnapshots = strings.Split(snaps, ",")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
