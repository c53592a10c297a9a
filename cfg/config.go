package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// DurableDriver selects the relational backend for content records
type DurableDriver string

const (
	DriverSQLite DurableDriver = "sqlite3"
	DriverMySQL  DurableDriver = "mysql"
)

// DurableConfiguration for the authoritative content store
type DurableConfiguration struct {
	Driver         DurableDriver `toml:"driver"`
	DSN            string        `toml:"dsn"`
	QueryTimeoutMS int           `toml:"query_timeout_ms"` // Per-statement timeout
	MaxOpenConns   int           `toml:"max_open_conns"`
	MaxIdleConns   int           `toml:"max_idle_conns"`
}

// RedisConfiguration for the shared volatile store (counters, likes, cache)
type RedisConfiguration struct {
	Address   string `toml:"address"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	TimeoutMS int    `toml:"timeout_ms"` // Short timeout, callers fail open
}

// CacheConfiguration controls cache-aside behavior
type CacheConfiguration struct {
	Backend            string `toml:"backend"` // "redis" or "memory"
	ListTTLSeconds     int    `toml:"list_ttl_seconds"`
	RecordTTLSeconds   int    `toml:"record_ttl_seconds"`
	MemoryMaxEntries   int    `toml:"memory_max_entries"`
	CompressAboveBytes int    `toml:"compress_above_bytes"`
}

// CounterConfiguration controls the view counter store
type CounterConfiguration struct {
	Backend             string `toml:"backend"` // "redis" or "memory"
	DedupWindowSeconds  int    `toml:"dedup_window_seconds"`  // Viewer dedup filter rotation
	DedupFilterCapacity int    `toml:"dedup_filter_capacity"` // Buckets in the cuckoo filter
	IncrementTimeoutMS  int    `toml:"increment_timeout_ms"`  // Best-effort budget per bump
}

// ReconcileConfiguration controls the counter reconciliation job
type ReconcileConfiguration struct {
	IntervalSeconds int `toml:"interval_seconds"`
	ScanBatchSize   int `toml:"scan_batch_size"`
}

// HTTPConfiguration for the API server
type HTTPConfiguration struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	AuthToken   string `toml:"auth_token"` // Bearer token for mutating routes
}

// SinkConfiguration describes one mutation event sink
type SinkConfiguration struct {
	Type        string   `toml:"type"` // "nats", "kafka", "mock"
	NatsURL     string   `toml:"nats_url"`
	Brokers     []string `toml:"brokers"`
	TopicPrefix string   `toml:"topic_prefix"`
	BatchSize   int      `toml:"batch_size"`
	Scopes      []string `toml:"scopes"` // Glob patterns over event kinds
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID uint64 `toml:"instance_id"`

	Durable    DurableConfiguration    `toml:"durable"`
	Redis      RedisConfiguration      `toml:"redis"`
	Cache      CacheConfiguration      `toml:"cache"`
	Counter    CounterConfiguration    `toml:"counter"`
	Reconcile  ReconcileConfiguration  `toml:"reconcile"`
	HTTP       HTTPConfiguration       `toml:"http"`
	Sinks      []SinkConfiguration     `toml:"sink"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "config.toml", "Path to configuration file")
	HTTPPortFlag   = flag.Int("http-port", 0, "HTTP port (overrides config)")
	ReconcileFlag  = flag.Bool("reconcile", false, "Run one reconciliation pass and exit")
)

// Default configuration
var Config = &Configuration{
	InstanceID: 0, // Auto-generate

	Durable: DurableConfiguration{
		Driver:         DriverSQLite,
		DSN:            "./inkpress.db",
		QueryTimeoutMS: 3000,
		MaxOpenConns:   8,
		MaxIdleConns:   4,
	},

	Redis: RedisConfiguration{
		Address:   "localhost:6379",
		DB:        0,
		TimeoutMS: 250, // Volatile path fails open past this
	},

	Cache: CacheConfiguration{
		Backend:            "redis",
		ListTTLSeconds:     60,
		RecordTTLSeconds:   900,
		MemoryMaxEntries:   4096,
		CompressAboveBytes: 8192,
	},

	Counter: CounterConfiguration{
		Backend:             "redis",
		DedupWindowSeconds:  300,
		DedupFilterCapacity: 250000,
		IncrementTimeoutMS:  250,
	},

	Reconcile: ReconcileConfiguration{
		IntervalSeconds: 60,
		ScanBatchSize:   200,
	},

	HTTP: HTTPConfiguration{
		BindAddress: "0.0.0.0",
		Port:        8080,
	},

	Logging: LoggingConfiguration{
		Verbose: false,
		Format:  "console",
	},

	Prometheus: PrometheusConfiguration{
		Enabled: true,
	},
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	// Apply CLI overrides
	if *HTTPPortFlag != 0 {
		Config.HTTP.Port = *HTTPPortFlag
	}

	// Auto-generate instance ID if not set
	if Config.InstanceID == 0 {
		var err error
		Config.InstanceID, err = generateInstanceID()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}
		log.Info().Uint64("instance_id", Config.InstanceID).Msg("Auto-generated instance ID")
	}

	return nil
}

// generateInstanceID creates a unique instance ID based on machine ID
func generateInstanceID() (uint64, error) {
	id, err := machineid.ProtectedID("inkpress")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	switch Config.Durable.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("invalid durable driver: %s", Config.Durable.Driver)
	}

	if Config.Durable.DSN == "" {
		return fmt.Errorf("durable DSN is required")
	}

	if Config.Durable.QueryTimeoutMS < 1 {
		return fmt.Errorf("durable query timeout must be >= 1ms")
	}

	if Config.HTTP.Port < 1 || Config.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", Config.HTTP.Port)
	}

	validBackend := map[string]bool{"redis": true, "memory": true}
	if !validBackend[Config.Cache.Backend] {
		return fmt.Errorf("invalid cache backend: %s", Config.Cache.Backend)
	}
	if !validBackend[Config.Counter.Backend] {
		return fmt.Errorf("invalid counter backend: %s", Config.Counter.Backend)
	}

	if (Config.Cache.Backend == "redis" || Config.Counter.Backend == "redis") && Config.Redis.Address == "" {
		return fmt.Errorf("redis address is required for redis-backed stores")
	}

	if Config.Redis.TimeoutMS < 1 {
		return fmt.Errorf("redis timeout must be >= 1ms")
	}

	if Config.Cache.ListTTLSeconds < 1 {
		return fmt.Errorf("list cache TTL must be >= 1 second")
	}

	if Config.Cache.RecordTTLSeconds < 1 {
		return fmt.Errorf("record cache TTL must be >= 1 second")
	}

	if Config.Cache.MemoryMaxEntries < 1 {
		return fmt.Errorf("memory cache max entries must be >= 1")
	}

	if Config.Counter.DedupWindowSeconds < 0 {
		return fmt.Errorf("dedup window must be >= 0 seconds")
	}

	if Config.Counter.DedupFilterCapacity < 1 {
		return fmt.Errorf("dedup filter capacity must be >= 1")
	}

	if Config.Reconcile.IntervalSeconds < 1 {
		return fmt.Errorf("reconcile interval must be >= 1 second")
	}

	if Config.Reconcile.ScanBatchSize < 1 {
		return fmt.Errorf("reconcile scan batch size must be >= 1")
	}

	for i, sink := range Config.Sinks {
		switch sink.Type {
		case "nats":
			if sink.NatsURL == "" {
				return fmt.Errorf("sink %d: nats sink requires nats_url", i)
			}
		case "kafka":
			if len(sink.Brokers) == 0 {
				return fmt.Errorf("sink %d: kafka sink requires brokers", i)
			}
		case "mock":
		default:
			return fmt.Errorf("sink %d: unknown sink type: %s", i, sink.Type)
		}
	}

	return nil
}
