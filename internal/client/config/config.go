package config

import "time"

// Backend names accepted in Config.Backend.
const (
	BackendLocal    = "local"
	BackendPostgres = "postgres"
	BackendGRPC     = "grpc"
	BackendS3       = "s3"
	BackendRedis    = "redis"
)

// Config holds runtime settings for the readersync client.
type Config struct {
	DatabasePath string

	// Backend selects the sync transport. Fields for other backends are
	// ignored.
	Backend     string
	PostgresDSN string
	GRPCAddr    string
	RedisAddr   string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RequestTimeout   time.Duration
	DebounceInterval time.Duration
	MaxPushAttempts  int

	ImportDir string
	LogFile   string
	LogLevel  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "readersync.db"
	c.Backend = BackendLocal
	c.GRPCAddr = "127.0.0.1:50051"
	c.RedisAddr = "127.0.0.1:6379"
	c.S3Bucket = "readersync"
	c.S3Region = "us-east-1"
	c.RequestTimeout = 10 * time.Second
	c.DebounceInterval = 2 * time.Second
	c.MaxPushAttempts = 5
	c.LogFile = "readersync.log"
	c.LogLevel = "info"
}

// Remote reports whether the configured backend is shared with other
// devices.
func (c *Config) Remote() bool {
	return c.Backend != "" && c.Backend != BackendLocal
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
