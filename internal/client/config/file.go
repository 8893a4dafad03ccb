package config

import (
	"os"

	"github.com/dmitrijs2005/readersync/internal/flagx"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

// FileConfig is the DTO for config files. Absent fields keep their current
// value.
type FileConfig struct {
	DatabasePath     *string         `json:"database_path" yaml:"database_path"`
	Backend          *string         `json:"backend" yaml:"backend"`
	PostgresDSN      *string         `json:"postgres_dsn" yaml:"postgres_dsn"`
	GRPCAddr         *string         `json:"grpc_addr" yaml:"grpc_addr"`
	RedisAddr        *string         `json:"redis_addr" yaml:"redis_addr"`
	S3Bucket         *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region         *string         `json:"s3_region" yaml:"s3_region"`
	S3Endpoint       *string         `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey      *string         `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey      *string         `json:"s3_secret_key" yaml:"s3_secret_key"`
	RequestTimeout   *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	DebounceInterval *timex.Duration `json:"debounce_interval" yaml:"debounce_interval"`
	MaxPushAttempts  *int            `json:"max_push_attempts" yaml:"max_push_attempts"`
	ImportDir        *string         `json:"import_dir" yaml:"import_dir"`
	LogFile          *string         `json:"log_file" yaml:"log_file"`
	LogLevel         *string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays config with the file named by -c or -config, if any.
// It panics when the file cannot be read or parsed.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	c := &FileConfig{}
	if err := flagx.DecodeConfigFile(path, c); err != nil {
		panic(err)
	}

	setString(&config.DatabasePath, c.DatabasePath)
	setString(&config.Backend, c.Backend)
	setString(&config.PostgresDSN, c.PostgresDSN)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.ImportDir, c.ImportDir)
	setString(&config.LogFile, c.LogFile)
	setString(&config.LogLevel, c.LogLevel)

	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.DebounceInterval != nil {
		config.DebounceInterval = c.DebounceInterval.Duration
	}
	if c.MaxPushAttempts != nil {
		config.MaxPushAttempts = *c.MaxPushAttempts
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
