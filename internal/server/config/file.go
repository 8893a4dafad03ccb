package config

import (
	"os"

	"github.com/dmitrijs2005/readersync/internal/flagx"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

// FileConfig is the DTO for config files. Intervals use timex.Duration so
// they can be written as "10s" or as integer nanoseconds. Fields left out
// of the file keep their current value.
type FileConfig struct {
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN      *string         `json:"database_dsn" yaml:"database_dsn"`
	RequestTimeout   *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
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

	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
}
