// Package config loads runtime configuration for the readersync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-db string    path of the local SQLite database
//	-b string     sync backend: local, postgres, grpc, s3 or redis
//	-a string     address:port of the sync server (grpc backend)
//	-d string     PostgreSQL DSN (postgres backend)
//	-r string     address:port of the Redis server (redis backend)
//	-s3b string   S3 bucket
//	-s3r string   S3 region
//	-s3e string   S3 base endpoint, e.g. "http://127.0.0.1:9000"
//	-s3u string   S3 access key
//	-s3p string   S3 secret key
//	-t int        request timeout (seconds)
//	-w int        auto-sync debounce interval (milliseconds)
//	-n int        push attempts on concurrent modification
//	-i string     import inbox directory, empty to disable
//	-log string   log file
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "database_path": "readersync.db",
//	  "backend": "grpc",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s",
//	  "debounce_interval": "2s"
//	}
package config
