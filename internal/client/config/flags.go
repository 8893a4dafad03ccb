package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/readersync/internal/flagx"
)

var clientFlags = []string{
	"-db", "-b", "-a", "-d", "-r",
	"-s3b", "-s3r", "-s3e", "-s3u", "-s3p",
	"-t", "-w", "-n", "-i", "-log", "-l",
}

// parseFlags populates Config fields from command-line flags. Unknown flags
// are dropped with flagx.FilterArgs first. It panics on invalid values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], clientFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabasePath, "db", config.DatabasePath, "local database file")
	fs.StringVar(&config.Backend, "b", config.Backend, "sync backend (local, postgres, grpc, s3, redis)")
	fs.StringVar(&config.GRPCAddr, "a", config.GRPCAddr, "address and port of the sync server")
	fs.StringVar(&config.PostgresDSN, "d", config.PostgresDSN, "postgres DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.S3Bucket, "s3b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "s3r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "s3e", config.S3Endpoint, "S3 base endpoint")
	fs.StringVar(&config.S3AccessKey, "s3u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "s3p", config.S3SecretKey, "S3 secret key")
	requestTimeout := fs.Int("t", int(config.RequestTimeout.Seconds()), "request timeout (in seconds)")
	debounce := fs.Int("w", int(config.DebounceInterval.Milliseconds()), "auto-sync debounce (in milliseconds)")
	fs.IntVar(&config.MaxPushAttempts, "n", config.MaxPushAttempts, "push attempts on conflict")
	fs.StringVar(&config.ImportDir, "i", config.ImportDir, "import inbox directory")
	fs.StringVar(&config.LogFile, "log", config.LogFile, "log file")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	config.DebounceInterval = time.Duration(*debounce) * time.Millisecond
}
