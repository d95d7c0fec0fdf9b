package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/drawkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-r string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-q string   Redis address of the submission queue
//	-w int      submission worker concurrency
//	-t string   translation service base URL
//	-k string   translation client id
//	-x string   translation client secret
//	-m int      max upload size, MiB
//	-l string   log level (debug, info, warn, error)
//	-f string   log file, JSON lines, in addition to stdout
//
// Everything else is configured through the JSON file.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-r", "-d", "-s", "-u", "-p", "-b", "-g", "-e",
		"-q", "-w", "-t", "-k", "-x", "-m", "-l", "-f"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "Redis address")
	fs.IntVar(&config.WorkerConcurrency, "w", config.WorkerConcurrency, "submission worker concurrency")

	fs.StringVar(&config.TranslationBaseURL, "t", config.TranslationBaseURL, "translation service base URL")
	fs.StringVar(&config.TranslationClientID, "k", config.TranslationClientID, "translation client id")
	fs.StringVar(&config.TranslationClientSecret, "x", config.TranslationClientSecret, "translation client secret")

	maxUploadMiB := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in MiB)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "m" {
			config.MaxUploadSize = *maxUploadMiB << 20
		}
	})
	return nil
}
