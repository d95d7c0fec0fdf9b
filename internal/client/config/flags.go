package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the command-line overrides of cfg on fs. The current
// values of cfg become the flag defaults.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ServerURL, "server", "a", cfg.ServerURL, "base URL of the drawkeeper HTTP API")
	fs.StringVarP(&cfg.Token, "token", "t", cfg.Token, "bearer token")
	fs.DurationVarP(&cfg.PollInterval, "interval", "i", cfg.PollInterval, "status poll interval while watching")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.StringVar(&cfg.HistoryDir, "history", cfg.HistoryDir, "directory of the local watch history")
	// consumed by LoadConfig before parsing; registered so the parser accepts it
	fs.StringP("config", "c", "", "path to JSON config file")
}
