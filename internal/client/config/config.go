package config

import (
	"time"
)

// Config holds runtime settings for drawctl.
type Config struct {
	ServerURL      string
	Token          string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	HistoryDir     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.PollInterval = 5 * time.Second
	c.RequestTimeout = 5 * time.Minute
	c.HistoryDir = ".drawctl"
}

// LoadConfig applies defaults and then the JSON file named by -c/-config in
// args. Flags are bound separately with BindFlags so that the command line
// parser owns them.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
