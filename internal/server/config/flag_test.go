package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{
			name: "all short flags",
			args: []string{
				"-a", "127.0.0.1:8081", "-r", "127.0.0.1:9090", "-d", "db", "-s", "secret",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
				"-q", "redis:6379", "-w", "16", "-t", "http://aps", "-k", "cid", "-x", "csecret",
				"-m", "10", "-l", "debug", "-f", "/tmp/log.json",
			},
			expected: &Config{
				EndpointAddrHTTP:        "127.0.0.1:8081",
				EndpointAddrGRPC:        "127.0.0.1:9090",
				DatabaseDSN:             "db",
				SecretKey:               "secret",
				S3RootUser:              "user",
				S3RootPassword:          "password",
				S3Bucket:                "bucket",
				S3Region:                "us-west-1",
				S3BaseEndpoint:          "http://endpoint",
				RedisAddr:               "redis:6379",
				WorkerConcurrency:       16,
				TranslationBaseURL:      "http://aps",
				TranslationClientID:     "cid",
				TranslationClientSecret: "csecret",
				MaxUploadSize:           10 << 20,
				LogLevel:                "debug",
				LogFile:                 "/tmp/log.json",
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"-c", "cfg.json", "-z", "1", "-a", ":1"},
			expected: &Config{EndpointAddrHTTP: ":1"},
		},
		{
			name:     "max upload untouched without -m",
			args:     []string{"-l", "warn"},
			expected: &Config{LogLevel: "warn", MaxUploadSize: 1234},
		},
		{
			name:      "bad int",
			args:      []string{"-w", "many"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			if tt.name == "max upload untouched without -m" {
				config.MaxUploadSize = 1234
			}

			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
