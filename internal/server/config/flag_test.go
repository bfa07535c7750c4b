package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		start       *Config
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-g", ":6000", "-d", "db", "-o", "http://shop.example",
				"-m", "production", "-t", "15m", "-r", "7d",
			},
			start: &Config{},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				EndpointAddrGRPC:             ":6000",
				DatabaseDSN:                  "db",
				CORSOrigin:                   "http://shop.example",
				Mode:                         "production",
				AccessTokenValidityDuration:  15 * time.Minute,
				RefreshTokenValidityDuration: 7 * 24 * time.Hour,
			},
		},
		{
			name:  "no flags keep current values",
			args:  []string{"-unrelated", "x"},
			start: &Config{EndpointAddrHTTP: ":8000", AccessTokenValidityDuration: time.Hour, RefreshTokenValidityDuration: 2 * time.Hour},
			expected: &Config{
				EndpointAddrHTTP:             ":8000",
				AccessTokenValidityDuration:  time.Hour,
				RefreshTokenValidityDuration: 2 * time.Hour,
			},
		},
		{
			name:        "invalid duration panics",
			args:        []string{"-t", "soon"},
			start:       &Config{AccessTokenValidityDuration: time.Hour, RefreshTokenValidityDuration: time.Hour},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := tt.start

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config, tt.args) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
