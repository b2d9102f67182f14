package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing type", Config{Host: "h", Database: "d"}, true},
		{"missing host and url", Config{Type: "postgres", Database: "d"}, true},
		{"missing database", Config{Type: "postgres", Host: "h"}, true},
		{"valid with host", Config{Type: "postgres", Host: "h", Database: "d"}, false},
		{"valid with conn url", Config{Type: "postgres", ConnURL: "postgres://x"}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Type: "postgres", Host: "h", Database: "d"}
	out := cfg.withDefaults()

	assert.Equal(t, defaultName, out.Name)
	assert.Equal(t, int32(25), out.MaxConns)
	assert.Equal(t, int32(5), out.MinConns)
	assert.Equal(t, time.Hour, out.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, out.MaxConnIdleTime)
	assert.Equal(t, time.Minute, out.HealthCheckPeriod)
}

func TestConfig_WithDefaultsPreservesOverrides(t *testing.T) {
	cfg := Config{Type: "postgres", Host: "h", Database: "d", Name: "SECONDARY", MaxConns: 100}
	out := cfg.withDefaults()

	assert.Equal(t, "SECONDARY", out.Name)
	assert.Equal(t, int32(100), out.MaxConns)
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{
		Host: "db", Port: 5432, Database: "app", User: "u", Password: "p",
	}
	require.Equal(t, "postgres://u:p@db:5432/app?sslmode=disable", cfg.dsn())

	cfg.ConnURL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.dsn())
}
