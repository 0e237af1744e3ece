package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cdeck95/filament-tracking/config"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, config.BackendBadger, cfg.StorageBackend)
	require.Equal(t, "./data", cfg.DataDir)
	require.False(t, cfg.AuthEnabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)
	t.Setenv("AUTH_ENABLED", "true")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, config.BackendMemory, cfg.StorageBackend)
	require.True(t, cfg.AuthEnabled)
}

func TestLoadConfigFileOverridesEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "http_port: \"7070\"\nstorage_backend: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "7070", cfg.HTTPPort)
	require.Equal(t, config.BackendMemory, cfg.StorageBackend)
}

func TestGetDSN(t *testing.T) {
	cfg := &config.Config{
		DatabaseHost: "db.local",
		DatabasePort: "5433",
		DatabaseUser: "app",
		DatabasePass: "secret",
		DatabaseName: "filaments",
	}
	require.Equal(t,
		"host=db.local port=5433 user=app password=secret dbname=filaments sslmode=disable",
		cfg.GetDSN())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"badger without data dir", config.Config{StorageBackend: config.BackendBadger}, true},
		{"postgres without host", config.Config{StorageBackend: config.BackendPostgres, DatabaseName: "x"}, true},
		{"http without endpoint", config.Config{StorageBackend: config.BackendHTTP}, true},
		{"http with endpoint", config.Config{StorageBackend: config.BackendHTTP, BlobEndpoint: "https://blobs.example"}, false},
		{"memory", config.Config{StorageBackend: config.BackendMemory}, false},
		{"unknown backend", config.Config{StorageBackend: "tape"}, true},
		{"auth without token file", config.Config{StorageBackend: config.BackendMemory, AuthEnabled: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
