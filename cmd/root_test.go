package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))
}

func TestReadConfigFiles(t *testing.T) {
	const system = "base_url = \"http://system:8000\"\nstore = \"sqlite\"\n"
	const user = "base_url = \"http://user:9000\"\n"

	tests := []struct {
		name        string
		system      string
		user        string
		wantBaseURL string
		wantStore   string
	}{
		{name: "user overrides system", system: system, user: user, wantBaseURL: "http://user:9000", wantStore: "sqlite"},
		{name: "system only", system: system, wantBaseURL: "http://system:8000", wantStore: "sqlite"},
		{name: "user only", user: user, wantBaseURL: "http://user:9000", wantStore: "file"},
		{name: "neither", wantBaseURL: "http://localhost:8000", wantStore: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			systemDir := filepath.Join(root, "etc")
			userDir := filepath.Join(root, "home")
			if tt.system != "" {
				writeConfig(t, systemDir, tt.system)
			}
			if tt.user != "" {
				writeConfig(t, userDir, tt.user)
			}

			v := viper.New()
			v.SetDefault("base_url", "http://localhost:8000")
			v.SetDefault("store", "file")
			readConfigFiles(v, []string{filepath.Join(root, "missing"), systemDir}, userDir)

			assert.Equal(t, tt.wantBaseURL, v.GetString("base_url"))
			assert.Equal(t, tt.wantStore, v.GetString("store"))
		})
	}
}
