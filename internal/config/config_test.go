package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notemirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Host = "127.0.0.1"
	assert.Equal(t, "127.0.0.1:9000", cfg.Session().DatagramAddr())
	assert.Equal(t, "127.0.0.1:9001", cfg.Session().ImageAddr())
}

func TestReceiverBoundsDecodedImages(t *testing.T) {
	cfg := Default()
	cfg.MaxImageDimension = 800
	cfg.MaxImageBytes = 1 << 20
	r := cfg.Receiver()
	assert.Equal(t, 1600, r.MaxEdge)
	assert.Equal(t, uint32(1<<20), r.Limits.MaxBody)
}

func TestLoadFileKeepsUnsetKeys(t *testing.T) {
	path := writeFile(t, `
port: 9100
token: abc
actuator:
  invert_y: true
  displays:
    - {x: 0, y: 0, w: 2560, h: 1440}
gesture:
  tap_timeout: 250ms
`)
	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 9001, cfg.ImagePort)
	assert.Equal(t, "abc", cfg.Token)
	assert.True(t, cfg.Actuator.InvertY)
	assert.Equal(t, 1.0, cfg.Actuator.Sensitivity)
	assert.Equal(t, []state.Rect{{W: 2560, H: 1440}}, cfg.Actuator.Displays)
	assert.Equal(t, 250*time.Millisecond, cfg.Gesture.TapTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Gesture.LongPress)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, LoadFile(&cfg, filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, LoadFile(&cfg, writeFile(t, "port: [")))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NOTEMIRROR_TOKEN", "from-env")
	t.Setenv("NOTEMIRROR_PORT", "9200")
	t.Setenv("NOTEMIRROR_SENSITIVITY", "1.5")
	t.Setenv("NOTEMIRROR_INVERT_Y", "yes")
	t.Setenv("NOTEMIRROR_IMAGE_PORT", "not-a-number")

	cfg := Default()
	ApplyEnv(&cfg)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, 1.5, cfg.Actuator.Sensitivity)
	assert.True(t, cfg.Actuator.InvertY)
	assert.Equal(t, 9001, cfg.ImagePort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port_zero", func(c *Config) { c.Port = 0 }},
		{"port_high", func(c *Config) { c.ImagePort = 70000 }},
		{"shared_tcp_port", func(c *Config) { c.ControlPort = c.ImagePort }},
		{"transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"mode", func(c *Config) { c.Mode = "paint" }},
		{"log_level", func(c *Config) { c.LogLevel = "loud" }},
		{"sensitivity", func(c *Config) { c.Actuator.Sensitivity = 0 }},
		{"rate", func(c *Config) { c.RatePerSec = -1 }},
		{"image_dimension", func(c *Config) { c.MaxImageDimension = 4 }},
		{"image_bytes", func(c *Config) { c.MaxImageBytes = 0 }},
		{"display", func(c *Config) { c.Actuator.Displays = []state.Rect{{W: 0, H: 10}} }},
		{"screen", func(c *Config) { c.ScreenHeight = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	l, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	path := writeFile(t, "token: from-file\nport: 9100\nmode: draw\n")
	t.Setenv("NOTEMIRROR_PORT", "9200")

	var got Config
	root := &cobra.Command{Use: "notemirror"}
	flags := AddFlags(root)
	sub := &cobra.Command{
		Use: "pad",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = flags.Load(cmd)
			return err
		},
	}
	root.AddCommand(sub)
	root.SetArgs([]string{"pad", "--config", path, "--token", "from-flag"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "from-flag", got.Token)
	assert.Equal(t, 9200, got.Port, "env beats file")
	assert.Equal(t, "draw", got.Mode, "unset flag keeps file value")
}

func TestFlagsLoadRejectsInvalid(t *testing.T) {
	root := &cobra.Command{Use: "notemirror", SilenceUsage: true, SilenceErrors: true}
	flags := AddFlags(root)
	root.RunE = func(cmd *cobra.Command, _ []string) error {
		_, err := flags.Load(cmd)
		return err
	}
	root.SetArgs([]string{"--transport", "smoke"})
	assert.ErrorIs(t, root.Execute(), ErrInvalid)
}
