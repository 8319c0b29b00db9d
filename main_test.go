package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/touch"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"host", "pad", "send-image", "probe", "export", "devices"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestImageTarget(t *testing.T) {
	base := protocol.Session{Host: "10.0.0.2", Port: 9000, ImagePort: 9001, Token: "k"}

	got, err := imageTarget(base, "10.0.0.7:9101")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", got.Host)
	assert.Equal(t, 9101, got.ImagePort)
	assert.Equal(t, "k", got.Token)
	assert.Equal(t, "10.0.0.2", base.Host)

	_, err = imageTarget(base, "10.0.0.7")
	assert.Error(t, err)
	_, err = imageTarget(base, "10.0.0.7:0")
	assert.Error(t, err)
}

func TestPrintDevices(t *testing.T) {
	devs := []touch.DeviceInfo{
		{Name: "sec_touchscreen", Handlers: []string{"event2"}},
		{Name: "sec_e-pen", Handlers: []string{"event3"}},
		{Name: "gpio_keys", Handlers: []string{"kbd", "event0"}},
		{Name: "no node", Handlers: []string{"kbd"}},
	}
	var buf bytes.Buffer
	require.NoError(t, printDevices(&buf, devs))
	out := buf.String()
	assert.Regexp(t, `/dev/input/event2\s+sec_touchscreen\s+touch`, out)
	assert.Regexp(t, `/dev/input/event3\s+sec_e-pen\s+pen`, out)
	assert.Contains(t, out, "/dev/input/event0")
	assert.NotContains(t, out, "no node")
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	replica := state.NewReplica(nil)
	replica.Apply(protocol.DrawBegin{ID: "s", At: state.Point{X: 0, Y: 0}, Color: "#000", Width: 3})
	replica.Apply(protocol.DrawEnd{ID: "s", At: state.Point{X: 50, Y: 40}})
	snap, err := replica.Snapshot()
	require.NoError(t, err)

	src := filepath.Join(dir, "board.json")
	f, err := os.Create(src)
	require.NoError(t, err)
	require.NoError(t, state.WriteSnapshot(f, snap))
	require.NoError(t, f.Close())

	dst := filepath.Join(dir, "board.pdf")
	require.NoError(t, exportFile(src, dst))
	pdf, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	assert.Error(t, exportFile(filepath.Join(dir, "missing.json"), dst))
}
