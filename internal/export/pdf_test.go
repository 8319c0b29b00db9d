package export

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

func sampleSnapshot(t *testing.T) state.Snapshot {
	t.Helper()
	r := state.NewReplica(nil)
	r.Apply(protocol.DrawBegin{ID: "s1", At: state.Point{X: 10, Y: 10}, Color: "#e53935", Width: 3})
	r.Apply(protocol.DrawMove{ID: "s1", At: state.Point{X: 120, Y: 80}})
	r.Apply(protocol.DrawEnd{ID: "s1", At: state.Point{X: 300, Y: 40}})
	r.Apply(protocol.DrawBegin{ID: "dot", At: state.Point{X: 50, Y: 200}, Color: "#00000080", Width: 6})
	r.Apply(protocol.DrawEnd{ID: "dot", At: state.Point{X: 50, Y: 200}})

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.NRGBA{R: 0xff, A: 0xff})
	r.PlaceImage(state.ImageLayer{ID: "img", Image: img, Position: state.Point{X: -40, Y: 60}, Width: 64, Height: 64})

	snap, err := r.Snapshot()
	require.NoError(t, err)
	return snap
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, sampleSnapshot(t)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.True(t, mimetype.Detect(buf.Bytes()).Is("application/pdf"))
}

func TestWritePDFEmptyCanvas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, state.Snapshot{Version: state.SnapshotVersion}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	err := WritePDF(&buf, state.Snapshot{Version: 99})
	assert.ErrorIs(t, err, state.ErrSnapshotVersion)
	assert.Zero(t, buf.Len())
}
