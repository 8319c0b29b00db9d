package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/protocol"

	// Registered so snapshots written by other builds still load.
	_ "image/gif"
	_ "image/jpeg"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

var ErrSnapshotVersion = errors.New("state: unsupported snapshot version")

// Snapshot is the persisted form of a replica's content. The view is saved
// too so a reload opens where the user left off.
type Snapshot struct {
	Version int             `json:"version"`
	Strokes []Stroke        `json:"strokes"`
	Images  []SnapshotImage `json:"images"`
	View    ViewTransform   `json:"view"`
}

// SnapshotImage is an ImageLayer with its pixels PNG-encoded.
type SnapshotImage struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	PNG    []byte  `json:"png"`
}

// Snapshot captures the current content.
func (r *Replica) Snapshot() (Snapshot, error) {
	snap := Snapshot{Version: SnapshotVersion, Strokes: r.Strokes(), View: r.view}
	for _, l := range r.Images() {
		var buf bytes.Buffer
		if err := png.Encode(&buf, l.Image); err != nil {
			return Snapshot{}, fmt.Errorf("encode image %s: %w", l.ID, err)
		}
		snap.Images = append(snap.Images, SnapshotImage{
			ID: l.ID, X: l.Position.X, Y: l.Position.Y,
			Width: l.Width, Height: l.Height, PNG: buf.Bytes(),
		})
	}
	return snap, nil
}

// Layers decodes the snapshot's images.
func (s Snapshot) Layers() ([]ImageLayer, error) {
	out := make([]ImageLayer, 0, len(s.Images))
	for _, si := range s.Images {
		img, _, err := image.Decode(bytes.NewReader(si.PNG))
		if err != nil {
			return nil, fmt.Errorf("decode image %s: %w", si.ID, err)
		}
		out = append(out, ImageLayer{
			ID: si.ID, Image: img, Position: Point{X: si.X, Y: si.Y},
			Width: si.Width, Height: si.Height,
		})
	}
	return out, nil
}

// Restore replaces the replica's content with snap. Ids that were live before
// the restore stay retired.
func (r *Replica) Restore(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	layers, err := snap.Layers()
	if err != nil {
		return err
	}

	for _, s := range r.strokes {
		r.retire(s)
	}
	r.strokes = r.strokes[:0]
	r.images = make(map[string]*ImageLayer, len(layers))
	r.imageOrder = r.imageOrder[:0]

	for _, s := range snap.Strokes {
		if s.ID == "" || len(s.Points) == 0 {
			continue
		}
		if _, dup := r.byID[s.ID]; dup {
			continue
		}
		delete(r.retired, s.ID)
		cp := s.clone()
		r.strokes = append(r.strokes, &cp)
		r.byID[cp.ID] = &cp
	}
	for _, l := range layers {
		r.PlaceImage(l)
	}
	r.view = snap.View
	r.view.Scale = ClampScale(r.view.Scale)
	r.log.Info("snapshot restored", "strokes", len(r.strokes), "images", len(r.imageOrder))
	return nil
}

// WriteSnapshot encodes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(rd io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(rd).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	return snap, nil
}

// Replay returns the draw events that rebuild the snapshot's strokes on a
// peer replica. Images are not included; they travel on the image channel.
func (s Snapshot) Replay() []protocol.Message {
	var out []protocol.Message
	for _, st := range s.Strokes {
		if st.ID == "" || len(st.Points) == 0 {
			continue
		}
		out = append(out, protocol.DrawBegin{ID: st.ID, At: st.Points[0], Color: st.Color, Width: st.Width})
		for _, p := range st.Points[1:] {
			out = append(out, protocol.DrawMove{ID: st.ID, At: p})
		}
		out = append(out, protocol.DrawEnd{ID: st.ID, At: st.Points[len(st.Points)-1]})
	}
	return out
}

// Reissue returns a copy whose strokes carry new ids. A reloaded file is
// reissued before replay because the peer may already have retired the
// saved ids.
func (s Snapshot) Reissue() Snapshot {
	out := s
	out.Strokes = make([]Stroke, len(s.Strokes))
	for i := range s.Strokes {
		c := s.Strokes[i].clone()
		c.ID = NewStrokeID()
		out.Strokes[i] = c
	}
	return out
}
