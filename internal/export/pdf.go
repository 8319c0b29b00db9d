// Package export renders saved canvases to PDF.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// Page geometry in points. World units map one to one onto points.
const (
	PageMargin = 24.0
	MinPage    = 200.0
)

// WritePDF draws snap onto a single page sized to its content.
func WritePDF(w io.Writer, snap state.Snapshot) error {
	replica := state.NewReplica(nil)
	if err := replica.Restore(snap); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	bounds, ok := replica.Bounds()
	if !ok {
		bounds = state.Rect{W: MinPage, H: MinPage}
	}
	pageW := max(bounds.W+2*PageMargin, MinPage)
	pageH := max(bounds.H+2*PageMargin, MinPage)
	*replica.View() = state.ViewTransform{
		Offset: state.Point{X: bounds.X - (pageW-bounds.W)/2, Y: bounds.Y - (pageH-bounds.H)/2},
		Scale:  1,
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pngs := make(map[string][]byte, len(snap.Images))
	for _, si := range snap.Images {
		pngs[si.ID] = si.PNG
	}
	replica.Render(&pdfRenderer{pdf: pdf, pngs: pngs})

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return pdf.Output(w)
}

// pdfRenderer draws one replica frame onto the current page.
type pdfRenderer struct {
	pdf  *gofpdf.Fpdf
	pngs map[string][]byte
}

func (r *pdfRenderer) Image(layer state.ImageLayer, screen state.Rect) {
	body, ok := r.pngs[layer.ID]
	if !ok {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	r.pdf.RegisterImageOptionsReader(layer.ID, opts, bytes.NewReader(body))
	r.pdf.ImageOptions(layer.ID, screen.X, screen.Y, screen.W, screen.H, false, opts, 0, "")
}

func (r *pdfRenderer) Stroke(points []state.Point, ink string, width float64) {
	c := state.ParseColor(ink)
	r.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	r.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	r.pdf.SetAlpha(float64(c.A)/255, "Normal")
	defer r.pdf.SetAlpha(1, "Normal")

	if len(points) == 1 {
		r.pdf.Circle(points[0].X, points[0].Y, width/2, "F")
		return
	}
	r.pdf.SetLineWidth(width)
	r.pdf.SetLineCapStyle("round")
	r.pdf.SetLineJoinStyle("round")
	for i := 1; i < len(points); i++ {
		r.pdf.Line(points[i-1].X, points[i-1].Y, points[i].X, points[i].Y)
	}
}

// Viewport outlines are screen furniture and are not exported.
func (r *pdfRenderer) Viewport(state.Rect) {}
