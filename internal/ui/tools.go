package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/gesture"
	"github.com/andrewtliem/galaxy-note9-mac-mirror/internal/state"
)

// Pen is the drawing tool the toolbar configures.
type Pen interface {
	SetPen(color string, width float64)
	SetMode(m gesture.Mode)
	Mode() gesture.Mode
}

// Palette is the set of inks offered as swatches.
var Palette = []string{"#1e1e1e", "#e53935", "#43a047", "#1e88e5", "#fdd835"}

type colorSwatch struct {
	widget.BaseWidget
	Ink      string
	OnTapped func(ink string)
}

func newColorSwatch(ink string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Ink: ink, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(state.ParseColor(s.Ink))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Ink)
	}
}

// Actions are the file operations the toolbar offers. Nil entries are hidden.
type Actions struct {
	Save   func()
	Open   func()
	Export func()
}

// NewToolbar builds the tool row. pen may be nil when the board only mirrors.
func NewToolbar(board *BoardWidget, pen Pen, actions Actions) fyne.CanvasObject {
	items := []widget.ToolbarItem{
		widget.NewToolbarAction(theme.ContentUndoIcon(), board.Undo),
		widget.NewToolbarAction(theme.ContentClearIcon(), board.ClearStrokes),
		widget.NewToolbarAction(theme.ZoomFitIcon(), board.Fit),
	}
	if actions.Save != nil || actions.Open != nil || actions.Export != nil {
		items = append(items, widget.NewToolbarSeparator())
	}
	if actions.Save != nil {
		items = append(items, widget.NewToolbarAction(theme.DocumentSaveIcon(), actions.Save))
	}
	if actions.Open != nil {
		items = append(items, widget.NewToolbarAction(theme.FolderOpenIcon(), actions.Open))
	}
	if actions.Export != nil {
		items = append(items, widget.NewToolbarAction(theme.DocumentPrintIcon(), actions.Export))
	}
	row := []fyne.CanvasObject{widget.NewToolbar(items...)}

	if pen != nil {
		mode := widget.NewRadioGroup([]string{gesture.ModePointer.String(), gesture.ModeDraw.String()}, func(s string) {
			if m, err := gesture.ParseMode(s); err == nil {
				pen.SetMode(m)
			}
		})
		mode.Horizontal = true
		mode.SetSelected(pen.Mode().String())

		swatches := container.NewHBox()
		for _, ink := range Palette {
			swatches.Add(newColorSwatch(ink, func(ink string) { pen.SetPen(ink, 0) }))
		}

		width := widget.NewSlider(1, 20)
		width.SetValue(gesture.DefaultConfig().StrokeWidth)
		width.OnChanged = func(v float64) { pen.SetPen("", v) }
		sized := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), width)

		row = append(row,
			widget.NewSeparator(),
			widget.NewLabel("Mode:"), mode,
			widget.NewSeparator(),
			widget.NewLabel("Ink:"), swatches,
			widget.NewLabel("Width:"), sized,
		)
	}
	row = append(row, layout.NewSpacer())
	return container.NewHBox(row...)
}
