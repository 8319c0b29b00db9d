package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// Shell runs work on the fyne main goroutine.
type Shell struct{}

func (Shell) Do(fn func()) { fyne.Do(fn) }

// Options configure the main window.
type Options struct {
	Title string
	// Pen shows mode, ink and width controls when set.
	Pen Pen
}

// NewWindow lays out the toolbar, board and status bar.
func NewWindow(a fyne.App, board *BoardWidget, opts Options) fyne.Window {
	w := a.NewWindow(opts.Title)
	w.Resize(fyne.NewSize(1024, 768))

	actions := Actions{
		Save: func() {
			d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if wc != nil {
					board.SaveToFile(wc)
				}
			}, w)
			d.SetFileName("board.json")
			d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
			d.Show()
		},
		Open: func() {
			d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if rc != nil {
					board.LoadFromFile(rc)
				}
			}, w)
			d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
			d.Show()
		},
		Export: func() {
			d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if wc != nil {
					board.ExportPDF(wc)
				}
			}, w)
			d.SetFileName("board.pdf")
			d.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
			d.Show()
		},
	}

	toolbar := NewToolbar(board, opts.Pen, actions)
	w.SetContent(container.NewBorder(toolbar, board.StatusBar(), nil, nil, board))
	return w
}
