package state

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#1e1e1e", color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}},
		{"#F00", color.NRGBA{R: 0xff, A: 0xff}},
		{"#00ff0080", color.NRGBA{G: 0xff, A: 0x80}},
		{"blue", color.NRGBA{B: 0xff, A: 0xff}},
		{"#12", DefaultInk},
		{"#zzzzzz", DefaultInk},
		{"chartreuse", DefaultInk},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseColor(tc.in))
		})
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#ff8000", FormatColor(color.NRGBA{R: 0xff, G: 0x80, A: 0xff}))
	assert.Equal(t, "#1e1e1e", FormatColor(ParseColor("#1e1e1e")))
}
