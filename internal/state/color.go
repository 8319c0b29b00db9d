package state

import (
	"image/color"
	"strconv"
	"strings"
)

// DefaultInk is used for colours that do not parse.
var DefaultInk = color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}

var namedInk = map[string]color.NRGBA{
	"black": {A: 0xff},
	"white": {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"red":   {R: 0xff, A: 0xff},
	"green": {G: 0xff, A: 0xff},
	"blue":  {B: 0xff, A: 0xff},
}

// ParseColor reads "#rgb", "#rrggbb", "#rrggbbaa" or a basic colour name.
func ParseColor(s string) color.NRGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedInk[s]; ok {
		return c
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return DefaultInk
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return DefaultInk
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return DefaultInk
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// FormatColor writes c as "#rrggbb", dropping alpha.
func FormatColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	const digits = "0123456789abcdef"
	return string([]byte{'#',
		digits[n.R>>4], digits[n.R&0xf],
		digits[n.G>>4], digits[n.G&0xf],
		digits[n.B>>4], digits[n.B&0xf],
	})
}
