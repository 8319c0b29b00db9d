package gesture

import "time"

// Config holds the timing and distance thresholds. Distances are screen
// pixels.
type Config struct {
	TapTimeout     time.Duration `yaml:"tap_timeout"`
	LongPress      time.Duration `yaml:"long_press"`
	TouchSlop      float64       `yaml:"touch_slop"`
	RightClickSlop float64       `yaml:"right_click_slop"`
	ScrollStep     float64       `yaml:"scroll_step"`
	JitterPx       float64       `yaml:"jitter_px"`
	EraserRadius   float64       `yaml:"eraser_radius"`
	StrokeColor    string        `yaml:"stroke_color"`
	StrokeWidth    float64       `yaml:"stroke_width"`
}

// DefaultConfig returns thresholds tuned for a phone-sized panel.
func DefaultConfig() Config {
	return Config{
		TapTimeout:     300 * time.Millisecond,
		LongPress:      500 * time.Millisecond,
		TouchSlop:      12,
		RightClickSlop: 12,
		ScrollStep:     24,
		JitterPx:       0.5,
		EraserRadius:   20,
		StrokeColor:    "#1e1e1e",
		StrokeWidth:    3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TapTimeout <= 0 {
		c.TapTimeout = d.TapTimeout
	}
	if c.LongPress <= 0 {
		c.LongPress = d.LongPress
	}
	if c.TouchSlop <= 0 {
		c.TouchSlop = d.TouchSlop
	}
	if c.RightClickSlop <= 0 {
		c.RightClickSlop = d.RightClickSlop
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = d.ScrollStep
	}
	if c.JitterPx < 0 {
		c.JitterPx = 0
	}
	if c.EraserRadius <= 0 {
		c.EraserRadius = d.EraserRadius
	}
	if c.StrokeColor == "" {
		c.StrokeColor = d.StrokeColor
	}
	if c.StrokeWidth <= 0 {
		c.StrokeWidth = d.StrokeWidth
	}
	return c
}
