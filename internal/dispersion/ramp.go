package dispersion

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Ramp is a three-anchor colour scale.
type Ramp struct {
	// Low is the colour at strength 0
	Low string
	// Mid is the warning colour at strength 0.5
	Mid string
	// High is the alarm colour at strength 1
	High string
}

// DefaultRamp runs green to amber to red, matching the station point bands.
var DefaultRamp = Ramp{
	Low:  "#22c55e",
	Mid:  "#fbbf24",
	High: "#f87171",
}

// Shade is the visual ramp value for one strength.
type Shade struct {
	Color   color.RGBA `json:"-"`
	Hex     string     `json:"color"`
	Opacity float64    `json:"opacity"`
}

// ColorFor interpolates along the ramp. Strength is clamped to [0,1].
// The lower half blends Low to Mid and the upper half Mid to High.
func (r Ramp) ColorFor(strength float64) (Shade, error) {
	if math.IsNaN(strength) {
		strength = 0
	}
	s := math.Max(0, math.Min(1, strength))

	low, err := parseHex(r.Low)
	if err != nil {
		return Shade{}, err
	}
	mid, err := parseHex(r.Mid)
	if err != nil {
		return Shade{}, err
	}
	high, err := parseHex(r.High)
	if err != nil {
		return Shade{}, err
	}

	var c color.RGBA
	if s <= 0.5 {
		c = lerp(low, mid, s/0.5)
	} else {
		c = lerp(mid, high, (s-0.5)/0.5)
	}
	return Shade{
		Color:   c,
		Hex:     fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B),
		Opacity: 0.25 + 0.55*s,
	}, nil
}

// ColorFor uses DefaultRamp.
func ColorFor(strength float64) Shade {
	sh, _ := DefaultRamp.ColorFor(strength)
	return sh
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func parseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
