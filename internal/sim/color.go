package sim

import "math"

// RGB is an 8-bit color as handed to the renderer.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLToRGB converts hue (0-360), saturation (0-100) and lightness
// (0-100) to 8-bit RGB.
func HSLToRGB(h, s, l float64) RGB {
	h = math.Mod(math.Mod(h, 360)+360, 360)
	s /= 100
	l /= 100

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return RGB{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
	}
}

// floatSource yields uniform floats in [0,1). Satisfied by *rand.Rand
// and by the entropy sources.
type floatSource interface {
	Float64() float64
}

// impactColor draws a fresh color for a particle that just bounced off
// the box wall. Hue is unrestricted; saturation and lightness stay in
// a band that keeps the particle readable against the dark backdrop.
func impactColor(rng floatSource) RGB {
	h := rng.Float64() * 360
	s := 50 + rng.Float64()*50
	l := 30 + rng.Float64()*60
	return HSLToRGB(h, s, l)
}
