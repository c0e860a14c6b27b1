// Package color derives deterministic accent colors for profiles.
package color

import (
	"fmt"
	"hash/fnv"
)

// Banner saturation and lightness are fixed so every generated color
// stays readable behind light text; only the hue varies per user.
const (
	bannerSaturation = 0.40
	bannerLightness  = 0.65
)

// ForUser returns the default banner color for a user as a #RRGGBB hex
// string. The mapping is stable: the same user ID always yields the
// same color.
func ForUser(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, bannerSaturation, bannerLightness)
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

// hslToRGB converts h in [0,360) and s, l in [0,1] to 8-bit RGB.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	h /= 360.0

	if s == 0 {
		gray := uint8(l * 255)
		return gray, gray, gray
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = uint8(hueToChannel(p, q, h+1.0/3.0) * 255)
	g = uint8(hueToChannel(p, q, h) * 255)
	b = uint8(hueToChannel(p, q, h-1.0/3.0) * 255)
	return r, g, b
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
