package device

import (
	"fmt"
	"math"
	"strconv"
)

// hsvHexLength is the length of the packed colour-string wire format:
// 6 hex digits of RGB, one reserved nibble, 3 of hue, 2 of saturation,
// 2 of value.
const hsvHexLength = 14

// HSV is a colour in wire-native component ranges.
type HSV struct {
	H float64
	S float64
	V float64
}

// RGB is a colour with 8-bit components.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// decodeColor unpacks the 14-character colour string a light reports. The
// HSV fields are authoritative; the leading RGB digits are advisory and
// returned for completeness.
func decodeColor(s string) (HSV, RGB, error) {
	if len(s) != hsvHexLength {
		return HSV{}, RGB{}, fmt.Errorf("%w: colour string length %d", ErrUnsupported, len(s))
	}
	rgb, err := strconv.ParseUint(s[0:6], 16, 32)
	if err != nil {
		return HSV{}, RGB{}, fmt.Errorf("%w: colour string %q", ErrUnsupported, s)
	}
	h, err := strconv.ParseUint(s[7:10], 16, 16)
	if err != nil {
		return HSV{}, RGB{}, fmt.Errorf("%w: colour string %q", ErrUnsupported, s)
	}
	sat, err := strconv.ParseUint(s[10:12], 16, 16)
	if err != nil {
		return HSV{}, RGB{}, fmt.Errorf("%w: colour string %q", ErrUnsupported, s)
	}
	v, err := strconv.ParseUint(s[12:14], 16, 16)
	if err != nil {
		return HSV{}, RGB{}, fmt.Errorf("%w: colour string %q", ErrUnsupported, s)
	}
	return HSV{H: float64(h), S: float64(sat), V: float64(v)},
		RGB{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb)},
		nil
}

// encodeColor packs wire-native HSV components into the 14-character colour
// string, deriving the leading RGB digits from the HSV value.
func encodeColor(c HSV) string {
	rgb := hsvToRGB(c)
	return fmt.Sprintf("%02x%02x%02x0%03x%02x%02x",
		rgb.R, rgb.G, rgb.B,
		int(math.Round(c.H))&0xfff,
		int(math.Round(c.S))&0xff,
		int(math.Round(c.V))&0xff)
}

// hsvToRGB converts wire-native HSV (hue 0-360, saturation and value 0-255)
// to 8-bit RGB.
func hsvToRGB(c HSV) RGB {
	h := math.Mod(c.H, 360) / 60
	s := c.S / 255
	v := c.V / 255

	i := int(math.Floor(h)) % 6
	f := h - math.Floor(h)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return RGB{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
	}
}
