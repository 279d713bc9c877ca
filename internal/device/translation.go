package device

import "math"

// ValueRange is an inclusive numeric interval used for unit scaling.
type ValueRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Span returns the width of the range.
func (r ValueRange) Span() float64 { return r.Max - r.Min }

// Scale maps v from range from into range to.
//
// Identical ranges return v unchanged. The endpoints map exactly: from.Min
// yields to.Min and from.Max yields to.Max. Interior values scale linearly
// and are truncated to an integer, so repeated round trips never drift past
// an endpoint.
func Scale(v float64, from, to ValueRange) float64 {
	if from == to {
		return v
	}
	switch v {
	case from.Min:
		return to.Min
	case from.Max:
		return to.Max
	}
	factor := to.Span() / from.Span()
	return math.Trunc(to.Max - factor*(from.Max-v))
}

// Device categories as reported by the vendor registration record.
const (
	CategoryLight  = "dj"
	CategorySwitch = "cz"
)

// Work modes understood by lights.
const (
	ModeWhite  = "white"
	ModeColour = "colour"
)

// HSVRanges groups the ranges of the three colour components.
type HSVRanges struct {
	Hue        ValueRange `yaml:"hue" json:"hue"`
	Saturation ValueRange `yaml:"saturation" json:"saturation"`
	Value      ValueRange `yaml:"value" json:"value"`
}

// Translation holds the immutable unit-mapping configuration shared by all
// devices: the generic ranges exposed to callers and the protocol-native
// ranges the wire values use. Construct one with NewTranslation and treat it
// as a value; nothing mutates it after construction.
type Translation struct {
	// Generic ranges presented by getters and accepted by command builders.
	Brightness ValueRange
	ColorTemp  ValueRange
	HSV        HSVRanges

	// Protocol-native ranges carried in data-point values.
	WireBrightness ValueRange
	WireColorTemp  ValueRange
	WireHSV        HSVRanges

	// DefaultCategory is assumed when a record carries an unknown category.
	DefaultCategory string
}

// TranslationConfig selects overrides for NewTranslation. Zero-valued fields
// fall back to the defaults documented on each field.
type TranslationConfig struct {
	// Brightness is the generic brightness range. Default 0-255.
	Brightness *ValueRange `yaml:"brightness" json:"brightness,omitempty"`

	// ColorTemp is the generic colour-temperature range in mireds.
	// Default 154-370.
	ColorTemp *ValueRange `yaml:"color_temp" json:"color_temp,omitempty"`

	// HSV are the generic colour component ranges.
	// Defaults: hue 0-360, saturation 0-100, value 1-255.
	HSV *HSVRanges `yaml:"hsv" json:"hsv,omitempty"`

	// DefaultCategory is used for records with an unrecognised category.
	// Default CategoryLight.
	DefaultCategory string `yaml:"default_category" json:"default_category,omitempty"`
}

// NewTranslation builds a Translation from cfg, filling unset fields with
// defaults. The protocol-native ranges are fixed by the wire format and are
// not configurable.
func NewTranslation(cfg TranslationConfig) Translation {
	t := Translation{
		Brightness: ValueRange{Min: 0, Max: 255},
		ColorTemp:  ValueRange{Min: 154, Max: 370},
		HSV: HSVRanges{
			Hue:        ValueRange{Min: 0, Max: 360},
			Saturation: ValueRange{Min: 0, Max: 100},
			Value:      ValueRange{Min: 1, Max: 255},
		},
		WireBrightness: ValueRange{Min: 0, Max: 255},
		WireColorTemp:  ValueRange{Min: 0, Max: 255},
		WireHSV: HSVRanges{
			Hue:        ValueRange{Min: 0, Max: 360},
			Saturation: ValueRange{Min: 0, Max: 255},
			Value:      ValueRange{Min: 0, Max: 255},
		},
		DefaultCategory: CategoryLight,
	}
	if cfg.Brightness != nil {
		t.Brightness = *cfg.Brightness
	}
	if cfg.ColorTemp != nil {
		t.ColorTemp = *cfg.ColorTemp
	}
	if cfg.HSV != nil {
		t.HSV = *cfg.HSV
	}
	if cfg.DefaultCategory != "" {
		t.DefaultCategory = cfg.DefaultCategory
	}
	return t
}

// normalizeCategory maps a record category onto one this package understands.
func (t Translation) normalizeCategory(category string) string {
	switch category {
	case CategoryLight, CategorySwitch:
		return category
	default:
		return t.DefaultCategory
	}
}

// attributeForMode maps a light work mode onto the attribute it controls.
func attributeForMode(mode string) string {
	switch mode {
	case ModeColour:
		return AttrColor
	default:
		return AttrColorTemp
	}
}
