package device

import (
	"sort"
	"strings"
)

// Generic attribute names exposed by the device model.
const (
	AttrPower      = "power"
	AttrBrightness = "brightness"
	AttrColor      = "color"
	AttrColorTemp  = "color_temp"
	AttrWorkMode   = "work_mode"
)

// capabilityCodes lists, per generic attribute, the vendor data-point codes
// that can serve it across protocol generations.
var capabilityCodes = map[string][]string{
	AttrPower:      {"switch_led", "switch_1"},
	AttrBrightness: {"bright_value", "bright_value_v2"},
	AttrColor:      {"colour_data", "colour_data_v2"},
	AttrColorTemp:  {"temp_value", "temp_value_v2"},
	AttrWorkMode:   {"work_mode"},
}

// resolveCode picks the code serving attr from the codes a device actually
// advertises. Newer "_v2" codes win over their plain counterparts; remaining
// ties break lexicographically so the choice is stable across runs.
func resolveCode(attr string, advertised []string) (string, bool) {
	candidates := capabilityCodes[attr]
	if len(candidates) == 0 {
		return "", false
	}
	present := make([]string, 0, len(candidates))
	for _, c := range candidates {
		for _, a := range advertised {
			if a == c {
				present = append(present, c)
				break
			}
		}
	}
	if len(present) == 0 {
		return "", false
	}
	sort.Slice(present, func(i, j int) bool {
		vi := strings.HasSuffix(present[i], "_v2")
		vj := strings.HasSuffix(present[j], "_v2")
		if vi != vj {
			return vi
		}
		return present[i] < present[j]
	})
	return present[0], true
}

// attributeForCode reverses capabilityCodes: which generic attribute a raw
// code belongs to.
func attributeForCode(code string) (string, bool) {
	for attr, codes := range capabilityCodes {
		for _, c := range codes {
			if c == code {
				return attr, true
			}
		}
	}
	return "", false
}
