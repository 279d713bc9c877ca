package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/nerrad567/lantuya-core/internal/discovery"
	"github.com/nerrad567/lantuya-core/internal/tuya"
)

// assumedStateThreshold is the number of consecutive fetch failures after
// which reported state is no longer trusted.
const assumedStateThreshold = 3

// setAttempts bounds write retries. Only connection failures are retried;
// protocol errors surface immediately.
const setAttempts = 2

// minBrightnessWrite is the lowest wire brightness ever written; below it
// many lights flicker or shut off entirely.
const minBrightnessWrite = 25

// Mapping confidence levels reported by MappingConfidence.
const (
	ConfidenceNone       = "none"
	ConfidenceExplicit   = "explicit"
	ConfidencePositional = "positional"
)

// ControlClient is the subset of the control channel a Device needs.
type ControlClient interface {
	Status(ctx context.Context, target tuya.Target) (map[string]any, error)
	SetStatus(ctx context.Context, target tuya.Target, dps map[string]any) (map[string]any, error)
}

// Logger receives device-level tracing. Both methods take a message and
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Device couples one registration record with live state and a control
// channel.
type Device struct {
	mu   sync.Mutex
	data DeviceData

	// state holds the last known value per generic attribute name.
	state map[string]any

	// codeToName maps numeric data-point codes ("20") to attribute codes
	// ("switch_led"); nameToCode is its inverse. Populated from an explicit
	// table or derived positionally on first successful fetch.
	codeToName map[string]string
	nameToCode map[string]string
	confidence string

	failedFetches int

	translation Translation
	client      ControlClient
	logger      Logger
}

// New builds a Device from a registration record.
//
// Parameters:
//   - data: Registration record; ID and LocalKey are required
//   - translation: Immutable unit-mapping configuration
//   - client: Control channel used for fetches and writes
//
// Returns:
//   - *Device: The device, ready once an address and generation are known
//   - error: ErrInvalidDevice when identity fields are missing
func New(data DeviceData, translation Translation, client ControlClient) (*Device, error) {
	if data.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidDevice)
	}
	if data.LocalKey == "" {
		return nil, fmt.Errorf("%w: missing local_key", ErrInvalidDevice)
	}
	data.Category = translation.normalizeCategory(data.Category)

	d := &Device{
		data:        data,
		state:       make(map[string]any),
		translation: translation,
		client:      client,
		confidence:  ConfidenceNone,
	}
	if len(data.CodeToName) > 0 {
		d.adoptMapping(data.CodeToName, ConfidenceExplicit)
	}
	return d, nil
}

// SetLogger sets a logger for fetch and write tracing. If not set, the
// device is silent.
func (d *Device) SetLogger(logger Logger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.data.ID }

// Name returns the human-readable device name.
func (d *Device) Name() string { return d.data.Name }

// Category returns the normalised device category.
func (d *Device) Category() string { return d.data.Category }

// Apply binds a discovery result to this device, updating its address and
// protocol generation. Results for other devices are ignored.
func (d *Device) Apply(result discovery.ScanResult) bool {
	if result.GwID != d.data.ID {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := d.data.IP != result.IP || d.data.Version != result.Version
	d.data.IP = result.IP
	d.data.Version = result.Version
	d.data.Online = true
	if changed && d.logger != nil {
		d.logger.Debug("device address bound",
			"id", d.data.ID, "ip", result.IP, "version", result.Version)
	}
	return changed
}

// SetIP records a LAN address learned outside discovery, such as an ARP
// table match against the registered MAC. A later discovery announcement
// still overrides it via Apply.
func (d *Device) SetIP(ip string) {
	if ip == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data.IP = ip
}

// Addressable reports whether the device has an address and generation to
// exchange frames with.
func (d *Device) Addressable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data.IP != "" && tuya.Version(d.data.Version).Valid()
}

// Data returns a copy of the registration record, including any address
// bound by discovery.
func (d *Device) Data() DeviceData {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.data
	out.Attributes = append([]string(nil), d.data.Attributes...)
	if d.data.CodeToName != nil {
		out.CodeToName = make(map[string]string, len(d.data.CodeToName))
		for k, v := range d.data.CodeToName {
			out.CodeToName[k] = v
		}
	}
	return out
}

func (d *Device) target() tuya.Target {
	return tuya.Target{
		ID:       d.data.ID,
		IP:       d.data.IP,
		LocalKey: d.data.LocalKey,
		Version:  tuya.Version(d.data.Version),
	}
}

// adoptMapping installs a code mapping. Caller holds d.mu (or the device is
// not yet shared).
func (d *Device) adoptMapping(codeToName map[string]string, confidence string) {
	d.codeToName = make(map[string]string, len(codeToName))
	d.nameToCode = make(map[string]string, len(codeToName))
	for code, name := range codeToName {
		d.codeToName[code] = name
		d.nameToCode[name] = code
	}
	d.confidence = confidence
}

// deriveMappingLocked zips numerically sorted data-point codes with the
// record's ordered attribute list. This is a fallback heuristic: it holds
// only when the registration lists attributes in code order, hence the
// positional confidence level.
func (d *Device) deriveMappingLocked(dps map[string]any) {
	if len(d.data.Attributes) == 0 {
		return
	}
	codes := make([]string, 0, len(dps))
	for code := range dps {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		a, _ := strconv.Atoi(codes[i])
		b, _ := strconv.Atoi(codes[j])
		return a < b
	})
	n := len(codes)
	if len(d.data.Attributes) < n {
		n = len(d.data.Attributes)
	}
	mapping := make(map[string]string, n)
	for i := 0; i < n; i++ {
		mapping[codes[i]] = d.data.Attributes[i]
	}
	d.adoptMapping(mapping, ConfidencePositional)
}

// MappingConfidence reports how the code mapping was established:
// ConfidenceExplicit (pinned in the record), ConfidencePositional (derived
// from fetch order), or ConfidenceNone.
func (d *Device) MappingConfidence() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.confidence
}

// Fetch queries the device and replaces the known state wholesale.
//
// Connection failures increment the consecutive-failure counter feeding
// AssumedState; any success resets it. The return value reports whether
// state was refreshed.
func (d *Device) Fetch(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	dps, err := d.client.Status(ctx, d.target())
	if err != nil {
		if errors.Is(err, tuya.ErrConnection) {
			d.failedFetches++
			if d.logger != nil {
				d.logger.Debug("device fetch failed",
					"id", d.data.ID, "consecutive", d.failedFetches, "error", err)
			}
		} else if d.logger != nil {
			d.logger.Warn("device fetch rejected", "id", d.data.ID, "error", err)
		}
		return false
	}
	d.failedFetches = 0

	if d.codeToName == nil {
		d.deriveMappingLocked(dps)
	}

	state := make(map[string]any, len(dps))
	for code, raw := range dps {
		name, ok := d.codeToName[code]
		if !ok {
			if d.logger != nil {
				d.logger.Warn("unmapped data point", "id", d.data.ID, "code", code)
			}
			continue
		}
		attr, ok := attributeForCode(name)
		if !ok {
			continue
		}
		state[attr] = raw
	}
	d.state = state
	return true
}

// AssumedState reports whether reported state should no longer be trusted
// because too many consecutive fetches have failed.
func (d *Device) AssumedState() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failedFetches > assumedStateThreshold
}

// State returns a copy of the last known state keyed by generic attribute
// name, with raw wire values.
func (d *Device) State() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]any, len(d.state))
	for k, v := range d.state {
		out[k] = v
	}
	return out
}

// rawNumber coerces a state value to float64.
func rawNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Power returns the last known power state.
func (d *Device) Power() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[AttrPower]
	if !ok {
		return false, fmt.Errorf("%w: power", ErrUnsupported)
	}
	on, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: power value %v", ErrUnsupported, v)
	}
	return on, nil
}

// Brightness returns the last known brightness scaled into the generic
// range.
func (d *Device) Brightness() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[AttrBrightness]
	if !ok {
		return 0, fmt.Errorf("%w: brightness", ErrUnsupported)
	}
	n, ok := rawNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: brightness value %v", ErrUnsupported, v)
	}
	return Scale(n, d.translation.WireBrightness, d.translation.Brightness), nil
}

// ColorTemp returns the last known colour temperature scaled into the
// generic range.
func (d *Device) ColorTemp() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[AttrColorTemp]
	if !ok {
		return 0, fmt.Errorf("%w: color_temp", ErrUnsupported)
	}
	n, ok := rawNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: color_temp value %v", ErrUnsupported, v)
	}
	return Scale(n, d.translation.WireColorTemp, d.translation.ColorTemp), nil
}

// ColorHSV returns the last known colour with components scaled into the
// generic ranges.
func (d *Device) ColorHSV() (HSV, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[AttrColor]
	if !ok {
		return HSV{}, fmt.Errorf("%w: color", ErrUnsupported)
	}
	s, ok := v.(string)
	if !ok {
		return HSV{}, fmt.Errorf("%w: color value %v", ErrUnsupported, v)
	}
	wire, _, err := decodeColor(s)
	if err != nil {
		return HSV{}, err
	}
	return HSV{
		H: Scale(wire.H, d.translation.WireHSV.Hue, d.translation.HSV.Hue),
		S: Scale(wire.S, d.translation.WireHSV.Saturation, d.translation.HSV.Saturation),
		V: Scale(wire.V, d.translation.WireHSV.Value, d.translation.HSV.Value),
	}, nil
}

// WorkMode returns the last known work mode.
func (d *Device) WorkMode() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[AttrWorkMode]
	if !ok {
		return "", fmt.Errorf("%w: work_mode", ErrUnsupported)
	}
	mode, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: work_mode value %v", ErrUnsupported, v)
	}
	return mode, nil
}

// ColorModeAttribute returns the generic attribute the current work mode
// controls: AttrColor in colour mode, AttrColorTemp otherwise.
func (d *Device) ColorModeAttribute() string {
	mode, err := d.WorkMode()
	if err != nil {
		return AttrColorTemp
	}
	return attributeForMode(mode)
}

// PowerCommand builds a command toggling power.
func (d *Device) PowerCommand(on bool) Command {
	return Command{AttrPower: on}
}

// BrightnessCommand builds a command setting brightness from the generic
// range. The wire value is floored at the minimum safe brightness.
func (d *Device) BrightnessCommand(value float64) Command {
	wire := Scale(value, d.translation.Brightness, d.translation.WireBrightness)
	n := int(wire)
	if n < minBrightnessWrite {
		n = minBrightnessWrite
	}
	return Command{AttrBrightness: n}
}

// ColorTempCommand builds a command setting colour temperature from the
// generic range.
func (d *Device) ColorTempCommand(value float64) Command {
	wire := Scale(value, d.translation.ColorTemp, d.translation.WireColorTemp)
	return Command{AttrColorTemp: int(wire)}
}

// ColorHSVCommand builds a command setting colour from generic-range HSV
// components.
func (d *Device) ColorHSVCommand(c HSV) Command {
	wire := HSV{
		H: Scale(c.H, d.translation.HSV.Hue, d.translation.WireHSV.Hue),
		S: Scale(c.S, d.translation.HSV.Saturation, d.translation.WireHSV.Saturation),
		V: Scale(c.V, d.translation.HSV.Value, d.translation.WireHSV.Value),
	}
	return Command{AttrColor: encodeColor(wire)}
}

// ColorModeCommand builds a command switching the work mode.
func (d *Device) ColorModeCommand(mode string) Command {
	return Command{AttrWorkMode: mode}
}

// Set writes a command to the device.
//
// Attribute names are translated to data-point codes through the current
// mapping; without one, Set fails with ErrNotReady. Connection failures are
// retried once; on success the written values merge into the known state
// optimistically.
//
// Returns:
//   - error: ErrNotReady, ErrUnsupported (unknown attribute), ErrConnection
//     after retries, or ErrProtocol
func (d *Device) Set(ctx context.Context, cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.confidence == ConfidenceNone {
		return fmt.Errorf("%w: fetch first or pin code_to_name", ErrNotReady)
	}

	dps := make(map[string]any, len(cmd))
	for attr, value := range cmd {
		code, err := d.codeForAttrLocked(attr)
		if err != nil {
			return err
		}
		dps[code] = value
	}

	var err error
	for attempt := 1; attempt <= setAttempts; attempt++ {
		_, err = d.client.SetStatus(ctx, d.target(), dps)
		if err == nil {
			break
		}
		if !errors.Is(err, tuya.ErrConnection) || attempt == setAttempts {
			return err
		}
		if d.logger != nil {
			d.logger.Debug("device write retry",
				"id", d.data.ID, "attempt", attempt, "error", err)
		}
	}
	if err != nil {
		return err
	}

	for attr, value := range cmd {
		d.state[attr] = value
	}
	return nil
}

// codeForAttrLocked resolves a generic attribute name to the numeric
// data-point code this device uses for it. Caller holds d.mu.
func (d *Device) codeForAttrLocked(attr string) (string, error) {
	advertised := make([]string, 0, len(d.nameToCode))
	for name := range d.nameToCode {
		advertised = append(advertised, name)
	}
	name, ok := resolveCode(attr, advertised)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, attr)
	}
	return d.nameToCode[name], nil
}
