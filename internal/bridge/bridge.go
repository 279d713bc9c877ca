package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/nerrad567/lantuya-core/internal/arp"
	"github.com/nerrad567/lantuya-core/internal/device"
	"github.com/nerrad567/lantuya-core/internal/discovery"
	"github.com/nerrad567/lantuya-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/lantuya-core/internal/poller"
)

// Bridge operation constants.
const (
	// commandTimeout bounds one MQTT command, including retries inside
	// the device layer.
	commandTimeout = 10 * time.Second

	// arpTimeout bounds one ARP table read during address resolution.
	arpTimeout = 5 * time.Second

	// publishQoS is the QoS level for all bridge publications.
	publishQoS = 1
)

// Availability values published to lantuya/availability/<id>.
const (
	AvailabilityOnline  = "online"
	AvailabilityAssumed = "assumed"
	AvailabilityOffline = "offline"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error

	// Unsubscribe drops a subscription made with Subscribe.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Announcer delivers discovery announcements to a callback.
// Satisfied by *discovery.Scanner.
type Announcer interface {
	AddListener(cb discovery.Callback) (func(), error)
}

// StateRecorder persists observed attribute values.
// Satisfied by *device.SQLiteStateHistory. Optional.
type StateRecorder interface {
	Record(ctx context.Context, entry device.StateHistoryEntry) error
}

// MetricsWriter records state and availability time series.
// Satisfied by *influxdb.Client. Optional.
type MetricsWriter interface {
	WriteDeviceState(deviceID string, attribute string, value float64, source string)
	WriteAvailability(deviceID string, online bool, assumed bool)
}

// Logger receives bridge tracing.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Devices is the registration list, typically from LoadDevices.
	Devices []device.DeviceData

	// Translation maps wire value ranges to generic attribute ranges.
	Translation device.Translation

	// Control performs the LAN exchanges. Required.
	Control device.ControlClient

	// Scanner delivers discovery announcements. Optional.
	Scanner Announcer

	// MQTT is the broker connection. Optional.
	MQTT MQTTClient

	// History persists observed attribute values. Optional.
	History StateRecorder

	// Metrics records state time series. Optional.
	Metrics MetricsWriter

	// ARP resolves addresses for registered MACs that discovery has not
	// announced. Optional.
	ARP *arp.Table

	// PollInterval is the gap between poll sweeps. Zero means the poller
	// default.
	PollInterval time.Duration

	// PollWorkers is the number of devices fetched concurrently. Zero
	// means the poller default.
	PollWorkers int

	// Logger is optional structured logging.
	Logger Logger
}

// Bridge owns the running device set and its MQTT surface.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	devices map[string]*device.Device

	scanner Announcer
	mqtt    MQTTClient
	history StateRecorder
	metrics MetricsWriter
	arp     *arp.Table
	topics  mqtt.Topics

	pol *poller.Poller

	// Last published snapshots, for change detection.
	lastState map[string]map[string]any
	lastAvail map[string]string
	stateMu   sync.Mutex

	// Shutdown coordination
	removeListener func()
	ctx            context.Context
	ctxCancel      context.CancelFunc
	stopOnce       sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a bridge from device registrations.
// Invalid registrations are skipped with a warning, not fatal: one bad
// entry in the devices file should not take the whole service down.
// Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Control == nil {
		return nil, fmt.Errorf("control client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		devices:   make(map[string]*device.Device),
		scanner:   opts.Scanner,
		mqtt:      opts.MQTT,
		history:   opts.History,
		metrics:   opts.Metrics,
		arp:       opts.ARP,
		lastState: make(map[string]map[string]any),
		lastAvail: make(map[string]string),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	for _, data := range opts.Devices {
		dev, err := device.New(data, opts.Translation, opts.Control)
		if err != nil {
			b.logWarn("skipping device registration",
				"id", data.ID, "name", data.Name, "error", err)
			continue
		}
		if _, dup := b.devices[dev.ID()]; dup {
			b.logWarn("duplicate device registration", "id", dev.ID())
			continue
		}
		if opts.Logger != nil {
			dev.SetLogger(opts.Logger)
		}
		b.devices[dev.ID()] = dev
	}

	pol, err := poller.New(poller.Config{
		Interval: opts.PollInterval,
		Workers:  opts.PollWorkers,
	}, b.handlePollResult)
	if err != nil {
		ctxCancel()
		return nil, fmt.Errorf("creating poller: %w", err)
	}
	if opts.Logger != nil {
		pol.SetLogger(opts.Logger)
	}
	b.pol = pol

	for _, dev := range b.devices {
		pol.Add(dev)
	}

	return b, nil
}

// Start begins bridge operation: command subscription, discovery binding,
// ARP address resolution, and the poll loop.
func (b *Bridge) Start(ctx context.Context) error {
	if b.mqtt != nil {
		topic := b.topics.AllDeviceCommands()
		if err := b.mqtt.Subscribe(topic, publishQoS, b.handleCommand); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		b.logInfo("subscribed to commands", "topic", topic)
	}

	if b.scanner != nil {
		remove, err := b.scanner.AddListener(b.handleAnnouncement)
		if err != nil {
			return fmt.Errorf("starting discovery listener: %w", err)
		}
		b.removeListener = remove
		b.logInfo("discovery listener started")
	}

	if b.arp != nil {
		go b.resolveAddresses(b.ctx)
	}

	b.pol.Start(ctx)

	b.logInfo("bridge started", "devices", len(b.devices))
	return nil
}

// Stop gracefully shuts down the bridge. The poller's worker pool is
// released, so the bridge cannot be restarted after Stop.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if b.mqtt != nil {
			// Drop the command subscription so a stopped bridge no
			// longer receives commands. Failure is harmless; the
			// broker connection is about to close anyway.
			if err := b.mqtt.Unsubscribe(b.topics.AllDeviceCommands()); err != nil {
				b.logDebug("command unsubscribe failed", "error", err)
			}
		}
		if b.removeListener != nil {
			b.removeListener()
		}
		b.pol.Stop()
		b.pol.Close()
		b.logInfo("bridge stopped")
	})
}

// Device returns the registered device with the given id, or nil.
func (b *Bridge) Device(id string) *device.Device {
	return b.devices[id]
}

// DeviceCount reports how many registrations the bridge accepted.
func (b *Bridge) DeviceCount() int {
	return len(b.devices)
}

// Sweep runs one poll pass immediately and reports how many devices
// refreshed. Useful at startup and in tests.
func (b *Bridge) Sweep(ctx context.Context) int {
	return b.pol.Sweep(ctx)
}

// handleAnnouncement processes one discovery announcement: republish it
// for external consumers and bind it to the matching device, if any.
func (b *Bridge) handleAnnouncement(result discovery.ScanResult) {
	if b.mqtt != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := b.mqtt.Publish(b.topics.Discovery(), payload, publishQoS, false); err != nil {
				b.logWarn("failed to publish discovery announcement", "error", err)
			}
		}
	}

	dev := b.devices[result.GwID]
	if dev == nil {
		b.logDebug("announcement from unregistered device",
			"id", result.GwID, "ip", result.IP)
		return
	}

	if dev.Apply(result) {
		b.logInfo("device address bound",
			"id", dev.ID(), "ip", result.IP, "version", result.Version)
		// Fetch straight away rather than waiting for the next sweep.
		go b.refreshDevice(dev)
	}
}

// refreshDevice fetches one device outside the poll schedule and publishes
// the outcome through the normal poll path.
func (b *Bridge) refreshDevice(dev *device.Device) {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()
	b.handlePollResult(dev, dev.Fetch(ctx))
}

// handlePollResult is the poller callback: publish availability and any
// state change observed by the fetch.
func (b *Bridge) handlePollResult(target poller.Target, refreshed bool) {
	dev := b.devices[target.ID()]
	if dev == nil {
		return
	}
	b.publishAvailability(dev)
	if refreshed {
		b.publishState(dev, device.SourcePoll)
	}
}

// publishAvailability publishes the device's availability when it changes.
func (b *Bridge) publishAvailability(dev *device.Device) {
	avail := AvailabilityOnline
	switch {
	case !dev.Addressable():
		avail = AvailabilityOffline
	case dev.AssumedState():
		avail = AvailabilityAssumed
	}

	b.stateMu.Lock()
	changed := b.lastAvail[dev.ID()] != avail
	if changed {
		b.lastAvail[dev.ID()] = avail
	}
	b.stateMu.Unlock()

	if !changed {
		return
	}

	if b.mqtt != nil {
		topic := b.topics.DeviceAvailability(dev.ID())
		if err := b.mqtt.Publish(topic, []byte(avail), publishQoS, true); err != nil {
			b.logWarn("failed to publish availability", "id", dev.ID(), "error", err)
		}
	}
	if b.metrics != nil {
		b.metrics.WriteAvailability(dev.ID(),
			avail != AvailabilityOffline, avail == AvailabilityAssumed)
	}
	b.logInfo("availability changed", "id", dev.ID(), "availability", avail)
}

// publishState publishes the device's full state when any attribute
// changed, and records each changed attribute in history and metrics.
func (b *Bridge) publishState(dev *device.Device, source string) {
	state := dev.State()

	b.stateMu.Lock()
	previous := b.lastState[dev.ID()]
	changed := changedAttributes(previous, state)
	if len(changed) > 0 {
		b.lastState[dev.ID()] = state
	}
	b.stateMu.Unlock()

	if len(changed) == 0 {
		return
	}

	if b.mqtt != nil {
		payload, err := json.Marshal(state)
		if err != nil {
			b.logError("failed to marshal state", err)
			return
		}
		topic := b.topics.DeviceState(dev.ID())
		if err := b.mqtt.Publish(topic, payload, publishQoS, true); err != nil {
			b.logWarn("failed to publish state", "id", dev.ID(), "error", err)
		}
	}

	for _, attr := range changed {
		value := state[attr]
		if b.history != nil {
			entry := device.StateHistoryEntry{
				DeviceID:  dev.ID(),
				Attribute: attr,
				Value:     fmt.Sprintf("%v", value),
				Source:    source,
			}
			if err := b.history.Record(b.ctx, entry); err != nil {
				b.logWarn("failed to record history",
					"id", dev.ID(), "attribute", attr, "error", err)
			}
		}
		if b.metrics != nil {
			if num, ok := numericValue(value); ok {
				b.metrics.WriteDeviceState(dev.ID(), attr, num, source)
			}
		}
	}

	b.logDebug("state published",
		"id", dev.ID(), "source", source, "changed", len(changed))
}

// handleCommand processes one MQTT command message.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	id := mqtt.DeviceIDFromTopic(topic)
	dev := b.devices[id]
	if dev == nil {
		b.logWarn("command for unregistered device", "id", id)
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	var req map[string]any
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logWarn("unparseable command payload", "id", id, "error", err)
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	cmd, err := b.buildCommand(dev, req)
	if err != nil {
		b.logWarn("rejected command", "id", id, "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := dev.Set(ctx, cmd); err != nil {
		b.logWarn("command failed", "id", id, "error", err)
		return fmt.Errorf("setting device state: %w", err)
	}

	b.publishAvailability(dev)
	b.publishState(dev, device.SourceCommand)
	return nil
}

// buildCommand translates a generic attribute request into a device
// command, validating each value's type as it goes.
func (b *Bridge) buildCommand(dev *device.Device, req map[string]any) (device.Command, error) {
	cmd := device.Command{}

	for attr, value := range req {
		var part device.Command

		switch attr {
		case device.AttrPower:
			on, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: power must be a boolean", ErrInvalidCommand)
			}
			part = dev.PowerCommand(on)

		case device.AttrBrightness:
			level, ok := value.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: brightness must be a number", ErrInvalidCommand)
			}
			part = dev.BrightnessCommand(level)

		case device.AttrColorTemp:
			temp, ok := value.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: color_temp must be a number", ErrInvalidCommand)
			}
			part = dev.ColorTempCommand(temp)

		case device.AttrColor:
			hsv, err := parseHSV(value)
			if err != nil {
				return nil, err
			}
			part = dev.ColorHSVCommand(hsv)

		case device.AttrWorkMode:
			mode, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: work_mode must be a string", ErrInvalidCommand)
			}
			part = dev.ColorModeCommand(mode)

		default:
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrInvalidCommand, attr)
		}

		for k, v := range part {
			cmd[k] = v
		}
	}

	if len(cmd) == 0 {
		return nil, fmt.Errorf("%w: no attributes", ErrInvalidCommand)
	}
	return cmd, nil
}

// parseHSV extracts an HSV triple from a decoded JSON object.
func parseHSV(value any) (device.HSV, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return device.HSV{}, fmt.Errorf("%w: color must be an object", ErrInvalidCommand)
	}
	var hsv device.HSV
	for key, dst := range map[string]*float64{"h": &hsv.H, "s": &hsv.S, "v": &hsv.V} {
		raw, present := obj[key]
		if !present {
			return device.HSV{}, fmt.Errorf("%w: color missing %q", ErrInvalidCommand, key)
		}
		num, isNum := raw.(float64)
		if !isNum {
			return device.HSV{}, fmt.Errorf("%w: color %q must be a number", ErrInvalidCommand, key)
		}
		*dst = num
	}
	return hsv, nil
}

// resolveAddresses matches registered MACs against the host's ARP table
// and binds addresses for devices discovery has not announced. Devices
// registered with a protocol version become pollable straight away.
func (b *Bridge) resolveAddresses(ctx context.Context) {
	var unresolved []*device.Device
	for _, dev := range b.devices {
		if !dev.Addressable() && dev.Data().Mac != "" {
			unresolved = append(unresolved, dev)
		}
	}
	if len(unresolved) == 0 {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, arpTimeout)
	defer cancel()

	entries, err := b.arp.Entries(lookupCtx)
	if err != nil {
		b.logWarn("arp lookup failed", "error", err)
		return
	}

	byMAC := make(map[string]string, len(entries))
	for _, e := range entries {
		byMAC[e.MAC] = e.IP
	}

	for _, dev := range unresolved {
		ip, found := byMAC[arp.NormalizeMAC(dev.Data().Mac)]
		if !found {
			continue
		}
		dev.SetIP(ip)
		b.logInfo("address resolved from arp table", "id", dev.ID(), "ip", ip)
	}
}

// changedAttributes returns the keys whose values differ between two
// state snapshots, including keys missing from the previous snapshot.
// DeepEqual because decoded JSON values are not always comparable.
func changedAttributes(previous, current map[string]any) []string {
	var changed []string
	for attr, value := range current {
		old, present := previous[attr]
		if !present || !reflect.DeepEqual(old, value) {
			changed = append(changed, attr)
		}
	}
	return changed
}

// numericValue converts a state value to a float64 for metric recording.
// Booleans become 0 or 1; strings are not recordable.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
