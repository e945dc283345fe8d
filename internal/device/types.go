package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Channel identifies one actuator channel. The channel set is closed:
// every channel the controller can drive is listed below, and each has
// an entry in the channel table mapping it to its kind and accessors.
type Channel string

const (
	ChannelFan       Channel = "fan"
	ChannelLight     Channel = "light"
	ChannelHeater    Channel = "heater"
	ChannelPump      Channel = "pump"
	ChannelSprinkler Channel = "sprinkler"
)

// ChannelKind distinguishes on/off channels from continuous ones.
type ChannelKind string

const (
	// KindSwitch is a binary channel. Valid values are 0 and 1.
	KindSwitch ChannelKind = "switch"

	// KindLevel is a continuous channel. Valid values are in [0, 1].
	KindLevel ChannelKind = "level"
)

// Value is a normalised channel value. Switch channels carry 0 or 1,
// level channels any value in [0, 1].
type Value float64

// Bool reports whether the value represents "on" for a switch channel.
func (v Value) Bool() bool {
	return v > 0
}

// ActuatorState is the commanded state of every channel.
// It is a plain value type so snapshots can be copied and compared freely.
type ActuatorState struct {
	Fan       bool    `json:"fan"`
	Heater    bool    `json:"heater"`
	Pump      bool    `json:"pump"`
	Sprinkler bool    `json:"sprinkler"`
	Light     float64 `json:"light"`
}

// channelSpec binds a channel to its kind and its state accessors.
// All channel dispatch in the package goes through this table; there is
// no string-switch duplication elsewhere.
type channelSpec struct {
	kind  ChannelKind
	get   func(ActuatorState) Value
	set   func(*ActuatorState, Value)
	apply func(Capability, Value) error
}

var channelTable = map[Channel]channelSpec{
	ChannelFan: {
		kind:  KindSwitch,
		get:   func(s ActuatorState) Value { return boolValue(s.Fan) },
		set:   func(s *ActuatorState, v Value) { s.Fan = v.Bool() },
		apply: func(c Capability, v Value) error { return c.SetFan(v.Bool()) },
	},
	ChannelHeater: {
		kind:  KindSwitch,
		get:   func(s ActuatorState) Value { return boolValue(s.Heater) },
		set:   func(s *ActuatorState, v Value) { s.Heater = v.Bool() },
		apply: func(c Capability, v Value) error { return c.SetHeater(v.Bool()) },
	},
	ChannelPump: {
		kind:  KindSwitch,
		get:   func(s ActuatorState) Value { return boolValue(s.Pump) },
		set:   func(s *ActuatorState, v Value) { s.Pump = v.Bool() },
		apply: func(c Capability, v Value) error { return c.SetPump(v.Bool()) },
	},
	ChannelSprinkler: {
		kind:  KindSwitch,
		get:   func(s ActuatorState) Value { return boolValue(s.Sprinkler) },
		set:   func(s *ActuatorState, v Value) { s.Sprinkler = v.Bool() },
		apply: func(c Capability, v Value) error { return c.SetSprinkler(v.Bool()) },
	},
	ChannelLight: {
		kind:  KindLevel,
		get:   func(s ActuatorState) Value { return Value(s.Light) },
		set:   func(s *ActuatorState, v Value) { s.Light = float64(v) },
		apply: func(c Capability, v Value) error { return c.SetLight(float64(v)) },
	},
}

// channelOrder fixes the iteration order for diffs and snapshots so that
// logs and histories are deterministic.
var channelOrder = []Channel{
	ChannelFan,
	ChannelHeater,
	ChannelPump,
	ChannelSprinkler,
	ChannelLight,
}

func boolValue(on bool) Value {
	if on {
		return 1
	}
	return 0
}

// Channels returns all known channels in a fixed order.
func Channels() []Channel {
	out := make([]Channel, len(channelOrder))
	copy(out, channelOrder)
	return out
}

// ParseChannel validates a channel name from an external source
// (API path segment, MQTT topic).
//
// Parameters:
//   - name: Channel name, case-insensitive
//
// Returns:
//   - Channel: The validated channel
//   - error: ErrUnknownChannel if the name is not in the channel set
func ParseChannel(name string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := channelTable[ch]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// Kind returns the channel's kind. Unknown channels report KindSwitch;
// callers are expected to have validated the channel first.
func (ch Channel) Kind() ChannelKind {
	if spec, ok := channelTable[ch]; ok {
		return spec.kind
	}
	return KindSwitch
}

// ParseValue converts an external value (JSON field, MQTT payload) into
// a validated Value for the channel.
//
// Switch channels accept booleans, 0/1 numbers, and the strings
// "on"/"off"/"true"/"false"/"0"/"1". Level channels accept numbers in
// [0, 1].
//
// Parameters:
//   - ch: Target channel (must be valid)
//   - raw: External value from a decoded payload
//
// Returns:
//   - Value: Normalised value
//   - error: ErrInvalidValue if the value does not fit the channel kind
func ParseValue(ch Channel, raw any) (Value, error) {
	spec, ok := channelTable[ch]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	var f float64
	switch v := raw.(type) {
	case bool:
		if v {
			f = 1
		}
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "true", "1":
			f = 1
		case "off", "false", "0":
			f = 0
		default:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: channel %s: %q", ErrInvalidValue, ch, v)
			}
			f = parsed
		}
	default:
		return 0, fmt.Errorf("%w: channel %s: unsupported type %T", ErrInvalidValue, ch, raw)
	}

	switch spec.kind {
	case KindSwitch:
		if f != 0 && f != 1 {
			return 0, fmt.Errorf("%w: channel %s: switch value must be 0 or 1, got %v", ErrInvalidValue, ch, f)
		}
	case KindLevel:
		if f < 0 || f > 1 {
			return 0, fmt.Errorf("%w: channel %s: level must be within [0, 1], got %v", ErrInvalidValue, ch, f)
		}
	}

	return Value(f), nil
}

// Get returns the value of one channel from a state snapshot.
func (s ActuatorState) Get(ch Channel) (Value, error) {
	spec, ok := channelTable[ch]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return spec.get(s), nil
}

// With returns a copy of the state with one channel set to the given value.
func (s ActuatorState) With(ch Channel, v Value) (ActuatorState, error) {
	spec, ok := channelTable[ch]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	out := s
	spec.set(&out, v)
	return out, nil
}

// Transition is one recorded channel change, kept as an audit trail.
type Transition struct {
	ID         string    `json:"id"`
	Channel    Channel   `json:"channel"`
	Value      float64   `json:"value"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Mutation sources recorded against transitions.
const (
	SourceAutomation = "automation"
	SourceManual     = "manual"
	SourceWatering   = "watering"
	SourceMQTT       = "mqtt"
	SourceStartup    = "startup"
)
