package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/infrastructure/mqtt"
)

// commandTimeout bounds the actuator write triggered by an MQTT command.
const commandTimeout = 5 * time.Second

// Command targets that are not actuator channels.
const (
	commandTargetMode     = "mode"
	commandTargetWatering = "watering"
)

// CommandSubscriber is the slice of the MQTT client the bridge needs.
type CommandSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// CommandBridge routes MQTT commands into the control surface.
//
// Commands arrive on leafcore/command/{target}, where target is an
// actuator channel name, "mode", or "watering". Channel payloads are a
// bare JSON value (true, 0.6, "off") or an object with a "value" key.
type CommandBridge struct {
	surface *Surface
	qos     byte
	logger  *logging.Logger
}

// NewCommandBridge creates the bridge. Subscriptions are registered
// with Start.
func NewCommandBridge(surface *Surface, qos byte, logger *logging.Logger) *CommandBridge {
	return &CommandBridge{
		surface: surface,
		qos:     qos,
		logger:  logger.With("component", "commands"),
	}
}

// Start subscribes to the command topic tree.
func (b *CommandBridge) Start(sub CommandSubscriber) error {
	topic := mqtt.Topics{}.CommandWildcard()
	if err := sub.Subscribe(topic, b.qos, b.HandleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	b.logger.Info("command bridge subscribed", "topic", topic)
	return nil
}

// HandleCommand processes one command message. Exposed as the MQTT
// message handler; errors are returned so the client logs them with
// topic context.
func (b *CommandBridge) HandleCommand(topic string, payload []byte) error {
	target := topic[strings.LastIndex(topic, "/")+1:]
	if target == "" || target == "+" {
		return fmt.Errorf("malformed command topic %q", topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch target {
	case commandTargetMode:
		return b.handleMode(payload)
	case commandTargetWatering:
		return b.surface.TriggerWatering(ctx)
	default:
		return b.handleChannel(ctx, target, payload)
	}
}

// handleChannel applies a channel command as a manual override.
func (b *CommandBridge) handleChannel(ctx context.Context, channel string, payload []byte) error {
	value, err := decodeCommandValue(payload)
	if err != nil {
		return fmt.Errorf("channel %s: %w", channel, err)
	}
	return b.surface.SetOverride(ctx, channel, value)
}

// handleMode flips manual mode. Accepts a bare boolean or an object
// with a manual_mode key.
func (b *CommandBridge) handleMode(payload []byte) error {
	var enabled bool
	if err := json.Unmarshal(payload, &enabled); err == nil {
		return b.surface.SetManualMode(enabled)
	}

	var body struct {
		ManualMode *bool `json:"manual_mode"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.ManualMode == nil {
		return fmt.Errorf("mode command requires a boolean payload")
	}
	return b.surface.SetManualMode(*body.ManualMode)
}

// decodeCommandValue extracts the command value from a bare JSON value
// or a {"value": ...} object. A JSON null clears the override.
func decodeCommandValue(payload []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		// Not JSON; treat the raw bytes as a string command ("on", "off")
		return strings.TrimSpace(string(payload)), nil
	}

	if obj, ok := raw.(map[string]any); ok {
		value, present := obj["value"]
		if !present {
			return nil, fmt.Errorf("command object missing value key")
		}
		return value, nil
	}
	return raw, nil
}
