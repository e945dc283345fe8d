package mqtt

import "fmt"

// Topic prefixes for the Leafcore MQTT hierarchy.
//
//	leafcore/system/status          retained online/offline status (LWT)
//	leafcore/telemetry              periodic sensor payloads
//	leafcore/state/{channel}        retained actuator state per channel
//	leafcore/command/{channel}      inbound actuator commands
//	leafcore/command/watering       inbound watering trigger
//	leafcore/command/mode           inbound manual mode switch
const (
	TopicPrefix        = "leafcore"
	TopicPrefixSystem  = "leafcore/system"
	TopicPrefixState   = "leafcore/state"
	TopicPrefixCommand = "leafcore/command"
)

// Topics provides builders for Leafcore MQTT topics. Using these
// helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Telemetry returns the sensor telemetry topic.
func (Topics) Telemetry() string {
	return TopicPrefix + "/telemetry"
}

// State returns the retained state topic for one actuator channel.
//
// Example: leafcore/state/fan
func (Topics) State(channel string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixState, channel)
}

// CommandWildcard returns the subscription filter covering all inbound
// commands.
func (Topics) CommandWildcard() string {
	return TopicPrefixCommand + "/+"
}

// Command returns the command topic for one target.
//
// Example: leafcore/command/heater
func (Topics) Command(target string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, target)
}
