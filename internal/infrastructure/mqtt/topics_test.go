package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"system status", topics.SystemStatus(), "leafcore/system/status"},
		{"telemetry", topics.Telemetry(), "leafcore/telemetry"},
		{"state", topics.State("fan"), "leafcore/state/fan"},
		{"command", topics.Command("heater"), "leafcore/command/heater"},
		{"command wildcard", topics.CommandWildcard(), "leafcore/command/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}
