package device

import (
	"errors"
	"testing"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Channel
		wantErr bool
	}{
		{"fan", "fan", ChannelFan, false},
		{"uppercase", "HEATER", ChannelHeater, false},
		{"whitespace", " pump ", ChannelPump, false},
		{"sprinkler", "sprinkler", ChannelSprinkler, false},
		{"light", "light", ChannelLight, false},
		{"unknown", "humidifier", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannel(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownChannel) {
					t.Errorf("ParseChannel(%q) error = %v, want ErrUnknownChannel", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChannel(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseChannel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		raw     any
		want    Value
		wantErr bool
	}{
		{"switch bool true", ChannelFan, true, 1, false},
		{"switch bool false", ChannelFan, false, 0, false},
		{"switch float 1", ChannelHeater, float64(1), 1, false},
		{"switch string on", ChannelPump, "on", 1, false},
		{"switch string off", ChannelPump, "off", 0, false},
		{"switch string false", ChannelSprinkler, "false", 0, false},
		{"switch fractional rejected", ChannelFan, 0.5, 0, true},
		{"level mid", ChannelLight, 0.5, 0.5, false},
		{"level zero", ChannelLight, float64(0), 0, false},
		{"level full", ChannelLight, float64(1), 1, false},
		{"level string", ChannelLight, "0.25", 0.25, false},
		{"level above range", ChannelLight, 1.5, 0, true},
		{"level negative", ChannelLight, -0.1, 0, true},
		{"garbage string", ChannelFan, "sideways", 0, true},
		{"unsupported type", ChannelFan, []string{"on"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.channel, tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("ParseValue(%s, %v) error = %v, want ErrInvalidValue", tt.channel, tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValue(%s, %v) returned error: %v", tt.channel, tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseValue(%s, %v) = %v, want %v", tt.channel, tt.raw, got, tt.want)
			}
		})
	}
}

func TestActuatorState_With(t *testing.T) {
	var s ActuatorState

	s, err := s.With(ChannelHeater, 1)
	if err != nil {
		t.Fatalf("With(heater) returned error: %v", err)
	}
	s, err = s.With(ChannelLight, 0.5)
	if err != nil {
		t.Fatalf("With(light) returned error: %v", err)
	}

	if !s.Heater {
		t.Error("Heater = false, want true")
	}
	if s.Light != 0.5 {
		t.Errorf("Light = %v, want 0.5", s.Light)
	}
	if s.Fan || s.Pump || s.Sprinkler {
		t.Error("unrelated channels changed")
	}

	if _, err := s.With("bogus", 1); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("With(bogus) error = %v, want ErrUnknownChannel", err)
	}
}

func TestActuatorState_Get(t *testing.T) {
	s := ActuatorState{Fan: true, Light: 0.7}

	if v, _ := s.Get(ChannelFan); v != 1 {
		t.Errorf("Get(fan) = %v, want 1", v)
	}
	if v, _ := s.Get(ChannelHeater); v != 0 {
		t.Errorf("Get(heater) = %v, want 0", v)
	}
	if v, _ := s.Get(ChannelLight); v != 0.7 {
		t.Errorf("Get(light) = %v, want 0.7", v)
	}
	if _, err := s.Get("bogus"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Get(bogus) error = %v, want ErrUnknownChannel", err)
	}
}

func TestChannels_CoversTable(t *testing.T) {
	chs := Channels()
	if len(chs) != len(channelTable) {
		t.Fatalf("Channels() returned %d channels, table has %d", len(chs), len(channelTable))
	}
	seen := make(map[Channel]bool)
	for _, ch := range chs {
		if _, ok := channelTable[ch]; !ok {
			t.Errorf("Channels() includes %q which is not in the table", ch)
		}
		if seen[ch] {
			t.Errorf("Channels() includes %q twice", ch)
		}
		seen[ch] = true
	}
}
