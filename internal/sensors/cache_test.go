package sensors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
)

// fakeSensors is a Capability stub for sensor reads only.
type fakeSensors struct {
	mu          sync.Mutex
	temperature float64
	humidity    float64
	lux         float64
	climateErr  error
	luxErr      error
}

func (f *fakeSensors) ReadTemperatureHumidity() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.climateErr != nil {
		return 0, 0, f.climateErr
	}
	return f.temperature, f.humidity, nil
}

func (f *fakeSensors) ReadAmbientLight() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.luxErr != nil {
		return 0, f.luxErr
	}
	return f.lux, nil
}

func (f *fakeSensors) set(temp, humidity, lux float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.temperature, f.humidity, f.lux = temp, humidity, lux
}

func (f *fakeSensors) setErrors(climate, lux error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.climateErr, f.luxErr = climate, lux
}

func (f *fakeSensors) SetFan(bool) error            { return nil }
func (f *fakeSensors) SetHeater(bool) error         { return nil }
func (f *fakeSensors) SetPump(bool) error           { return nil }
func (f *fakeSensors) SetSprinkler(bool) error      { return nil }
func (f *fakeSensors) SetLight(float64) error       { return nil }
func (f *fakeSensors) State() (device.ActuatorState, error) {
	return device.ActuatorState{}, nil
}
func (f *fakeSensors) Close() error { return nil }

func TestCache_EmptyBeforeFirstPoll(t *testing.T) {
	cache := NewCache(&fakeSensors{}, time.Second, logging.Default())

	if _, ok := cache.Latest(); ok {
		t.Error("Latest() ok = true before any poll, want false")
	}
}

func TestCache_PollPublishesReading(t *testing.T) {
	sensors := &fakeSensors{}
	sensors.set(24.5, 61.0, 300)
	cache := NewCache(sensors, time.Second, logging.Default())

	cache.poll()

	reading, ok := cache.Latest()
	if !ok {
		t.Fatal("Latest() ok = false after poll, want true")
	}
	if reading.Temperature != 24.5 || reading.Humidity != 61.0 || reading.AmbientLight != 300 {
		t.Errorf("reading = %+v, want 24.5/61/300", reading)
	}
	if reading.CapturedAt.IsZero() {
		t.Error("CapturedAt is zero")
	}
}

func TestCache_FailedPollKeepsPrevious(t *testing.T) {
	sensors := &fakeSensors{}
	sensors.set(24.0, 60.0, 300)
	cache := NewCache(sensors, time.Second, logging.Default())

	cache.poll()
	first, _ := cache.Latest()

	sensors.setErrors(errors.New("i2c timeout"), errors.New("i2c timeout"))
	cache.poll()

	second, ok := cache.Latest()
	if !ok {
		t.Fatal("Latest() ok = false, want previous reading retained")
	}
	if second != first {
		t.Errorf("reading changed on fully failed poll: %+v -> %+v", first, second)
	}
}

func TestCache_PartialFailureMergesPrevious(t *testing.T) {
	sensors := &fakeSensors{}
	sensors.set(24.0, 60.0, 300)
	cache := NewCache(sensors, time.Second, logging.Default())
	cache.poll()

	// Climate sensor fails, lux changes.
	sensors.set(99.0, 99.0, 500)
	sensors.setErrors(errors.New("i2c timeout"), nil)
	cache.poll()

	reading, _ := cache.Latest()
	if reading.Temperature != 24.0 || reading.Humidity != 60.0 {
		t.Errorf("climate = %v/%v, want previous 24/60", reading.Temperature, reading.Humidity)
	}
	if reading.AmbientLight != 500 {
		t.Errorf("AmbientLight = %v, want fresh 500", reading.AmbientLight)
	}
}

func TestCache_CapturedAtMonotonic(t *testing.T) {
	sensors := &fakeSensors{}
	sensors.set(24.0, 60.0, 300)
	cache := NewCache(sensors, time.Second, logging.Default())

	cache.poll()
	first, _ := cache.Latest()
	cache.poll()
	second, _ := cache.Latest()

	if second.CapturedAt.Before(first.CapturedAt) {
		t.Errorf("CapturedAt went backwards: %v -> %v", first.CapturedAt, second.CapturedAt)
	}
}
