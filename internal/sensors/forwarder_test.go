package sensors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/settings"
)

type fakePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	failWith error
}

func (p *fakePublisher) PublishTelemetry(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

type fakeWriter struct {
	mu       sync.Mutex
	readings []Reading
}

func (w *fakeWriter) WriteReading(_ context.Context, _ settings.Identity, r Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readings = append(w.readings, r)
}

func testIdentity() settings.Identity {
	return settings.Identity{DeviceID: "dev-1", Name: "terrarium", Location: "hall"}
}

func primedCache(t *testing.T) *Cache {
	t.Helper()
	sensors := &fakeSensors{}
	sensors.set(24.0, 60.0, 300)
	cache := NewCache(sensors, time.Second, logging.Default())
	cache.poll()
	return cache
}

func TestForwarder_PostsToCollectors(t *testing.T) {
	var mu sync.Mutex
	var received []TelemetryPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload TelemetryPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding collector payload: %v", err)
		}
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewForwarder(
		primedCache(t),
		testIdentity,
		[]string{server.URL},
		10*time.Second,
		time.Second,
		nil, nil,
		logging.Default(),
	)
	f.forward(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("collector received %d payloads, want 1", len(received))
	}
	got := received[0]
	if got.DeviceID != "dev-1" || got.Name != "terrarium" {
		t.Errorf("identity = %s/%s, want dev-1/terrarium", got.DeviceID, got.Name)
	}
	if got.Temperature != 24.0 || got.Humidity != 60.0 || got.AmbientLight != 300 {
		t.Errorf("reading = %v/%v/%v, want 24/60/300", got.Temperature, got.Humidity, got.AmbientLight)
	}
	if got.SentAt.IsZero() {
		t.Error("SentAt is zero")
	}
}

func TestForwarder_PublishesAndWrites(t *testing.T) {
	publisher := &fakePublisher{}
	writer := &fakeWriter{}

	f := NewForwarder(
		primedCache(t),
		testIdentity,
		nil,
		10*time.Second,
		time.Second,
		publisher, writer,
		logging.Default(),
	)
	f.forward(context.Background())

	publisher.mu.Lock()
	if len(publisher.payloads) != 1 {
		t.Errorf("publisher received %d payloads, want 1", len(publisher.payloads))
	}
	publisher.mu.Unlock()

	writer.mu.Lock()
	if len(writer.readings) != 1 {
		t.Errorf("writer received %d readings, want 1", len(writer.readings))
	}
	writer.mu.Unlock()
}

func TestForwarder_SinkFailureIsIsolated(t *testing.T) {
	// A dead collector and a failing publisher must not stop the
	// InfluxDB write.
	publisher := &fakePublisher{failWith: errors.New("broker down")}
	writer := &fakeWriter{}

	f := NewForwarder(
		primedCache(t),
		testIdentity,
		[]string{"http://127.0.0.1:1/unreachable"},
		10*time.Second,
		200*time.Millisecond,
		publisher, writer,
		logging.Default(),
	)
	f.forward(context.Background())

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.readings) != 1 {
		t.Errorf("writer received %d readings despite other sinks failing, want 1", len(writer.readings))
	}
}

func TestForwarder_SkipsEmptyCache(t *testing.T) {
	cache := NewCache(&fakeSensors{}, time.Second, logging.Default())
	publisher := &fakePublisher{}

	f := NewForwarder(
		cache,
		testIdentity,
		nil,
		10*time.Second,
		time.Second,
		publisher, nil,
		logging.Default(),
	)
	f.forward(context.Background())

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.payloads) != 0 {
		t.Errorf("publisher received %d payloads from empty cache, want 0", len(publisher.payloads))
	}
}
