package sensors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
	"github.com/leafcore/terrarium-core/internal/settings"
)

// Publisher delivers a telemetry payload to the MQTT broker.
type Publisher interface {
	PublishTelemetry(payload []byte) error
}

// TelemetryWriter persists a reading to the time-series store.
type TelemetryWriter interface {
	WriteReading(ctx context.Context, identity settings.Identity, r Reading)
}

// TelemetryPayload is the document sent to remote collectors and the
// MQTT telemetry topic.
type TelemetryPayload struct {
	DeviceID     string    `json:"device_id"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	AmbientLight float64   `json:"ambient_light"`
	CapturedAt   time.Time `json:"captured_at"`
	SentAt       time.Time `json:"sent_at"`
}

// Forwarder ships cached readings to remote sinks on a fixed interval.
//
// Three sinks exist, all optional and all best-effort: HTTP collectors,
// the MQTT telemetry topic, and InfluxDB. A failing sink is logged and
// retried on the next interval; forwarding never stalls the poll loop
// or the automation engine.
type Forwarder struct {
	cache      *Cache
	identity   func() settings.Identity
	collectors []string
	interval   time.Duration

	client    *http.Client
	publisher Publisher
	writer    TelemetryWriter
	logger    *logging.Logger
}

// NewForwarder creates a telemetry forwarder. Call Start to begin.
//
// Parameters:
//   - cache: Source of readings
//   - identity: Supplier of the current device identity (re-read each
//     interval so renames take effect without a restart)
//   - collectors: Remote collector base URLs; may be empty
//   - interval: Forward cadence (config sensors.forward_interval)
//   - timeout: Per-collector POST timeout
//   - publisher: MQTT sink, may be nil
//   - writer: InfluxDB sink, may be nil
//   - logger: Structured logger
func NewForwarder(
	cache *Cache,
	identity func() settings.Identity,
	collectors []string,
	interval time.Duration,
	timeout time.Duration,
	publisher Publisher,
	writer TelemetryWriter,
	logger *logging.Logger,
) *Forwarder {
	return &Forwarder{
		cache:      cache,
		identity:   identity,
		collectors: collectors,
		interval:   interval,
		client:     &http.Client{Timeout: timeout},
		publisher:  publisher,
		writer:     writer,
		logger:     logger.With("component", "forwarder"),
	}
}

// Start launches the forwarding loop. It returns immediately; the loop
// stops when ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				f.logger.Info("telemetry forwarder stopped")
				return
			case <-ticker.C:
				f.forward(ctx)
			}
		}
	}()
}

// forward ships the current reading to every sink. Nothing is sent when
// the cache is still empty.
func (f *Forwarder) forward(ctx context.Context) {
	reading, ok := f.cache.Latest()
	if !ok {
		return
	}

	id := f.identity()
	payload := TelemetryPayload{
		DeviceID:     id.DeviceID,
		Name:         id.Name,
		Location:     id.Location,
		Temperature:  reading.Temperature,
		Humidity:     reading.Humidity,
		AmbientLight: reading.AmbientLight,
		CapturedAt:   reading.CapturedAt,
		SentAt:       time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		f.logger.Error("marshalling telemetry payload failed", "error", err)
		return
	}

	for _, url := range f.collectors {
		if err := f.post(ctx, url, body); err != nil {
			f.logger.Warn("forwarding to collector failed", "collector", url, "error", err)
		}
	}

	if f.publisher != nil {
		if err := f.publisher.PublishTelemetry(body); err != nil {
			f.logger.Warn("publishing telemetry to mqtt failed", "error", err)
		}
	}

	if f.writer != nil {
		f.writer.WriteReading(ctx, id, reading)
	}
}

func (f *Forwarder) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector responded %d", resp.StatusCode)
	}
	return nil
}
