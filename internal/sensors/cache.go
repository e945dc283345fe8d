package sensors

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/leafcore/terrarium-core/internal/device"
	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
)

// Reading is one sensor sample. CapturedAt is monotonically
// non-decreasing across published readings.
type Reading struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	AmbientLight float64   `json:"ambient_light"`
	CapturedAt   time.Time `json:"captured_at"`
}

// Cache is the sole reader of raw sensor values.
//
// It polls the Capability on a fixed interval and publishes the latest
// Reading atomically; everything else in the system (automation engine,
// API, forwarder) consumes the cached value and never touches the
// sensors directly. A failed poll keeps the previous values and is
// retried on the next tick.
type Cache struct {
	cap      device.Capability
	interval time.Duration
	logger   *logging.Logger

	latest atomic.Pointer[Reading]
}

// NewCache creates a sensor cache. Call Start to begin polling.
//
// Parameters:
//   - cap: Sensor source
//   - interval: Poll cadence (config sensors.read_interval)
//   - logger: Structured logger
func NewCache(cap device.Capability, interval time.Duration, logger *logging.Logger) *Cache {
	return &Cache{
		cap:      cap,
		interval: interval,
		logger:   logger.With("component", "sensors"),
	}
}

// Start launches the poll loop. It returns immediately; the loop stops
// when ctx is cancelled. An initial read happens before the first tick
// so consumers rarely observe an empty cache at startup.
func (c *Cache) Start(ctx context.Context) {
	go func() {
		c.poll()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("sensor cache stopped")
				return
			case <-ticker.C:
				c.poll()
			}
		}
	}()
}

// poll reads all sensors and publishes a new Reading. Partial failures
// carry the previous value for the failed sensor; a fully failed poll
// publishes nothing.
func (c *Cache) poll() {
	prev := c.latest.Load()

	next := Reading{}
	if prev != nil {
		next = *prev
	}

	anyOK := false

	temp, humidity, err := c.cap.ReadTemperatureHumidity()
	if err != nil {
		c.logger.Warn("temperature/humidity read failed, keeping previous values", "error", err)
	} else {
		next.Temperature = temp
		next.Humidity = humidity
		anyOK = true
	}

	lux, err := c.cap.ReadAmbientLight()
	if err != nil {
		c.logger.Warn("ambient light read failed, keeping previous value", "error", err)
	} else {
		next.AmbientLight = lux
		anyOK = true
	}

	if !anyOK {
		return
	}

	next.CapturedAt = time.Now().UTC()
	c.latest.Store(&next)
}

// Latest returns the most recent reading.
//
// Returns:
//   - Reading: The cached sample
//   - bool: false if no successful poll has happened yet
func (c *Cache) Latest() (Reading, bool) {
	r := c.latest.Load()
	if r == nil {
		return Reading{}, false
	}
	return *r, true
}
