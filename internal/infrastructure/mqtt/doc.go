// Package mqtt wraps eclipse/paho.mqtt.golang for Leafcore Core.
//
// The client publishes sensor telemetry, retained per-channel actuator
// state, and a retained online/offline status with a Last Will for
// crash detection. It subscribes to the leafcore/command hierarchy so
// remote services can drive the controller. Subscriptions survive
// reconnects; the connection uses auto-reconnect with exponential
// backoff.
package mqtt
