// Package control exposes the operations external surfaces act through.
//
// The HTTP API, the MQTT command subscriber, and the display panel all
// talk to the Surface rather than to the device, settings, or automation
// packages directly. The Surface validates input, persists through the
// settings store, and routes every actuator mutation through the device
// controller's serialised path.
package control
