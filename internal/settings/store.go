package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/leafcore/terrarium-core/internal/infrastructure/logging"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600
)

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// validator checks one setting value. Returning an error rejects the
// whole update it arrived in.
type validator func(value any) error

// namespaceSpec describes one settings namespace: its backing file, its
// defaults, and per-key validators. Keys without a validator accept any
// JSON value.
type namespaceSpec struct {
	file       string
	defaults   map[string]any
	validators map[string]validator
}

// namespaceSpecs is the closed namespace table. The files live under the
// configured data directory.
var namespaceSpecs = map[string]namespaceSpec{
	NamespaceConfig: {
		file: "targets.json",
		defaults: map[string]any{
			"target_temperature":        24.0,
			"target_humidity":           60.0,
			"light_on_hour":             8.0,
			"light_off_hour":            20.0,
			"light_default_intensity":   0.5,
			"watering_days":             []any{"monday", "wednesday", "friday"},
			"watering_time":             "12:00",
			"watering_duration_seconds": 5.0,
		},
		validators: map[string]validator{
			"target_temperature":        numberBetween(5, 40),
			"target_humidity":           numberBetween(0, 100),
			"light_on_hour":             hourOfDay,
			"light_off_hour":            hourOfDay,
			"light_default_intensity":   numberBetween(0, 1),
			"watering_days":             weekdayList,
			"watering_time":             clockTime,
			"watering_duration_seconds": integerBetween(1, 600),
		},
	},
	NamespaceManual: {
		file: "manual.json",
		defaults: map[string]any{
			"manual_mode": false,
			"fan":         nil,
			"heater":      nil,
			"pump":        nil,
			"sprinkler":   nil,
			"light":       nil,
		},
		validators: map[string]validator{
			"manual_mode": boolean,
			"fan":         nullableBoolean,
			"heater":      nullableBoolean,
			"pump":        nullableBoolean,
			"sprinkler":   nullableBoolean,
			"light":       nullableNumberBetween(0, 1),
		},
	},
	NamespaceDevice: {
		file: "identity.json",
		defaults: map[string]any{
			"device_id": "", // generated on first load
			"name":      "terrarium",
			"location":  "",
		},
		validators: map[string]validator{
			"device_id": nonEmptyString,
			"name":      anyString,
			"location":  anyString,
		},
	},
}

// Store holds all settings namespaces in memory and persists each to its
// own JSON file.
//
// The in-memory map is the source of truth: a failed persist is logged
// and the update still takes effect, so a full disk cannot wedge the
// controller.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Reads take a shared lock,
//     updates an exclusive one.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	data    map[string]map[string]any
	logger  *logging.Logger
}

// NewStore loads every namespace from the data directory.
//
// Missing files are created from defaults. Existing files are merged
// with defaults so new keys introduced by an upgrade appear without
// touching user values. A corrupt file is quarantined by starting that
// namespace from defaults (the broken file is overwritten on the next
// persist).
//
// Parameters:
//   - dataDir: Directory for the namespace JSON files
//   - logger: Structured logger
//
// Returns:
//   - *Store: Loaded store
//   - error: If the data directory cannot be created
func NewStore(dataDir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		dataDir: dataDir,
		data:    make(map[string]map[string]any),
		logger:  logger.With("component", "settings"),
	}

	for name, spec := range namespaceSpecs {
		values, changed := s.loadNamespace(name, spec)

		// First boot: mint a stable device identity.
		if name == NamespaceDevice {
			if id, _ := values["device_id"].(string); id == "" {
				values["device_id"] = uuid.New().String()
				changed = true
			}
		}

		s.data[name] = values
		if changed {
			s.persist(name, spec, values)
		}
	}

	return s, nil
}

// loadNamespace reads one namespace file and merges defaults over it.
// Returns the merged values and whether a persist is needed.
func (s *Store) loadNamespace(name string, spec namespaceSpec) (map[string]any, bool) {
	values := cloneMap(spec.defaults)

	raw, err := os.ReadFile(filepath.Join(s.dataDir, spec.file))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading settings file failed, using defaults",
				"namespace", name, "error", err)
		}
		return values, true
	}

	var stored map[string]any
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("settings file corrupt, using defaults",
			"namespace", name, "error", err)
		return values, true
	}

	merged := false
	for key, value := range stored {
		if _, known := spec.defaults[key]; !known {
			continue // stale key from an older version
		}
		// Hand-edited files bypass Update's validation, so stored values
		// are re-checked here. A bad value reverts to its default.
		if v, hasValidator := spec.validators[key]; hasValidator {
			if err := v(value); err != nil {
				s.logger.Warn("stored setting invalid, reverting to default",
					"namespace", name, "key", key, "error", err)
				merged = true
				continue
			}
		}
		values[key] = value
	}
	for key := range spec.defaults {
		if _, present := stored[key]; !present {
			merged = true // new key not yet in the file
		}
	}
	return values, merged
}

// persist writes one namespace to disk. Failures are logged, never fatal.
func (s *Store) persist(name string, spec namespaceSpec, values map[string]any) {
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		s.logger.Error("marshalling settings failed", "namespace", name, "error", err)
		return
	}

	path := filepath.Join(s.dataDir, spec.file)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, filePermissions); err != nil {
		s.logger.Error("writing settings file failed, in-memory state remains authoritative",
			"namespace", name, "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("replacing settings file failed, in-memory state remains authoritative",
			"namespace", name, "error", err)
	}
}

// Get returns one value from a namespace.
//
// Returns:
//   - any: The value (shared structures are not copied; treat as read-only)
//   - bool: Whether the key exists
//   - error: ErrUnknownNamespace
func (s *Store) Get(namespace, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.data[namespace]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	v, present := values[key]
	return v, present, nil
}

// All returns a copy of every value in a namespace.
func (s *Store) All(namespace string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.data[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	return cloneMap(values), nil
}

// Update applies a partial update to a namespace.
//
// Unknown keys are ignored. Recognised keys are validated first; any
// invalid value rejects the entire update and nothing is mutated. On
// success the merged namespace is persisted synchronously (best-effort)
// and a copy of it returned.
//
// Parameters:
//   - namespace: Target namespace
//   - partial: Keys to change
//
// Returns:
//   - map[string]any: The merged namespace after the update
//   - error: ErrUnknownNamespace or ErrInvalidSetting (wrapped with detail)
func (s *Store) Update(namespace string, partial map[string]any) (map[string]any, error) {
	spec, ok := namespaceSpecs[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	// Validate before taking the write lock; reject-all on first failure.
	accepted := make(map[string]any)
	for key, value := range partial {
		if _, known := spec.defaults[key]; !known {
			continue
		}
		if v, hasValidator := spec.validators[key]; hasValidator {
			if err := v(value); err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSetting, namespace, key, err)
			}
		}
		accepted[key] = value
	}

	s.mu.Lock()
	values := s.data[namespace]
	for key, value := range accepted {
		values[key] = value
	}
	merged := cloneMap(values)
	s.persist(namespace, spec, values)
	s.mu.Unlock()

	return merged, nil
}

// TargetConfig returns the typed view of the config namespace.
func (s *Store) TargetConfig() TargetConfig {
	var cfg TargetConfig
	s.decode(NamespaceConfig, &cfg)
	return cfg
}

// Overrides returns the typed view of the manual namespace.
func (s *Store) Overrides() ManualOverride {
	var m ManualOverride
	s.decode(NamespaceManual, &m)
	return m
}

// Identity returns the typed view of the device namespace.
func (s *Store) Identity() Identity {
	var id Identity
	s.decode(NamespaceDevice, &id)
	return id
}

// decode round-trips a namespace through JSON into a typed struct.
// Validation guarantees the shapes line up, so failures indicate a bug
// and are logged rather than returned.
func (s *Store) decode(namespace string, into any) {
	s.mu.RLock()
	raw, err := json.Marshal(s.data[namespace])
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("encoding settings namespace failed", "namespace", namespace, "error", err)
		return
	}
	if err := json.Unmarshal(raw, into); err != nil {
		s.logger.Error("decoding settings namespace failed", "namespace", namespace, "error", err)
	}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Validators

func numberBetween(lo, hi float64) validator {
	return func(value any) error {
		f, ok := asNumber(value)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		if f < lo || f > hi {
			return fmt.Errorf("must be within [%v, %v], got %v", lo, hi, f)
		}
		return nil
	}
}

func nullableNumberBetween(lo, hi float64) validator {
	inner := numberBetween(lo, hi)
	return func(value any) error {
		if value == nil {
			return nil
		}
		return inner(value)
	}
}

func integerBetween(lo, hi int) validator {
	return func(value any) error {
		f, ok := asNumber(value)
		if !ok {
			return fmt.Errorf("expected integer, got %T", value)
		}
		if f != float64(int(f)) {
			return fmt.Errorf("expected integer, got %v", f)
		}
		n := int(f)
		if n < lo || n > hi {
			return fmt.Errorf("must be within [%d, %d], got %d", lo, hi, n)
		}
		return nil
	}
}

func hourOfDay(value any) error {
	return integerBetween(0, 23)(value)
}

func boolean(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

func nullableBoolean(value any) error {
	if value == nil {
		return nil
	}
	return boolean(value)
}

func anyString(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func nonEmptyString(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func weekdayList(value any) error {
	list, ok := value.([]any)
	if !ok {
		return fmt.Errorf("expected list of weekday names, got %T", value)
	}
	for _, item := range list {
		name, ok := item.(string)
		if !ok || !weekdayNames[strings.ToLower(name)] {
			return fmt.Errorf("invalid weekday %v", item)
		}
	}
	return nil
}

func clockTime(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected \"HH:MM\" string, got %T", value)
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return fmt.Errorf("expected \"HH:MM\", got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", s)
	}
	return nil
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
