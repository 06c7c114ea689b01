package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
)

// ErrUnknownKey is returned by Set for keys outside the configuration schema.
var ErrUnknownKey = errors.New("unknown config key")

// fieldIndex maps JSON key names to Config struct field indices.
var fieldIndex = func() map[string]int {
	t := reflect.TypeOf(Config{})
	idx := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			idx[name] = i
		}
	}
	return idx
}()

// Keys returns every configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fieldIndex))
	for k := range fieldIndex {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := EmptyConfig()
	data, err := json.Marshal(c)
	if err != nil {
		// Config only holds JSON-safe scalar fields.
		panic(fmt.Sprintf("config: clone marshal: %v", err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: clone unmarshal: %v", err))
	}
	return out
}

// Merge copies every non-nil field of overlay onto c. Keys absent from the
// overlay keep their current values.
func (c *Config) Merge(overlay *Config) {
	if overlay == nil {
		return
	}
	dst := reflect.ValueOf(c).Elem()
	src := reflect.ValueOf(overlay.Clone()).Elem()
	for i := 0; i < src.NumField(); i++ {
		if f := src.Field(i); !f.IsNil() {
			dst.Field(i).Set(f)
		}
	}
}

// Store is the runtime configuration shared by the control loop, hotkeys and
// the HTTP API. All methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

// NewStore creates a store holding the built-in defaults, persisted at path.
func NewStore(path string) *Store {
	return &Store{path: path, cfg: DefaultConfig()}
}

// Path returns the file the store loads from and saves to.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Get returns the value stored under key, or def when the key is unknown or unset.
func (s *Store) Get(key string, def interface{}) interface{} {
	i, ok := fieldIndex[key]
	if !ok {
		return def
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := reflect.ValueOf(s.cfg).Elem().Field(i)
	if f.IsNil() {
		return def
	}
	if f.Kind() == reflect.Slice {
		cp := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
		reflect.Copy(cp, f)
		return cp.Interface()
	}
	return f.Elem().Interface()
}

// Set assigns a single key. The value may be any JSON-compatible
// representation of the field type, so 40 and 40.0 both set aim_tolerance.
func (s *Store) Set(key string, value interface{}) error {
	i, ok := fieldIndex[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	ft := reflect.TypeOf(Config{}).Field(i).Type
	nv := reflect.New(ft)
	if err := json.Unmarshal(data, nv.Interface()); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return s.Update(func(c *Config) {
		reflect.ValueOf(c).Elem().Field(i).Set(nv.Elem())
	})
}

// Update applies fn to a copy of the configuration and commits it only if the
// result validates.
func (s *Store) Update(fn func(c *Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	fn(next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// Replace merges overlay over the current configuration.
func (s *Store) Replace(overlay *Config) error {
	return s.Update(func(c *Config) { c.Merge(overlay) })
}

// Load merges the store file over the built-in defaults. A missing file is
// created from the current configuration.
func (s *Store) Load() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return s.Save()
	}
	loaded, err := LoadConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := DefaultConfig()
	next.Merge(loaded)
	s.cfg = next
	monitoring.Logf("config loaded: %s", s.path)
	return nil
}

// Save writes the configuration as indented JSON.
func (s *Store) Save() error {
	cfg := s.Snapshot()
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	monitoring.Logf("config saved: %s", s.path)
	return nil
}

// ApplyProfile merges the named profile over the configuration and records
// it as the active profile.
func (s *Store) ApplyProfile(name string) error {
	p, ok := Profile(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return s.Update(func(c *Config) {
		c.Merge(p)
		c.Profile = ptrString(name)
	})
}
