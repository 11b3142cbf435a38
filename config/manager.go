package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	ErrUnknownKey        = errors.New("unknown config key")
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrConfigExists      = errors.New("config file already exists")
)

// Manager keeps the settings of one config file. The file holds settings
// only; environment overrides and credentials are layered on at load time
// and never written back.
type Manager struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	settings Config // as stored in the file
	cfg      Config // settings plus environment
}

type ManagerOption func(*Manager)

func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// DefaultPath is the per-user config file used when no path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "BondCortex", "config.json"), nil
}

// Init writes the settings of cfg to a new file at path. An existing file is
// only replaced when overwrite is set.
func Init(path string, cfg Config, overwrite bool) error {
	if err := cfg.ValidateSettings(); err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return writeSettings(path, cfg)
}

// Open loads an existing config file. A missing file is reported with an
// error wrapping os.ErrNotExist.
func Open(path string, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		path:     path,
		debounce: 300 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	_ = godotenv.Load()

	settings, err := readSettings(path)
	if err != nil {
		return nil, err
	}
	m.settings = settings
	m.cfg = withEnv(settings)
	return m, nil
}

func (m *Manager) Path() string {
	return m.path
}

// Get returns the effective configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Set applies key=value assignments to the file settings, validates the
// result and writes it back. It returns the keys whose stored value changed;
// nothing is written when the list is empty.
func (m *Manager) Set(assignments ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidAssignment, assignment)
		}
		if err := next.setKey(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}
	if err := next.ValidateSettings(); err != nil {
		return nil, err
	}

	changed := Diff(m.settings, next)
	if len(changed) == 0 {
		return nil, nil
	}
	if err := writeSettings(m.path, next); err != nil {
		return nil, err
	}
	m.settings = next
	m.cfg = withEnv(next)
	return changed, nil
}

// Watch reloads the file after it changes on disk. Reloads that fail Validate
// are logged and skipped. onChange receives each accepted configuration with
// the keys that differ from the previous one. The watcher stops with ctx.
func (m *Manager) Watch(ctx context.Context, onChange func(Config, []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors and Set replace the file by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != filepath.Clean(m.path) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					settle = time.After(m.debounce)
				}
			case <-settle:
				settle = nil
				m.reload(onChange)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (m *Manager) reload(onChange func(Config, []string)) {
	settings, err := readSettings(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("config file removed, keeping current configuration", zap.String("path", m.path))
			return
		}
		m.logger.Error("config reload failed", zap.Error(err))
		return
	}
	next := withEnv(settings)
	if err := next.Validate(); err != nil {
		m.logger.Error("ignoring invalid config file", zap.String("path", m.path), zap.Error(err))
		return
	}

	m.mu.Lock()
	changed := Diff(m.cfg, next)
	m.settings, m.cfg = settings, next
	m.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	m.logger.Info("config reloaded", zap.String("path", m.path), zap.Strings("changed", changed))
	if onChange != nil {
		onChange(next, changed)
	}
}

// Keys lists the settings a config file can hold, in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if key := jsonKey(t.Field(i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Diff returns the keys whose values differ between a and b. Credentials are
// not keys and are never reported.
func Diff(a, b Config) []string {
	var changed []string
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	t := va.Type()
	for i := 0; i < t.NumField(); i++ {
		key := jsonKey(t.Field(i))
		if key == "" {
			continue
		}
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			changed = append(changed, key)
		}
	}
	return changed
}

func (c *Config) setKey(key, value string) error {
	t := reflect.TypeOf(*c)
	for i := 0; i < t.NumField(); i++ {
		if jsonKey(t.Field(i)) != key {
			continue
		}
		field := reflect.ValueOf(c).Elem().Field(i)
		if err := parseInto(field, value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAssignment, key, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

func parseInto(field reflect.Value, value string) error {
	switch field.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case string:
		field.SetString(value)
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case float32:
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

func jsonKey(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func withEnv(settings Config) Config {
	cfg := settings
	cfg.loadFromEnv()
	return cfg
}

// readSettings decodes the file over the built-in defaults. Keys missing from
// the file keep their default.
func readSettings(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// writeSettings replaces path atomically.
func writeSettings(path string, cfg Config) error {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
