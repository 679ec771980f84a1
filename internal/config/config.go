package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ankouros/rshell/internal/model"
)

const (
	ConfigDirName  = "rshell"
	ConfigFileName = "rshell.json"

	ConfigVersionCurrent = 1
)

var cfgMu sync.Mutex

// configPath is swappable for tests.
var configPath = defaultConfigPath

// -----------------------------
// Defaults
// -----------------------------

func DefaultConfig() model.AppConfig {
	return model.AppConfig{
		Version: ConfigVersionCurrent,
		Hosts: []model.Host{
			{
				ID:   1,
				Name: "example",
				Host: "192.168.1.10",
				Port: 22,
				User: "root",
				Auth: model.AuthConfig{
					Method: model.AuthPassword,
				},
				HostKey: model.HostKeyConfig{
					Mode: model.HostKeyKnownHosts,
				},
			},
		},
		Monitor: model.MonitorConfig{
			Thresholds:  model.DefaultThresholds(),
			IntervalSec: 60,
		},
	}
}

// -----------------------------
// Paths
// -----------------------------

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", ConfigDirName, ConfigFileName), nil
}

func ensureDir() (string, error) {
	p, err := configPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", err
	}
	return p, nil
}

// -----------------------------
// Public API
// -----------------------------

// EnsureConfig loads the config file, writing the default one first if none
// exists yet. Returns the config and the path it lives at.
func EnsureConfig() (model.AppConfig, string, error) {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	p, err := configPath()
	if err != nil {
		return model.AppConfig{}, "", err
	}

	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := saveLocked(cfg); err != nil {
			return model.AppConfig{}, "", err
		}
		return cfg, p, nil
	}

	cfg, err := loadLocked()
	return cfg, p, err
}

func Load() (model.AppConfig, error) {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	return loadLocked()
}

func Save(cfg model.AppConfig) error {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	return saveLocked(cfg)
}

// FindHost resolves a host by name or numeric ID.
func FindHost(cfg model.AppConfig, nameOrID string) (model.Host, bool) {
	needle := strings.TrimSpace(nameOrID)
	for _, h := range cfg.Hosts {
		if h.Name == needle || fmt.Sprint(h.ID) == needle {
			return h, true
		}
	}
	return model.Host{}, false
}

// -----------------------------
// Internals
// -----------------------------

func loadLocked() (model.AppConfig, error) {
	p, err := configPath()
	if err != nil {
		return model.AppConfig{}, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return model.AppConfig{}, err
	}

	var cfg model.AppConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return model.AppConfig{}, fmt.Errorf("invalid config JSON: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = ConfigVersionCurrent
	}
	if cfg.Version != ConfigVersionCurrent {
		return model.AppConfig{}, fmt.Errorf(
			"unsupported config version %d (expected %d)",
			cfg.Version,
			ConfigVersionCurrent,
		)
	}

	if normalize(&cfg) {
		if err := saveLocked(cfg); err != nil {
			return model.AppConfig{}, err
		}
	}

	return cfg, nil
}

func saveLocked(cfg model.AppConfig) error {
	p, err := ensureDir()
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// normalize fills gaps left by hand-edited config files. Reports whether
// anything changed so the caller can persist the repaired form.
func normalize(cfg *model.AppConfig) bool {
	changed := false

	nextID := 1
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if h.ID >= nextID {
			nextID = h.ID + 1
		}
	}
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if h.ID == 0 {
			h.ID = nextID
			nextID++
			changed = true
		}
		if h.Port == 0 {
			h.Port = 22
			changed = true
		}
		if h.Auth.Method == "" {
			h.Auth.Method = model.AuthPassword
			changed = true
		}
		if h.HostKey.Mode == "" {
			h.HostKey.Mode = model.HostKeyKnownHosts
			changed = true
		}
	}

	if cfg.Monitor.Thresholds == (model.Thresholds{}) {
		cfg.Monitor.Thresholds = model.DefaultThresholds()
		changed = true
	}
	if cfg.Monitor.IntervalSec <= 0 {
		cfg.Monitor.IntervalSec = 60
		changed = true
	}

	return changed
}
