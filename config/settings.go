package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Database DatabaseSettings `json:"database"`
	Live     LiveSettings     `json:"live"`
	UI       UISettings       `json:"ui"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

// LiveSettings controls catalog and EPG refresh behaviour.
type LiveSettings struct {
	EPG                           EPGSettings `json:"epg"`
	CatalogRefreshIntervalMinutes int         `json:"catalogRefreshIntervalMinutes"`
}

type EPGSettings struct {
	Enabled                bool `json:"enabled"`
	RefreshIntervalMinutes int  `json:"refreshIntervalMinutes"`
	RetentionDays          int  `json:"retentionDays"`
	DisplayBatchSize       int  `json:"displayBatchSize"`
}

type UISettings struct {
	ChannelSwitchWraparound bool `json:"channelSwitchWraparound"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"` // megabytes
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration used when no settings file
// exists yet.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 8585},
		Database: DatabaseSettings{Path: "cache/telecast.db"},
		Live: LiveSettings{
			EPG: EPGSettings{
				Enabled:                true,
				RefreshIntervalMinutes: 360,
				RetentionDays:          7,
				DisplayBatchSize:       50,
			},
			CatalogRefreshIntervalMinutes: 720,
		},
		UI: UISettings{ChannelSwitchWraparound: true},
		Log: LogConfig{
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
	}
}

// Manager loads and saves the settings file.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir creates the directory containing the settings file.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads the settings file from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for settings introduced after the config was written
	if s.Server.Port == 0 {
		s.Server.Port = 8585
	}
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = "cache/telecast.db"
	}
	if s.Live.EPG.RefreshIntervalMinutes == 0 {
		s.Live.EPG.RefreshIntervalMinutes = 360
	}
	if s.Live.EPG.RetentionDays == 0 {
		s.Live.EPG.RetentionDays = 7
	}
	if s.Live.EPG.DisplayBatchSize == 0 {
		s.Live.EPG.DisplayBatchSize = 50
	}
	if s.Live.CatalogRefreshIntervalMinutes == 0 {
		s.Live.CatalogRefreshIntervalMinutes = 720
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 10
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 14
	}

	return s, nil
}

// Save writes the settings file atomically.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.EnsureDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
