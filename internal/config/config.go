/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	keyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are treated as read-only overrides
// at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	// Workspace is the default template workspace directory.
	Workspace string `yaml:"workspace"`
	Theme     string `yaml:"theme"` // "system" | "light" | "dark"
}

type EditorConfig struct {
	GridSize   float64 `yaml:"grid_size"`
	SnapToGrid bool    `yaml:"snap_to_grid"`
	Zoom       float64 `yaml:"zoom"`
}

type PrintConfig struct {
	// Sink selects the default print sink: "pdf", "zpl" or "spool".
	Sink      string `yaml:"sink"`
	PDFOutDir string `yaml:"pdf_out_dir"`
	// ZPLDevice is a file or character device the ZPL stream is written to.
	ZPLDevice string `yaml:"zpl_device"`
	ZPLDPI    int    `yaml:"zpl_dpi"`
}

type SpoolConfig struct {
	URL       string `yaml:"url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Print         PrintConfig   `yaml:"print"`
	Spool         SpoolConfig   `yaml:"spool"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Workspace: "", Theme: "system"},
		Editor:        EditorConfig{GridSize: 5, SnapToGrid: true, Zoom: 1},
		Print:         PrintConfig{Sink: "pdf", PDFOutDir: "exports", ZPLDevice: "", ZPLDPI: 203},
		Spool:         SpoolConfig{URL: "", TimeoutMs: 10000},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvWorkspace      = "LP_WORKSPACE"
	EnvPrintSink      = "LP_PRINT_SINK"
	EnvSpoolURL       = "LP_SPOOL_URL"
	EnvSpoolTimeoutMs = "LP_SPOOL_TIMEOUT_MS"
	EnvZPLDevice      = "LP_ZPL_DEVICE"
	EnvZPLDPI         = "LP_ZPL_DPI"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "LP_LOG_LEVEL"
	EnvLogFormat = "LP_LOG_FORMAT"
	EnvLogSource = "LP_LOG_SOURCE"
	EnvLogFile   = "LP_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "LabelPress"
	keyringToken   = "spool_token"
)

// TokenStore abstracts the keyring, so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the keyring backend, returning the previous one.
// Intended for tests.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	return keyring.Get(service, key)
}
func (osKeyring) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}
func (osKeyring) Delete(service, key string) error {
	return keyring.Delete(service, key)
}

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "LabelPress")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "LabelPress")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "labelpress")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides. The spool token comes from the keyring and
// is returned separately so it never sits in the struct.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		// Start from defaults so keys absent from the file keep their
		// default values, booleans included.
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the spool token from the keyring.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.General.Workspace) != "" {
		dst.General.Workspace = src.General.Workspace
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.Editor.GridSize > 0 {
		dst.Editor.GridSize = src.Editor.GridSize
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Editor.SnapToGrid = src.Editor.SnapToGrid
	if src.Editor.Zoom > 0 {
		dst.Editor.Zoom = src.Editor.Zoom
	}
	if src.Print.Sink != "" {
		dst.Print.Sink = strings.ToLower(src.Print.Sink)
	}
	if src.Print.PDFOutDir != "" {
		dst.Print.PDFOutDir = src.Print.PDFOutDir
	}
	if src.Print.ZPLDevice != "" {
		dst.Print.ZPLDevice = src.Print.ZPLDevice
	}
	if src.Print.ZPLDPI > 0 {
		dst.Print.ZPLDPI = src.Print.ZPLDPI
	}
	if src.Spool.URL != "" {
		dst.Spool.URL = src.Spool.URL
	}
	if src.Spool.TimeoutMs != 0 {
		dst.Spool.TimeoutMs = src.Spool.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		cfg.General.Workspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrintSink)); v != "" {
		cfg.Print.Sink = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpoolURL)); v != "" {
		cfg.Spool.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpoolTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Spool.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvZPLDevice)); v != "" {
		cfg.Print.ZPLDevice = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvZPLDPI)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Print.ZPLDPI = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// Timeout returns the spool request timeout as a duration, falling back to
// the default when the configured value is not positive.
func (s SpoolConfig) Timeout() time.Duration {
	ms := s.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Spool.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
