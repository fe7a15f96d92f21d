// Package conf loads and provides access to the dashboard configuration.
package conf

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Settings is the root configuration for the dashboard.
type Settings struct {
	Debug bool // true to enable debug logging

	Source    SourceSettings    // spreadsheet record source
	Dashboard DashboardSettings // HTTP dashboard
	Fetch     FetchSettings     // remote image retrieval
	Log       LogSettings       // file logging
}

// LogSettings configures optional rotated file logging.
type LogSettings struct {
	File string // log file path, empty disables file logging
}

// SourceSettings describes where survey records are loaded from.
type SourceSettings struct {
	Spreadsheet string // path to the survey workbook, e.g. data.xlsx
	Sheet       string // sheet name, empty means the first sheet
}

// DashboardSettings configures the HTTP dashboard.
type DashboardSettings struct {
	Host       string
	Port       int
	Thumbnails ThumbnailSettings
	Preload    PreloadSettings
}

// ThumbnailSettings controls how share links are rewritten to thumbnails.
type ThumbnailSettings struct {
	Width int  // requested pixel width for thumbnail URLs
	Debug bool // verbose logging for the image pipeline
}

// PreloadSettings controls look-ahead image resolution.
type PreloadSettings struct {
	WindowSize  int // records resolved ahead of the one in view
	Concurrency int // parallel fetches within a window
}

// FetchSettings controls the image fetcher.
type FetchSettings struct {
	Timeout     time.Duration // per-request timeout
	UserAgent   string
	RateLimit   float64 // requests per second against the image host
	Burst       int     // rate limiter burst
	MaxBodySize int64   // largest accepted image payload in bytes
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration, initializing it on first call.
func Load() (*Settings, error) {
	var loadErr error
	once.Do(func() {
		settings := &Settings{}

		if err := initViper(); err != nil {
			loadErr = fmt.Errorf("error initializing viper: %w", err)
			return
		}

		if err := viper.Unmarshal(settings); err != nil {
			loadErr = fmt.Errorf("error unmarshaling config into struct: %w", err)
			return
		}

		settingsMutex.Lock()
		settingsInstance = settings
		settingsMutex.Unlock()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return GetSettings(), nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found, defaults apply
	}
	return nil
}

// GetSettings returns the current settings instance. Nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting is a convenience alias for GetSettings.
func Setting() *Settings {
	return GetSettings()
}

// SetSettings replaces the settings instance; intended for tests.
func SetSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}
