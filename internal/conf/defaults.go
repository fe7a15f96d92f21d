package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value for every configuration key.
// Values in the config file or bound flags take precedence.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Record source
	viper.SetDefault("source.spreadsheet", "data.xlsx")
	viper.SetDefault("source.sheet", "")

	// Dashboard
	viper.SetDefault("dashboard.host", "localhost")
	viper.SetDefault("dashboard.port", 8090)
	viper.SetDefault("dashboard.thumbnails.width", 1000)
	viper.SetDefault("dashboard.thumbnails.debug", false)
	viper.SetDefault("dashboard.preload.windowsize", 5)
	viper.SetDefault("dashboard.preload.concurrency", 4)

	// Image fetching. Timeout is the single consistent value used by every
	// call site; failed fetches are cached and never retried in-session.
	viper.SetDefault("fetch.timeout", "6s")
	viper.SetDefault("fetch.useragent", "StoreBranding-Dashboard")
	viper.SetDefault("fetch.ratelimit", 10.0)
	viper.SetDefault("fetch.burst", 4)
	viper.SetDefault("fetch.maxbodysize", int64(20*1024*1024))

	// Logging
	viper.SetDefault("log.file", "")
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order: working directory first, then the user config dir.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	paths = append(paths, filepath.Join(homeDir, ".config", "installation-dashbaord"))

	return paths, nil
}
