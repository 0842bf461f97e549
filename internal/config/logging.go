package config

import "strings"

// LoggingConfig controls the per-category log files under <data_dir>/logs.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"` // unlisted categories are on
}

// IsCategoryEnabled reports whether category writes a log file. Nothing is
// enabled while debug_mode is off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	on, listed := c.Categories[strings.ToLower(category)]
	return on || !listed
}
