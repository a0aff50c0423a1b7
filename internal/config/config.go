package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultGentleness = 10
	DefaultOutput     = "handshake_jobs.csv"
)

// Config is everything the run needs, resolved from flags and environment
// before any browser work starts.
type Config struct {
	SearchURL  string // must already encode the starting page number
	MaxPages   int    // 0 = unbounded
	Gentleness int    // 0..100

	ProfileDir   string // browser profile; empty = per-OS default
	OutputPath   string // CSV artifact, overwritten each run
	DBPath       string // optional sqlite mirror; empty = disabled
	LocatorsPath string // optional YAML locator-table override
	LogPath      string // optional rotating log file
}

// FromEnv overlays values the environment provides for anything the flags
// left blank. Flags win.
func (c *Config) FromEnv() {
	if c.ProfileDir == "" {
		c.ProfileDir = os.Getenv("SCRAPER_PROFILE_DIR")
	}
	if c.DBPath == "" {
		c.DBPath = os.Getenv("SCRAPER_DB_PATH")
	}
	if c.LogPath == "" {
		c.LogPath = os.Getenv("SCRAPER_LOG_PATH")
	}
	if c.LocatorsPath == "" {
		c.LocatorsPath = os.Getenv("SCRAPER_LOCATORS")
	}
}

// OutputAbs resolves the artifact path for reporting.
func (c *Config) OutputAbs() string {
	abs, err := filepath.Abs(c.OutputPath)
	if err != nil {
		return c.OutputPath
	}
	return abs
}
