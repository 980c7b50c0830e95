// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

// Environment variable names.
const (
	EnvLogLevel     = "OMR_LOG_LEVEL"
	EnvWorkers      = "OMR_WORKERS"
	EnvMaxPixels    = "OMR_MAX_PIXELS"
	EnvPageCache    = "OMR_PAGE_CACHE"
	EnvThresholding = "OMR_THRESHOLDING"
	EnvOCRLanguage  = "OMR_OCR_LANG"
)

// Config holds the settings shared by the CLI and the MCP server.
type Config struct {
	LogLevel     string
	Workers      int
	MaxPixels    int
	PageCache    int
	// Thresholding overrides the strategy stored in project files when set.
	Thresholding string
	OCRLanguage  string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:    "info",
		Workers:     runtime.NumCPU(),
		MaxPixels:   imaging.DefaultMaxPixels,
		PageCache:   8,
		OCRLanguage: "eng",
	}
}

// Load applies envFile (if given) and then the process environment on top
// of Default. A missing default ".env" is not an error; a missing explicit
// envFile is. Every malformed variable is reported.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	var result *multierror.Error

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvThresholding); v != "" {
		cfg.Thresholding = v
	}
	if v := os.Getenv(EnvOCRLanguage); v != "" {
		cfg.OCRLanguage = v
	}
	for _, iv := range []struct {
		name string
		dst  *int
		min  int
	}{
		{EnvWorkers, &cfg.Workers, 1},
		{EnvMaxPixels, &cfg.MaxPixels, 1},
		{EnvPageCache, &cfg.PageCache, 0},
	} {
		v := os.Getenv(iv.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", iv.name, err))
			continue
		}
		if n < iv.min {
			result = multierror.Append(result, fmt.Errorf("%s: %d is below the minimum of %d", iv.name, n, iv.min))
			continue
		}
		*iv.dst = n
	}

	return cfg, result.ErrorOrNil()
}
