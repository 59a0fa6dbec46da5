package appbase

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
	"io"
	"log/slog"
	"os"
)

// Config holds the window and presentation parameters of a lesson.
type Config struct {
	Title      string     `yaml:"title"`
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	ClearColor [4]float32 `yaml:"clearColor"`
	LogLevel   string     `yaml:"logLevel"`
	// AssetDir is prepended to relative shader, texture and model paths.
	AssetDir string `yaml:"assetDir"`
	// Model is the file drawn by lessons that load a model.
	Model string `yaml:"model"`
}

// DefaultConfig returns the fixed 640x480 window with a black clear color.
func DefaultConfig() Config {
	return Config{
		Title:      "ClearScreen",
		Width:      640,
		Height:     480,
		ClearColor: [4]float32{0, 0, 0, 1},
		LogLevel:   "info",
		AssetDir:   ".",
	}
}

// LoadConfig overlays the YAML file at path onto base. A missing file is not an
// error: base is returned unchanged.
func LoadConfig(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return base, nil
	} else if err != nil {
		return base, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := DecodeConfig(f, base)
	if err != nil {
		return base, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// DecodeConfig overlays YAML read from r onto base and validates the result.
func DecodeConfig(r io.Reader, base Config) (Config, error) {
	cfg := base
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, errors.Wrap(err, "decode config")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return base, errors.Newf("window size must be positive, got %dx%d", cfg.Width, cfg.Height)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
