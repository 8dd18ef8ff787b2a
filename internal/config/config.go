package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the process configuration for the watermark CLI.
type Config struct {
	Env     string `yaml:"env" env:"PHOTOMARK_ENV" env-default:"prod"`
	LogFile string `yaml:"log_file" env:"PHOTOMARK_LOG_FILE" env-default:""`

	Workers int `yaml:"workers" env:"PHOTOMARK_WORKERS" env-default:"0"`
	Margin  int `yaml:"margin" env:"PHOTOMARK_MARGIN" env-default:"10"`

	Templates struct {
		Dir string `yaml:"dir" env:"PHOTOMARK_TEMPLATE_DIR" env-default:"templates"`
		// DB selects the single-file SQLite store instead of Dir when set.
		DB string `yaml:"db" env:"PHOTOMARK_TEMPLATE_DB" env-default:""`
	} `yaml:"templates"`

	FontDirs []string `yaml:"font_dirs" env:"PHOTOMARK_FONT_DIRS" env-separator:":"`

	// LastSettings is where the settings of the previous run are kept.
	// Empty means the user config directory; "off" disables it.
	LastSettings string `yaml:"last_settings" env:"PHOTOMARK_LAST_SETTINGS" env-default:""`
}

const lastSettingsOff = "off"

// Load reads path (YAML) when given, then applies environment overrides.
// Without a path only the environment and defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Margin < 0 {
		return nil, fmt.Errorf("load config: margin must not be negative, got %d", cfg.Margin)
	}
	switch cfg.LastSettings {
	case lastSettingsOff:
		cfg.LastSettings = ""
	case "":
		cfg.LastSettings = defaultLastSettings()
	}
	return &cfg, nil
}

// defaultLastSettings returns an empty path, disabling the feature, when the
// user config directory is unknown.
func defaultLastSettings() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "photomark", "last_settings.json")
}
