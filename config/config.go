package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RainOrigami/ModIoManager/scanner"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	ModIoAPIToken  string `mapstructure:"MODIO_API_TOKEN"`
	ModIoBaseURL   string `mapstructure:"MODIO_BASE_URL"`
	GameID         int    `mapstructure:"GAME_ID"`
	ModDir         string `mapstructure:"MOD_DIR"` // autodetected from the game config when unset
	TargetPlatform string `mapstructure:"TARGET_PLATFORM"`
	PageLimit      int    `mapstructure:"PAGE_LIMIT"`
	UserAgent      string `mapstructure:"USERAGENT"`
	DownloadDir    string `mapstructure:"DOWNLOAD_DIR"`
	DatabasePath   string `mapstructure:"-"` // Not from env, derived
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	// Bind environment variables automatically.
	// Viper will check for an environment variable matching the key name (e.g., MODIO_API_TOKEN)
	viper.AutomaticEnv()

	for key, env := range map[string]string{
		"modio_api_token": "MODIO_API_TOKEN",
		"modio_base_url":  "MODIO_BASE_URL",
		"game_id":         "GAME_ID",
		"mod_dir":         "MOD_DIR",
		"target_platform": "TARGET_PLATFORM",
		"page_limit":      "PAGE_LIMIT",
		"useragent":       "USERAGENT",
		"download_dir":    "DOWNLOAD_DIR",
	} {
		if bindErr := viper.BindEnv(key, env); bindErr != nil {
			slog.Warn("Unable to bind env var", "var", env, "error", bindErr)
		}
	}

	// Unmarshal the config
	if vipErr := viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}

	// Derive DatabasePath (place it in the mod dir for portability)
	config.DatabasePath = filepath.Join(config.ModDir, "modio-manager.db")

	return config, nil
}

// processConfigDefaults fills in defaults for values that were not provided.
func processConfigDefaults(config *Config) {
	if config.ModIoBaseURL == "" {
		config.ModIoBaseURL = "https://api.mod.io/v1"
	}
	if config.TargetPlatform == "" {
		config.TargetPlatform = "windows" // The game only ships mod support on Windows
	}
	if config.PageLimit <= 0 {
		config.PageLimit = 50 // mod.io default page size and id filter limit
	}
	if config.UserAgent == "" {
		config.UserAgent = "modio-manager/dev (unknown-user)"
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}
	if config.DownloadDir == "" {
		config.DownloadDir = "download"
	}
}

// validateAndEnsureDirectories resolves the mod directory (autodetecting it
// from the game configuration when unset) and makes sure it exists.
func validateAndEnsureDirectories(config *Config) error {
	if config.GameID == 0 {
		slog.Error("GAME_ID is not set")
		return fmt.Errorf("GAME_ID is required")
	}

	if config.ModDir == "" {
		config.ModDir = scanner.AutodetectModPath()
		if config.ModDir == "" {
			slog.Error("MOD_DIR is not set and could not be autodetected")
			return fmt.Errorf("MOD_DIR is required")
		}
		slog.Info("Autodetected mod directory", "path", config.ModDir)
	}

	if _, err := os.Stat(config.ModDir); os.IsNotExist(err) {
		slog.Info("Mod directory does not exist, creating it", "path", config.ModDir)
		if err := os.MkdirAll(config.ModDir, 0755); err != nil {
			slog.Error("Failed to create mod directory", "path", config.ModDir, "error", err)
			return err
		}
	} else if err != nil {
		slog.Error("Failed to check mod directory", "path", config.ModDir, "error", err)
		return err
	}

	return nil
}
