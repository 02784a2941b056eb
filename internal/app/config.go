// Package app provides application lifecycle management.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekarat/bookwright/internal/export"
	"github.com/ekarat/bookwright/pkg/types"
)

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ConfigManager handles the user-wide configuration.
type ConfigManager struct {
	globalConfigPath string
	globalConfig     *types.GlobalConfig
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager() (*ConfigManager, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	return &ConfigManager{
		globalConfigPath: filepath.Join(configDir, "config.yaml"),
	}, nil
}

// getConfigDir returns the configuration directory path.
func getConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "bookwright"), nil
}

// LoadGlobalConfig loads the global configuration.
func (cm *ConfigManager) LoadGlobalConfig() (*types.GlobalConfig, error) {
	if cm.globalConfig != nil {
		return cm.globalConfig, nil
	}

	data, err := os.ReadFile(cm.globalConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			cm.globalConfig = types.DefaultGlobalConfig()
			cm.globalConfig.LibraryDB = expandPath(cm.globalConfig.LibraryDB)
			return cm.globalConfig, nil
		}
		return nil, fmt.Errorf("failed to read global config: %w", err)
	}

	var config types.GlobalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}

	// Expand environment variables in API keys
	for name, provider := range config.Providers {
		if strings.HasPrefix(provider.APIKey, "${") && strings.HasSuffix(provider.APIKey, "}") {
			envVar := provider.APIKey[2 : len(provider.APIKey)-1]
			provider.APIKey = os.Getenv(envVar)
			config.Providers[name] = provider
		}
	}

	// Expand ~ in the library database path
	if config.LibraryDB == "" {
		config.LibraryDB = types.DefaultGlobalConfig().LibraryDB
	}
	config.LibraryDB = expandPath(config.LibraryDB)

	cm.globalConfig = &config
	return cm.globalConfig, nil
}

// SaveGlobalConfig saves the global configuration.
func (cm *ConfigManager) SaveGlobalConfig(config *types.GlobalConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := export.AtomicWriteFile(cm.globalConfigPath, data); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cm.globalConfig = config
	return nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetProviderConfig returns the configuration for a specific provider.
func (cm *ConfigManager) GetProviderConfig(providerName string) (*types.ProviderConfig, error) {
	config, err := cm.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}

	provider, ok := config.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", providerName)
	}

	return provider, nil
}

// ResolveAISettings resolves the provider selection for a generation
// call. An empty providerName uses the configured default; an empty
// model falls back to the provider's default model.
func (cm *ConfigManager) ResolveAISettings(providerName, model string) (types.AISettings, error) {
	config, err := cm.LoadGlobalConfig()
	if err != nil {
		return types.AISettings{}, err
	}

	if providerName == "" {
		providerName = config.Defaults.Provider
	}

	settings := types.AISettings{Provider: providerName, Model: model}
	if provider, ok := config.Providers[providerName]; ok {
		settings.APIKey = provider.APIKey
		settings.BaseURL = provider.BaseURL
		if settings.Model == "" {
			settings.Model = provider.DefaultModel
		}
	}
	return settings, nil
}
