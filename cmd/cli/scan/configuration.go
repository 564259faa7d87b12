package scan

import (
	"strings"

	"go.uber.org/zap"
)

const (
	configurationSinceKeyConstant        = "since"
	scanServiceNotConfiguredMessage      = "scan service not configured"
	resolverNotConfiguredMessageConstant = "reference resolver not configured"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandConfiguration captures configuration values for scan.
type CommandConfiguration struct {
	Since string `mapstructure:"since"`
}

// DefaultCommandConfiguration provides default scan command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Since: ""}
}

// DefaultConfigurationValues produces Viper defaults for the scan command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationSinceKeyConstant: defaults.Since,
	}
}

// sanitize normalizes configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Since = strings.TrimSpace(configuration.Since)
	return sanitized
}
