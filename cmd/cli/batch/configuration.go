package batch

import "strings"

const (
	configurationSinceKeyConstant        = "since"
	configurationRootsKeyConstant        = "roots"
	scanServiceNotConfiguredMessage      = "scan service not configured"
	resolverNotConfiguredMessageConstant = "reference resolver not configured"
)

// CommandConfiguration captures configuration values for batch.
type CommandConfiguration struct {
	Since string   `mapstructure:"since"`
	Roots []string `mapstructure:"roots"`
}

// DefaultCommandConfiguration provides default batch command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Since: "", Roots: nil}
}

// DefaultConfigurationValues produces Viper defaults for the batch command.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + "." + configurationSinceKeyConstant: defaults.Since,
		rootKey + "." + configurationRootsKeyConstant: defaults.Roots,
	}
}

// sanitize normalizes configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Since = strings.TrimSpace(configuration.Since)
	sanitized.Roots = trimRoots(configuration.Roots)
	return sanitized
}
