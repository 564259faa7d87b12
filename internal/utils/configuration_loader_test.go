package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/internal/utils"
)

const (
	testConfigurationNameConstant   = "config"
	testConfigurationTypeConstant   = "yaml"
	testEnvironmentPrefixConstant   = "VIBEREPORT"
	testLogLevelDefaultsKeyConstant = "common.log_level"
	testConfigurationFileName       = "config.yaml"
	testConfigurationContent        = "common:\n  log_level: debug\n"
)

type testConfiguration struct {
	Common struct {
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"common"`
}

func newTestLoader(searchPaths []string) *utils.ConfigurationLoader {
	return utils.NewConfigurationLoader(
		testConfigurationNameConstant,
		testConfigurationTypeConstant,
		testEnvironmentPrefixConstant,
		searchPaths,
	)
}

func TestLoadConfigurationAppliesDefaultsWithoutFile(testInstance *testing.T) {
	loader := newTestLoader([]string{testInstance.TempDir()})

	var configuration testConfiguration
	metadata, loadError := loader.LoadConfiguration("", map[string]any{testLogLevelDefaultsKeyConstant: "info"}, &configuration)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, metadata.ConfigFileUsed)
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
}

func TestLoadConfigurationReadsExplicitFile(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(configurationDirectory, testConfigurationFileName)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testConfigurationContent), 0o644))

	loader := newTestLoader([]string{configurationDirectory})

	var configuration testConfiguration
	metadata, loadError := loader.LoadConfiguration(configurationFilePath, map[string]any{testLogLevelDefaultsKeyConstant: "info"}, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
}

func TestLoadConfigurationHonorsEnvironmentOverride(testInstance *testing.T) {
	testInstance.Setenv("VIBEREPORT_COMMON_LOG_LEVEL", "warn")
	loader := newTestLoader([]string{testInstance.TempDir()})

	var configuration testConfiguration
	_, loadError := loader.LoadConfiguration("", map[string]any{testLogLevelDefaultsKeyConstant: "info"}, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
}
