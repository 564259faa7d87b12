package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/cmd/cli"
)

const (
	scanCommandNameConstant    = "scan"
	batchCommandNameConstant   = "batch"
	resultsCommandNameConstant = "results"
	logLevelFlagConstant       = "--log-level"
	invalidLogLevelConstant    = "noisy"
	unknownCommandConstant     = "report-card"
)

func TestNewApplicationRegistersSubcommands(testInstance *testing.T) {
	application := cli.NewApplication()
	require.NotNil(testInstance, application)

	rootCommand := application.RootCommand()
	require.NotNil(testInstance, rootCommand)

	registeredNames := make(map[string]struct{})
	for _, subcommand := range rootCommand.Commands() {
		registeredNames[subcommand.Name()] = struct{}{}
	}

	require.Contains(testInstance, registeredNames, scanCommandNameConstant)
	require.Contains(testInstance, registeredNames, batchCommandNameConstant)
	require.Contains(testInstance, registeredNames, resultsCommandNameConstant)
}

func TestApplicationRootCommandPrintsHelp(testInstance *testing.T) {
	application := cli.NewApplication()
	rootCommand := application.RootCommand()

	outputBuffer := &bytes.Buffer{}
	rootCommand.SetOut(outputBuffer)
	rootCommand.SetErr(outputBuffer)
	rootCommand.SetArgs([]string{})

	require.NoError(testInstance, application.Execute())
	require.Contains(testInstance, outputBuffer.String(), scanCommandNameConstant)
}

func TestApplicationRejectsInvalidLogLevel(testInstance *testing.T) {
	application := cli.NewApplication()
	rootCommand := application.RootCommand()

	rootCommand.SetOut(&bytes.Buffer{})
	rootCommand.SetErr(&bytes.Buffer{})
	rootCommand.SetArgs([]string{logLevelFlagConstant, invalidLogLevelConstant})

	require.Error(testInstance, application.Execute())
}

func TestApplicationRejectsUnknownCommand(testInstance *testing.T) {
	application := cli.NewApplication()
	rootCommand := application.RootCommand()

	rootCommand.SetOut(&bytes.Buffer{})
	rootCommand.SetErr(&bytes.Buffer{})
	rootCommand.SetArgs([]string{unknownCommandConstant})

	require.Error(testInstance, application.Execute())
}
