package cli

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	batchcmd "github.com/monkeycs60/vibereport/cmd/cli/batch"
	resultscmd "github.com/monkeycs60/vibereport/cmd/cli/results"
	scancmd "github.com/monkeycs60/vibereport/cmd/cli/scan"
	"github.com/monkeycs60/vibereport/internal/utils"
)

const (
	applicationNameConstant                 = "vibereport"
	applicationShortDescriptionConstant     = "Score repositories by how their commit history was authored"
	applicationLongDescriptionConstant      = "vibereport scans git repositories, classifies each commit as human- or assistant-authored, detects hygiene indicators in the working tree, and records a graded report for every repository it has seen."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	storeConfigurationKeyConstant           = "store"
	storePathConfigKeyConstant              = storeConfigurationKeyConstant + ".path"
	githubConfigurationKeyConstant          = "github"
	githubAPIBaseURLConfigKeyConstant       = githubConfigurationKeyConstant + ".api_base_url"
	githubTokenConfigKeyConstant            = githubConfigurationKeyConstant + ".token"
	classifierConfigurationKeyConstant      = "classifier"
	classifierRulesFileConfigKeyConstant    = classifierConfigurationKeyConstant + ".rules_file"
	environmentPrefixConstant               = "VIBEREPORT"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	storeCloseErrorTemplateConstant         = "unable to close results store: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	rootCommandInfoMessageConstant          = "vibereport CLI executed"
	rootCommandDebugMessageConstant         = "vibereport CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	defaultConfigurationSearchPathConstant  = "."
	defaultStorePathConstant                = "vibereport.db"
	toolsConfigurationKeyConstant           = "tools"
	scanConfigurationKeyConstant            = toolsConfigurationKeyConstant + ".scan"
	batchConfigurationKeyConstant           = toolsConfigurationKeyConstant + ".batch"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration `mapstructure:"common"`
	Store      StoreConfiguration             `mapstructure:"store"`
	GitHub     GitHubConfiguration            `mapstructure:"github"`
	Classifier ClassifierConfiguration        `mapstructure:"classifier"`
	Tools      ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// StoreConfiguration locates the results database.
type StoreConfiguration struct {
	Path string `mapstructure:"path"`
}

// GitHubConfiguration configures the commit-listing API used by the crawl
// fallback. The token is optional; without it the crawler runs against the
// anonymous rate limit.
type GitHubConfiguration struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	Token      string `mapstructure:"token"`
}

// ClassifierConfiguration optionally replaces the built-in authorship rules
// with a YAML rule file.
type ClassifierConfiguration struct {
	RulesFile string `mapstructure:"rules_file"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool.
type ApplicationToolsConfiguration struct {
	Scan  scancmd.CommandConfiguration  `mapstructure:"scan"`
	Batch batchcmd.CommandConfiguration `mapstructure:"batch"`
}

// Application wires the Cobra root command, configuration loader, structured
// logger, and the lazily assembled scan pipeline.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
	pipelineFactory        pipelineFactory
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	scanBuilder := scancmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ScanServiceProvider: application.scanServiceProvider,
		ResolverProvider:    application.referenceResolverProvider,
		ConfigurationProvider: func() scancmd.CommandConfiguration {
			return application.configuration.Tools.Scan
		},
	}
	scanCommand, scanBuildError := scanBuilder.Build()
	if scanBuildError == nil {
		cobraCommand.AddCommand(scanCommand)
	}

	batchBuilder := batchcmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ScanServiceProvider: application.batchScanServiceProvider,
		ResolverProvider:    application.batchReferenceResolverProvider,
		ConfigurationProvider: func() batchcmd.CommandConfiguration {
			return application.configuration.Tools.Batch
		},
	}
	batchCommand, batchBuildError := batchBuilder.Build()
	if batchBuildError == nil {
		cobraCommand.AddCommand(batchCommand)
	}

	resultsBuilder := resultscmd.CommandBuilder{
		ResultListerProvider: application.resultListerProvider,
	}
	resultsCommand, resultsBuildError := resultsBuilder.Build()
	if resultsBuildError == nil {
		cobraCommand.AddCommand(resultsCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, closes the pipeline,
// and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if closeError := application.closePipeline(); closeError != nil && executionError == nil {
		executionError = fmt.Errorf(storeCloseErrorTemplateConstant, closeError)
	}
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// RootCommand exposes the assembled Cobra root for embedding and tests.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

func (application *Application) scanServiceProvider() (scancmd.ScanService, error) {
	builtPipeline, pipelineError := application.pipelineFactory.pipelineInstance(application)
	if pipelineError != nil {
		return nil, pipelineError
	}
	return builtPipeline.orchestrator, nil
}

func (application *Application) referenceResolverProvider() (scancmd.ReferenceResolver, error) {
	builtPipeline, pipelineError := application.pipelineFactory.pipelineInstance(application)
	if pipelineError != nil {
		return nil, pipelineError
	}
	return builtPipeline.repositoryManager, nil
}

func (application *Application) batchScanServiceProvider() (batchcmd.ScanService, error) {
	builtPipeline, pipelineError := application.pipelineFactory.pipelineInstance(application)
	if pipelineError != nil {
		return nil, pipelineError
	}
	return builtPipeline.orchestrator, nil
}

func (application *Application) batchReferenceResolverProvider() (batchcmd.ReferenceResolver, error) {
	builtPipeline, pipelineError := application.pipelineFactory.pipelineInstance(application)
	if pipelineError != nil {
		return nil, pipelineError
	}
	return builtPipeline.repositoryManager, nil
}

func (application *Application) resultListerProvider() (resultscmd.ResultLister, error) {
	builtPipeline, pipelineError := application.pipelineFactory.pipelineInstance(application)
	if pipelineError != nil {
		return nil, pipelineError
	}
	return builtPipeline.resultStore, nil
}

func (application *Application) closePipeline() error {
	if application.pipelineFactory.builtPipeline == nil {
		return nil
	}
	return application.pipelineFactory.builtPipeline.resultStore.Close()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:      string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:     string(utils.LogFormatStructured),
		storePathConfigKeyConstant:           defaultStorePathConstant,
		githubAPIBaseURLConfigKeyConstant:    "",
		githubTokenConfigKeyConstant:         "",
		classifierRulesFileConfigKeyConstant: "",
	}
	for configurationKey, configurationValue := range scancmd.DefaultConfigurationValues(scanConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range batchcmd.DefaultConfigurationValues(batchConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
