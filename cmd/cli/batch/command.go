package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monkeycs60/vibereport/internal/discovery"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/report"
	pipeline "github.com/monkeycs60/vibereport/internal/scan"
)

const (
	commandUseConstant                     = "batch [reference ...]"
	commandShortDescriptionConstant        = "Scan many repositories under the batch pool"
	commandLongDescriptionConstant         = "batch scans every repository named by positional references and every git checkout discovered under --roots directories. Scans run concurrently and share the batch concurrency pool, so a long batch never starves interactive scans."
	rootsFlagNameConstant                  = "roots"
	rootsFlagDescriptionConstant           = "Root directories to search for git repositories"
	sinceFlagNameConstant                  = "since"
	sinceFlagDescriptionConstant           = "History cutoff: 6m, 1y, 2y, all, or a YYYY-MM-DD date"
	targetsRequiredMessageConstant         = "no repositories to scan; provide references or --roots directories"
	scanServiceUnavailableTemplateConstant = "unable to construct scan pipeline: %w"
	cutoffParseErrorTemplateConstant       = "unable to parse --since value: %w"
	discoveryErrorTemplateConstant         = "unable to discover repositories: %w"
	referenceParseErrorTemplateConstant    = "unable to parse reference %q: %w"
	batchFailureTemplateConstant           = "%d of %d scans failed"
	batchLineTemplateConstant              = "%s\t%s\t%d\n"
	batchFailedLineTemplateConstant        = "%s\tFAILED\t%v\n"
	logMessageLocalResolveFailedConstant   = "skipping repository without resolvable origin remote"
	logMessageScanFailedConstant           = "batch scan failed"
	logFieldRepositoryConstant             = "repository"
	logFieldPathConstant                   = "path"
)

// ScanService runs the scoring pipeline for one repository.
type ScanService interface {
	RunScan(executionContext context.Context, reference gitrepo.RepositoryReference, cutoff time.Time, executionClass pipeline.ExecutionClass) (report.ScanResult, error)
}

// ReferenceResolver derives the remote identity of a local checkout.
type ReferenceResolver interface {
	ResolveLocalReference(executionContext context.Context, repositoryPath string) (gitrepo.RepositoryReference, error)
}

// RepositoryDiscoverer locates git checkouts beneath filesystem roots.
type RepositoryDiscoverer interface {
	DiscoverRepositories(roots []string) ([]string, error)
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the batch command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ScanServiceProvider   func() (ScanService, error)
	ResolverProvider      func() (ReferenceResolver, error)
	Discoverer            RepositoryDiscoverer
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the batch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().StringSlice(rootsFlagNameConstant, nil, rootsFlagDescriptionConstant)
	command.Flags().String(sinceFlagNameConstant, "", sinceFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration().sanitize()

	sinceExpression := configuration.Since
	if command.Flags().Changed(sinceFlagNameConstant) {
		sinceExpression, _ = command.Flags().GetString(sinceFlagNameConstant)
	}
	cutoff, cutoffError := pipeline.ParseCutoff(sinceExpression, time.Now())
	if cutoffError != nil {
		return fmt.Errorf(cutoffParseErrorTemplateConstant, cutoffError)
	}

	flagRoots, _ := command.Flags().GetStringSlice(rootsFlagNameConstant)
	roots := determineRoots(flagRoots, configuration.Roots)

	references, collectError := builder.collectReferences(command.Context(), logger, arguments, roots)
	if collectError != nil {
		return collectError
	}
	if len(references) == 0 {
		return errors.New(targetsRequiredMessageConstant)
	}

	scanService, serviceError := builder.resolveScanService()
	if serviceError != nil {
		return fmt.Errorf(scanServiceUnavailableTemplateConstant, serviceError)
	}

	return builder.scanAll(command, logger, scanService, references, cutoff)
}

// collectReferences merges positional references with repositories discovered
// under the filesystem roots. Checkouts without a parseable origin remote are
// skipped with a warning rather than failing the whole batch.
func (builder *CommandBuilder) collectReferences(executionContext context.Context, logger *zap.Logger, arguments []string, roots []string) ([]gitrepo.RepositoryReference, error) {
	references := make([]gitrepo.RepositoryReference, 0, len(arguments))
	seenIdentifiers := make(map[string]struct{})

	appendReference := func(reference gitrepo.RepositoryReference) {
		identifier := reference.CanonicalIdentifier()
		if _, alreadySeen := seenIdentifiers[identifier]; alreadySeen {
			return
		}
		seenIdentifiers[identifier] = struct{}{}
		references = append(references, reference)
	}

	for _, argument := range arguments {
		reference, parseError := gitrepo.ParseRepositoryReference(argument)
		if parseError != nil {
			return nil, fmt.Errorf(referenceParseErrorTemplateConstant, argument, parseError)
		}
		appendReference(reference)
	}

	if len(roots) == 0 {
		return references, nil
	}

	repositoryPaths, discoveryError := builder.resolveDiscoverer().DiscoverRepositories(roots)
	if discoveryError != nil {
		return nil, fmt.Errorf(discoveryErrorTemplateConstant, discoveryError)
	}

	if len(repositoryPaths) == 0 {
		return references, nil
	}

	resolver, resolverError := builder.resolveResolver()
	if resolverError != nil {
		return nil, resolverError
	}

	for _, repositoryPath := range repositoryPaths {
		reference, resolveError := resolver.ResolveLocalReference(executionContext, repositoryPath)
		if resolveError != nil {
			logger.Warn(
				logMessageLocalResolveFailedConstant,
				zap.String(logFieldPathConstant, repositoryPath),
				zap.Error(resolveError),
			)
			continue
		}
		appendReference(reference)
	}

	return references, nil
}

// scanAll runs every scan concurrently. The orchestrator's batch pool bounds
// actual parallelism; the errgroup here only collects results. Individual
// failures are reported per line and folded into one summary error.
func (builder *CommandBuilder) scanAll(command *cobra.Command, logger *zap.Logger, scanService ScanService, references []gitrepo.RepositoryReference, cutoff time.Time) error {
	type scanOutcome struct {
		reference  gitrepo.RepositoryReference
		scanResult report.ScanResult
		scanError  error
	}

	outcomes := make([]scanOutcome, len(references))
	executionGroup, groupContext := errgroup.WithContext(command.Context())
	for referenceIndex, reference := range references {
		executionGroup.Go(func() error {
			scanResult, scanError := scanService.RunScan(groupContext, reference, cutoff, pipeline.ExecutionClassBatch)
			outcomes[referenceIndex] = scanOutcome{reference: reference, scanResult: scanResult, scanError: scanError}
			return nil
		})
	}
	if waitError := executionGroup.Wait(); waitError != nil {
		return waitError
	}

	failureCount := 0
	for _, outcome := range outcomes {
		if outcome.scanError != nil {
			failureCount++
			logger.Warn(
				logMessageScanFailedConstant,
				zap.String(logFieldRepositoryConstant, outcome.reference.CanonicalIdentifier()),
				zap.Error(outcome.scanError),
			)
			fmt.Fprintf(command.OutOrStdout(), batchFailedLineTemplateConstant, outcome.reference.CanonicalIdentifier(), outcome.scanError)
			continue
		}
		fmt.Fprintf(
			command.OutOrStdout(),
			batchLineTemplateConstant,
			outcome.reference.CanonicalIdentifier(),
			outcome.scanResult.Score.Grade,
			outcome.scanResult.Score.Points,
		)
	}

	if failureCount > 0 {
		return fmt.Errorf(batchFailureTemplateConstant, failureCount, len(references))
	}
	return nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return CommandConfiguration{}
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveScanService() (ScanService, error) {
	if builder.ScanServiceProvider == nil {
		return nil, errors.New(scanServiceNotConfiguredMessage)
	}
	return builder.ScanServiceProvider()
}

func (builder *CommandBuilder) resolveDiscoverer() RepositoryDiscoverer {
	if builder.Discoverer != nil {
		return builder.Discoverer
	}
	return discovery.NewFilesystemRepositoryDiscoverer()
}

func (builder *CommandBuilder) resolveResolver() (ReferenceResolver, error) {
	if builder.ResolverProvider == nil {
		return nil, errors.New(resolverNotConfiguredMessageConstant)
	}
	return builder.ResolverProvider()
}

func determineRoots(flagValues []string, configured []string) []string {
	trimmedFlagRoots := trimRoots(flagValues)
	if len(trimmedFlagRoots) > 0 {
		return trimmedFlagRoots
	}
	return trimRoots(configured)
}

func trimRoots(raw []string) []string {
	trimmed := make([]string, 0, len(raw))
	for _, candidate := range raw {
		value := strings.TrimSpace(candidate)
		if len(value) == 0 {
			continue
		}
		trimmed = append(trimmed, value)
	}
	return trimmed
}
