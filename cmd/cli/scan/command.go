package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/report"
	pipeline "github.com/monkeycs60/vibereport/internal/scan"
)

const (
	commandUseConstant                     = "scan [repository]"
	commandShortDescriptionConstant        = "Scan one repository and report its score"
	commandLongDescriptionConstant         = "scan analyzes a repository's commit history and working tree, classifies commit authorship, and prints the resulting grade and narrative. The argument may be a local checkout path or a remote reference such as owner/repo."
	sinceFlagNameConstant                  = "since"
	sinceFlagDescriptionConstant           = "History cutoff: 6m, 1y, 2y, all, or a YYYY-MM-DD date"
	remoteFlagNameConstant                 = "remote"
	remoteFlagDescriptionConstant          = "Treat the argument as a remote reference even when a matching local path exists"
	jsonFlagNameConstant                   = "json"
	jsonFlagDescriptionConstant            = "Emit the full scan result as JSON"
	repositoryArgumentRequiredMessage      = "repository argument required; provide a local path or a reference such as owner/repo"
	scanServiceUnavailableTemplateConstant = "unable to construct scan pipeline: %w"
	referenceResolutionTemplateConstant    = "unable to resolve repository %q: %w"
	cutoffParseErrorTemplateConstant       = "unable to parse --since value: %w"
	resultEncodeErrorTemplateConstant      = "unable to encode scan result: %w"
	jsonIndentConstant                     = "  "
	textSummaryTemplateConstant            = "%s\n  grade: %s (%d points)\n  assisted: %d/%d commits (%.1f%%)\n  source: %s%s\n\n%s\n"
	partialSuffixConstant                  = " (partial)"
)

// ScanService runs the scoring pipeline for one repository.
type ScanService interface {
	RunScan(executionContext context.Context, reference gitrepo.RepositoryReference, cutoff time.Time, executionClass pipeline.ExecutionClass) (report.ScanResult, error)
}

// ReferenceResolver derives the remote identity of a local checkout.
type ReferenceResolver interface {
	ResolveLocalReference(executionContext context.Context, repositoryPath string) (gitrepo.RepositoryReference, error)
}

// CommandBuilder assembles the scan command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ScanServiceProvider   func() (ScanService, error)
	ResolverProvider      func() (ReferenceResolver, error)
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the scan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	command.Flags().String(sinceFlagNameConstant, "", sinceFlagDescriptionConstant)
	command.Flags().Bool(remoteFlagNameConstant, false, remoteFlagDescriptionConstant)
	command.Flags().Bool(jsonFlagNameConstant, false, jsonFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errors.New(repositoryArgumentRequiredMessage)
	}

	configuration := builder.resolveConfiguration().sanitize()

	sinceExpression := configuration.Since
	if command.Flags().Changed(sinceFlagNameConstant) {
		sinceExpression, _ = command.Flags().GetString(sinceFlagNameConstant)
	}
	cutoff, cutoffError := pipeline.ParseCutoff(sinceExpression, time.Now())
	if cutoffError != nil {
		return fmt.Errorf(cutoffParseErrorTemplateConstant, cutoffError)
	}

	forceRemote, _ := command.Flags().GetBool(remoteFlagNameConstant)
	emitJSON, _ := command.Flags().GetBool(jsonFlagNameConstant)

	reference, referenceError := builder.resolveReference(command.Context(), strings.TrimSpace(arguments[0]), forceRemote)
	if referenceError != nil {
		return fmt.Errorf(referenceResolutionTemplateConstant, arguments[0], referenceError)
	}

	scanService, serviceError := builder.resolveScanService()
	if serviceError != nil {
		return fmt.Errorf(scanServiceUnavailableTemplateConstant, serviceError)
	}

	scanResult, scanError := scanService.RunScan(command.Context(), reference, cutoff, pipeline.ExecutionClassInteractive)
	if scanError != nil {
		return scanError
	}

	if emitJSON {
		encodedResult, encodeError := json.MarshalIndent(scanResult, "", jsonIndentConstant)
		if encodeError != nil {
			return fmt.Errorf(resultEncodeErrorTemplateConstant, encodeError)
		}
		fmt.Fprintln(command.OutOrStdout(), string(encodedResult))
		return nil
	}

	printTextSummary(command, scanResult)
	return nil
}

// resolveReference maps the positional argument to a repository identity. A
// path that exists on disk is treated as a local checkout unless --remote
// forces reference parsing.
func (builder *CommandBuilder) resolveReference(executionContext context.Context, argument string, forceRemote bool) (gitrepo.RepositoryReference, error) {
	if !forceRemote {
		if pathInfo, statError := os.Stat(argument); statError == nil && pathInfo.IsDir() {
			resolver, resolverError := builder.resolveResolver()
			if resolverError != nil {
				return gitrepo.RepositoryReference{}, resolverError
			}
			return resolver.ResolveLocalReference(executionContext, argument)
		}
	}
	return gitrepo.ParseRepositoryReference(argument)
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

func (builder *CommandBuilder) resolveResolver() (ReferenceResolver, error) {
	if builder.ResolverProvider == nil {
		return nil, errors.New(resolverNotConfiguredMessageConstant)
	}
	return builder.ResolverProvider()
}

func printTextSummary(command *cobra.Command, scanResult report.ScanResult) {
	partialSuffix := ""
	if scanResult.Partial {
		partialSuffix = partialSuffixConstant
	}
	fmt.Fprintf(
		command.OutOrStdout(),
		textSummaryTemplateConstant,
		scanResult.Reference.CanonicalIdentifier(),
		scanResult.Score.Grade,
		scanResult.Score.Points,
		scanResult.Attribution.AssistedCommits,
		scanResult.Attribution.TotalCommits,
		scanResult.Attribution.AssistedRatio()*100,
		scanResult.Source,
		partialSuffix,
		scanResult.Narrative,
	)
}
