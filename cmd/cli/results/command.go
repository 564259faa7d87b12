package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/monkeycs60/vibereport/internal/store"
)

const (
	commandUseConstant                     = "results"
	commandShortDescriptionConstant        = "List previously recorded scan results"
	commandLongDescriptionConstant         = "results prints the recorded scans ordered by score, highest first. Each repository appears once regardless of how many times it was scanned."
	limitFlagNameConstant                  = "limit"
	limitFlagDescriptionConstant           = "Maximum number of results to print"
	jsonFlagNameConstant                   = "json"
	jsonFlagDescriptionConstant            = "Emit results as JSON"
	defaultLimitConstant                   = 20
	storeUnavailableTemplateConstant       = "unable to open results store: %w"
	listResultsErrorTemplateConstant       = "unable to list scan results: %w"
	resultsEncodeErrorTemplateConstant     = "unable to encode results: %w"
	jsonIndentConstant                     = "  "
	resultLineTemplateConstant             = "%s/%s/%s\t%s\t%d\t%s\tscans=%d\tlast=%s\n"
	noResultsMessageConstant               = "no scan results recorded yet"
	resultStoreNotConfiguredMessageMissing = "result store not configured"
	lastScanTimestampLayoutConstant        = time.RFC3339
)

// ResultLister reads recorded scan results.
type ResultLister interface {
	ListResults(executionContext context.Context, limit int) ([]store.StoredResult, error)
}

// CommandBuilder assembles the results command.
type CommandBuilder struct {
	ResultListerProvider func() (ResultLister, error)
}

// Build constructs the results command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().Int(limitFlagNameConstant, defaultLimitConstant, limitFlagDescriptionConstant)
	command.Flags().Bool(jsonFlagNameConstant, false, jsonFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if builder.ResultListerProvider == nil {
		return errors.New(resultStoreNotConfiguredMessageMissing)
	}
	resultLister, listerError := builder.ResultListerProvider()
	if listerError != nil {
		return fmt.Errorf(storeUnavailableTemplateConstant, listerError)
	}

	limit, _ := command.Flags().GetInt(limitFlagNameConstant)
	emitJSON, _ := command.Flags().GetBool(jsonFlagNameConstant)

	storedResults, listError := resultLister.ListResults(command.Context(), limit)
	if listError != nil {
		return fmt.Errorf(listResultsErrorTemplateConstant, listError)
	}

	if emitJSON {
		encodedResults, encodeError := json.MarshalIndent(storedResults, "", jsonIndentConstant)
		if encodeError != nil {
			return fmt.Errorf(resultsEncodeErrorTemplateConstant, encodeError)
		}
		fmt.Fprintln(command.OutOrStdout(), string(encodedResults))
		return nil
	}

	if len(storedResults) == 0 {
		fmt.Fprintln(command.OutOrStdout(), noResultsMessageConstant)
		return nil
	}

	for _, storedResult := range storedResults {
		fmt.Fprintf(
			command.OutOrStdout(),
			resultLineTemplateConstant,
			storedResult.Host,
			storedResult.Owner,
			storedResult.Name,
			storedResult.Grade,
			storedResult.Points,
			storedResult.Source,
			storedResult.ScanCount,
			storedResult.LastScannedAt.Format(lastScanTimestampLayoutConstant),
		)
	}
	return nil
}
