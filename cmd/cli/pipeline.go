package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/cloneanalyzer"
	"github.com/monkeycs60/vibereport/internal/crawler"
	"github.com/monkeycs60/vibereport/internal/execshell"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/metrics"
	pipeline "github.com/monkeycs60/vibereport/internal/scan"
	"github.com/monkeycs60/vibereport/internal/store"
)

const (
	shellExecutorErrorTemplateConstant     = "unable to construct shell executor: %w"
	repositoryManagerErrorTemplateConstant = "unable to construct repository manager: %w"
	classifierRulesErrorTemplateConstant   = "unable to load classifier rules from %s: %w"
	analyzerErrorTemplateConstant          = "unable to construct clone analyzer: %w"
	crawlerErrorTemplateConstant           = "unable to construct history crawler: %w"
	storeOpenErrorTemplateConstant         = "unable to open results store at %s: %w"
	orchestratorErrorTemplateConstant      = "unable to construct scan orchestrator: %w"
)

// scanPipeline bundles the assembled scan stack so commands can share one
// orchestrator and the application can close the store once on exit.
type scanPipeline struct {
	orchestrator      *pipeline.Orchestrator
	repositoryManager *gitrepo.RepositoryManager
	resultStore       *store.Store
}

// pipelineFactory builds the scan pipeline on first use. Commands that never
// scan (help, results against a missing store) must not pay for git or
// database setup, so assembly is deferred and memoized.
type pipelineFactory struct {
	buildOnce     sync.Once
	builtPipeline *scanPipeline
	buildError    error
}

func (factory *pipelineFactory) pipelineInstance(application *Application) (*scanPipeline, error) {
	factory.buildOnce.Do(func() {
		factory.builtPipeline, factory.buildError = application.buildScanPipeline()
	})
	return factory.builtPipeline, factory.buildError
}

func (application *Application) buildScanPipeline() (*scanPipeline, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(application.logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, fmt.Errorf(shellExecutorErrorTemplateConstant, executorError)
	}

	repositoryManager, managerError := gitrepo.NewRepositoryManager(shellExecutor)
	if managerError != nil {
		return nil, fmt.Errorf(repositoryManagerErrorTemplateConstant, managerError)
	}

	classifier, classifierError := application.buildClassifier()
	if classifierError != nil {
		return nil, classifierError
	}

	analyzer, analyzerError := cloneanalyzer.NewAnalyzer(
		repositoryManager,
		classifier,
		application.logger,
		cloneanalyzer.AnalyzerOptions{},
	)
	if analyzerError != nil {
		return nil, fmt.Errorf(analyzerErrorTemplateConstant, analyzerError)
	}

	pageFetcher := crawler.NewGitHubPageFetcher(crawler.GitHubPageFetcherOptions{
		BaseURL:   application.configuration.GitHub.APIBaseURL,
		AuthToken: application.configuration.GitHub.Token,
	})
	historyCrawler, crawlerError := crawler.NewCrawler(pageFetcher, classifier, application.logger)
	if crawlerError != nil {
		return nil, fmt.Errorf(crawlerErrorTemplateConstant, crawlerError)
	}

	resultStore, storeError := store.Open(application.configuration.Store.Path, application.logger)
	if storeError != nil {
		return nil, fmt.Errorf(storeOpenErrorTemplateConstant, application.configuration.Store.Path, storeError)
	}

	orchestrator, orchestratorError := pipeline.NewOrchestrator(
		analyzer,
		historyCrawler,
		resultStore,
		metrics.NewRecorder(),
		nil,
		application.logger,
		pipeline.Options{},
	)
	if orchestratorError != nil {
		_ = resultStore.Close()
		return nil, fmt.Errorf(orchestratorErrorTemplateConstant, orchestratorError)
	}

	return &scanPipeline{
		orchestrator:      orchestrator,
		repositoryManager: repositoryManager,
		resultStore:       resultStore,
	}, nil
}

func (application *Application) buildClassifier() (*classify.Classifier, error) {
	rulesFilePath := application.configuration.Classifier.RulesFile
	if len(rulesFilePath) == 0 {
		return classify.NewClassifier(), nil
	}
	rulesDocument, readError := os.ReadFile(rulesFilePath)
	if readError != nil {
		return nil, fmt.Errorf(classifierRulesErrorTemplateConstant, rulesFilePath, readError)
	}
	classifier, parseError := classify.NewClassifierFromYAML(rulesDocument)
	if parseError != nil {
		return nil, fmt.Errorf(classifierRulesErrorTemplateConstant, rulesFilePath, parseError)
	}
	return classifier, nil
}
