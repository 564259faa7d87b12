package gitrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/monkeycs60/vibereport/internal/execshell"
)

const (
	cloneSubcommandConstant            = "clone"
	logSubcommandConstant              = "log"
	revListSubcommandConstant          = "rev-list"
	revParseSubcommandConstant         = "rev-parse"
	branchSubcommandConstant           = "branch"
	remoteSubcommandConstant           = "remote"
	remoteGetURLSubcommandConstant     = "get-url"
	cloneDepthFlagConstant             = "--depth"
	cloneShallowSinceFlagConstant      = "--shallow-since"
	cloneSingleBranchFlagConstant      = "--single-branch"
	cloneQuietFlagConstant             = "--quiet"
	logFormatFlagConstant              = "--pretty=format:%H%x1f%an%x1f%ae%x1f%ct%x1f%B%x1e"
	logSinceFlagConstant               = "--since"
	rootCommitFlagConstant             = "--max-parents=0"
	headReferenceConstant              = "HEAD"
	isInsideWorkTreeFlagConstant       = "--is-inside-work-tree"
	branchListFlagConstant             = "--list"
	branchRemotesFlagConstant          = "--remotes"
	branchFormatFlagConstant           = "--format=%(refname:short)"
	remoteHeadPointerSuffixConstant    = "/HEAD"
	originRemoteNameConstant           = "origin"
	workTreeConfirmationConstant       = "true"
	emptyHistoryStderrFragmentConstant = "does not have any commits"
	unknownRevisionStderrFragment      = "unknown revision"
	commitRecordSeparatorConstant      = "\x1e"
	commitFieldSeparatorConstant       = "\x1f"
	commitFieldCountConstant           = 5
	executorNotConfiguredMessage       = "git executor not configured"
	noCommitsFoundMessageConstant      = "repository has no commits"
	malformedLogRecordMessageConstant  = "malformed git log record"
)

// Initialization and lookup errors surfaced by the repository manager.
var (
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessage)
	ErrNoCommits             = errors.New(noCommitsFoundMessageConstant)
	ErrMalformedLogRecord    = errors.New(malformedLogRecordMessageConstant)
)

// GitExecutor exposes the subset of shell execution used by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Commit captures one entry of a repository's history. Message holds the full
// commit body so trailers remain available to authorship classification.
type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Timestamp   time.Time
	Message     string
}

// CloneOptions control how a repository is materialized on disk. Depth and
// ShallowSince are mutually exclusive truncation strategies; when both are
// zero-valued a full clone is performed.
type CloneOptions struct {
	SourceURL    string
	Destination  string
	Depth        int
	ShallowSince time.Time
	SingleBranch bool
}

// RepositoryManager performs git operations through a shell executor.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager with the provided executor.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// Clone materializes the repository described by options on disk.
func (manager *RepositoryManager) Clone(executionContext context.Context, options CloneOptions) error {
	arguments := []string{cloneSubcommandConstant, cloneQuietFlagConstant}
	if options.Depth > 0 {
		arguments = append(arguments, cloneDepthFlagConstant, strconv.Itoa(options.Depth))
	}
	if !options.ShallowSince.IsZero() {
		arguments = append(arguments, cloneShallowSinceFlagConstant, options.ShallowSince.UTC().Format(time.RFC3339))
	}
	if options.SingleBranch {
		arguments = append(arguments, cloneSingleBranchFlagConstant)
	}
	arguments = append(arguments, options.SourceURL, options.Destination)

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments})
	return executionError
}

// CommitLog returns the commit history of the repository at repositoryPath,
// newest first. A non-zero since restricts the walk to commits authored at or
// after the cutoff. A repository without any commits yields an empty history
// rather than an error; git exits non-zero when asked to log an unborn HEAD.
func (manager *RepositoryManager) CommitLog(executionContext context.Context, repositoryPath string, since time.Time) ([]Commit, error) {
	arguments := []string{logSubcommandConstant, logFormatFlagConstant}
	if !since.IsZero() {
		arguments = append(arguments, logSinceFlagConstant, since.UTC().Format(time.RFC3339))
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		if isEmptyHistoryFailure(executionError) {
			return []Commit{}, nil
		}
		return nil, executionError
	}

	return parseCommitLog(executionResult.StandardOutput)
}

func isEmptyHistoryFailure(executionError error) bool {
	return failedWithStderrFragment(executionError, emptyHistoryStderrFragmentConstant)
}

// isUnbornHeadFailure recognizes rev-list refusing HEAD in a repository that
// has no commits yet.
func isUnbornHeadFailure(executionError error) bool {
	return failedWithStderrFragment(executionError, unknownRevisionStderrFragment)
}

func failedWithStderrFragment(executionError error, fragment string) bool {
	failedError := execshell.CommandFailedError{}
	if !errors.As(executionError, &failedError) {
		return false
	}
	return strings.Contains(failedError.Result.StandardError, fragment)
}

// RootCommit resolves the hash of the repository's first commit. Histories
// with multiple roots resolve to the oldest one git reports.
func (manager *RepositoryManager) RootCommit(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{revListSubcommandConstant, rootCommitFlagConstant, headReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		if isUnbornHeadFailure(executionError) {
			return "", ErrNoCommits
		}
		return "", executionError
	}

	lines := splitNonEmptyLines(executionResult.StandardOutput)
	if len(lines) == 0 {
		return "", ErrNoCommits
	}
	return lines[len(lines)-1], nil
}

// CountLocalBranches returns the number of local branches in the repository.
func (manager *RepositoryManager) CountLocalBranches(executionContext context.Context, repositoryPath string) (int, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{branchSubcommandConstant, branchListFlagConstant, branchFormatFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return 0, executionError
	}
	return len(splitNonEmptyLines(executionResult.StandardOutput)), nil
}

// CountRemoteBranches returns the number of branches on the remote, excluding
// the symbolic HEAD pointer. A fresh clone always has exactly one local
// branch, so branch-count signals must look at the remote heads.
func (manager *RepositoryManager) CountRemoteBranches(executionContext context.Context, repositoryPath string) (int, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{branchSubcommandConstant, branchListFlagConstant, branchRemotesFlagConstant, branchFormatFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return 0, executionError
	}

	branchCount := 0
	for _, branchName := range splitNonEmptyLines(executionResult.StandardOutput) {
		if strings.HasSuffix(branchName, remoteHeadPointerSuffixConstant) {
			continue
		}
		branchCount++
	}
	return branchCount, nil
}

// GetRemoteURL reads the origin remote URL configured for the repository.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{remoteSubcommandConstant, remoteGetURLSubcommandConstant, originRemoteNameConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// ResolveLocalReference derives the repository identity for a local checkout
// from its origin remote. Scans of local paths use this so their results land
// under the same identity as scans of the remote itself.
func (manager *RepositoryManager) ResolveLocalReference(executionContext context.Context, repositoryPath string) (RepositoryReference, error) {
	remoteURL, remoteError := manager.GetRemoteURL(executionContext, repositoryPath)
	if remoteError != nil {
		return RepositoryReference{}, remoteError
	}
	parsedRemote, parseError := ParseRemoteURL(remoteURL)
	if parseError != nil {
		return RepositoryReference{}, parseError
	}
	return RepositoryReference{Host: parsedRemote.Host, Owner: parsedRemote.Owner, Name: parsedRemote.Repository}, nil
}

// IsWorkTree reports whether the path sits inside a git work tree.
func (manager *RepositoryManager) IsWorkTree(executionContext context.Context, repositoryPath string) (bool, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{revParseSubcommandConstant, isInsideWorkTreeFlagConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		failedError := execshell.CommandFailedError{}
		if errors.As(executionError, &failedError) {
			return false, nil
		}
		return false, executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput) == workTreeConfirmationConstant, nil
}

func parseCommitLog(logOutput string) ([]Commit, error) {
	records := strings.Split(logOutput, commitRecordSeparatorConstant)
	commits := make([]Commit, 0, len(records))
	for _, record := range records {
		trimmedRecord := strings.TrimLeft(record, "\n")
		if len(strings.TrimSpace(trimmedRecord)) == 0 {
			continue
		}
		fields := strings.SplitN(trimmedRecord, commitFieldSeparatorConstant, commitFieldCountConstant)
		if len(fields) != commitFieldCountConstant {
			return nil, ErrMalformedLogRecord
		}
		timestampSeconds, parseError := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
		if parseError != nil {
			return nil, ErrMalformedLogRecord
		}
		commits = append(commits, Commit{
			Hash:        strings.TrimSpace(fields[0]),
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Timestamp:   time.Unix(timestampSeconds, 0).UTC(),
			Message:     strings.TrimRight(fields[4], "\n"),
		})
	}
	return commits, nil
}

func splitNonEmptyLines(output string) []string {
	rawLines := strings.Split(output, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 {
			continue
		}
		lines = append(lines, trimmedLine)
	}
	return lines
}
