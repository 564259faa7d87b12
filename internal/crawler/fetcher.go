package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/report"
)

const (
	defaultAPIBaseURLConstant        = "https://api.github.com"
	commitPageSizeConstant           = 100
	commitsPathTemplateConstant      = "%s/repos/%s/%s/commits"
	acceptHeaderNameConstant         = "Accept"
	acceptHeaderValueConstant        = "application/vnd.github+json"
	authorizationHeaderNameConstant  = "Authorization"
	authorizationValueTemplate       = "Bearer %s"
	userAgentHeaderNameConstant      = "User-Agent"
	userAgentHeaderValueConstant     = "vibereport"
	linkHeaderNameConstant           = "Link"
	linkRelationLastConstant         = `rel="last"`
	pageQueryParameterConstant       = "page"
	perPageQueryParameterConstant    = "per_page"
	requestFailureTemplateConstant   = "commit page request failed: %w"
	decodeFailureTemplateConstant    = "unable to decode commit page: %w"
	statusFailureTemplateConstant    = "commit page request returned status %d"
	responseBodyReadLimitConstant    = 4 << 20
	fetcherRequestTimeoutConstant    = 20 * time.Second
	throttledStatusForbiddenConstant = http.StatusForbidden
	throttledStatusTooManyConstant   = http.StatusTooManyRequests
)

// CommitPage is one page of remote commit history plus pagination metadata.
type CommitPage struct {
	Commits       []gitrepo.Commit
	NextPage      int
	TotalPageHint int
}

// PageFetcher retrieves one page of a repository's commit history.
type PageFetcher interface {
	FetchCommitPage(executionContext context.Context, reference gitrepo.RepositoryReference, pageNumber int) (CommitPage, error)
}

// GitHubPageFetcher fetches commit pages from the GitHub REST API.
type GitHubPageFetcher struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

// GitHubPageFetcherOptions configures a GitHubPageFetcher.
type GitHubPageFetcherOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	AuthToken  string
}

// NewGitHubPageFetcher builds a fetcher against the public GitHub API unless
// overridden by options.
func NewGitHubPageFetcher(options GitHubPageFetcherOptions) *GitHubPageFetcher {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetcherRequestTimeoutConstant}
	}
	baseURL := strings.TrimRight(options.BaseURL, "/")
	if len(baseURL) == 0 {
		baseURL = defaultAPIBaseURLConstant
	}
	return &GitHubPageFetcher{httpClient: httpClient, baseURL: baseURL, authToken: options.AuthToken}
}

type commitListItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// FetchCommitPage retrieves one page of commit history, newest first. Missing
// repositories surface as report.ErrRepositoryNotFound and rate limiting as
// report.ErrThrottled.
func (fetcher *GitHubPageFetcher) FetchCommitPage(executionContext context.Context, reference gitrepo.RepositoryReference, pageNumber int) (CommitPage, error) {
	requestURL := fmt.Sprintf(commitsPathTemplateConstant, fetcher.baseURL, url.PathEscape(reference.Owner), url.PathEscape(reference.Name))
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, requestURL, nil)
	if requestError != nil {
		return CommitPage{}, fmt.Errorf(requestFailureTemplateConstant, requestError)
	}

	queryValues := request.URL.Query()
	queryValues.Set(perPageQueryParameterConstant, strconv.Itoa(commitPageSizeConstant))
	queryValues.Set(pageQueryParameterConstant, strconv.Itoa(pageNumber))
	request.URL.RawQuery = queryValues.Encode()
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	request.Header.Set(userAgentHeaderNameConstant, userAgentHeaderValueConstant)
	if len(fetcher.authToken) > 0 {
		request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationValueTemplate, fetcher.authToken))
	}

	response, responseError := fetcher.httpClient.Do(request)
	if responseError != nil {
		return CommitPage{}, fmt.Errorf(requestFailureTemplateConstant, responseError)
	}
	defer func() { _ = response.Body.Close() }()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return CommitPage{}, report.ErrRepositoryNotFound
	case throttledStatusForbiddenConstant, throttledStatusTooManyConstant:
		return CommitPage{}, report.ErrThrottled
	default:
		return CommitPage{}, fmt.Errorf(statusFailureTemplateConstant, response.StatusCode)
	}

	responseBytes, readError := io.ReadAll(io.LimitReader(response.Body, responseBodyReadLimitConstant))
	if readError != nil {
		return CommitPage{}, fmt.Errorf(requestFailureTemplateConstant, readError)
	}

	var commitItems []commitListItem
	if decodeError := json.Unmarshal(responseBytes, &commitItems); decodeError != nil {
		return CommitPage{}, fmt.Errorf(decodeFailureTemplateConstant, decodeError)
	}

	commitPage := CommitPage{Commits: make([]gitrepo.Commit, 0, len(commitItems))}
	for _, commitItem := range commitItems {
		commitPage.Commits = append(commitPage.Commits, gitrepo.Commit{
			Hash:        commitItem.SHA,
			AuthorName:  commitItem.Commit.Author.Name,
			AuthorEmail: commitItem.Commit.Author.Email,
			Timestamp:   commitItem.Commit.Author.Date.UTC(),
			Message:     commitItem.Commit.Message,
		})
	}

	nextPage, lastPage := parseLinkHeader(response.Header.Get(linkHeaderNameConstant))
	commitPage.NextPage = nextPage
	commitPage.TotalPageHint = lastPage
	return commitPage, nil
}

// parseLinkHeader extracts the next and last page numbers from a GitHub
// pagination Link header. Absent relations yield zero.
func parseLinkHeader(headerValue string) (nextPage int, lastPage int) {
	for _, section := range strings.Split(headerValue, ",") {
		parts := strings.Split(strings.TrimSpace(section), ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		parsedURL, parseError := url.Parse(target)
		if parseError != nil {
			continue
		}
		pageValue, conversionError := strconv.Atoi(parsedURL.Query().Get(pageQueryParameterConstant))
		if conversionError != nil {
			continue
		}
		relation := strings.TrimSpace(parts[1])
		switch relation {
		case `rel="next"`:
			nextPage = pageValue
		case linkRelationLastConstant:
			lastPage = pageValue
		}
	}
	return nextPage, lastPage
}
