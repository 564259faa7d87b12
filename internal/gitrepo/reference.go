package gitrepo

import (
	"fmt"
	"strings"
)

const (
	githubShorthandPrefixConstant     = "github:"
	githubHostConstant                = "github.com"
	githubHostPrefixConstant          = "github.com/"
	referenceParseErrorMessage        = "unrecognized repository reference"
	referenceSegmentCountConstant     = 2
	referenceCloneURLTemplateConstant = "https://%s/%s/%s.git"
)

// RepositoryReference identifies a remote repository independently of the
// notation used to name it on the command line or over the wire.
type RepositoryReference struct {
	Host  string
	Owner string
	Name  string
}

// Slug returns the owner/name pair without the host.
func (reference RepositoryReference) Slug() string {
	return reference.Owner + pathSeparatorConstant + reference.Name
}

// CanonicalIdentifier returns the case-folded host/owner/name identity used
// for fingerprinting and cache keys.
func (reference RepositoryReference) CanonicalIdentifier() string {
	return fmt.Sprintf(
		canonicalIdentifierTemplate,
		strings.ToLower(reference.Host),
		strings.ToLower(reference.Owner),
		strings.ToLower(reference.Name),
	)
}

// CloneURL returns the HTTPS URL suitable for an anonymous clone.
func (reference RepositoryReference) CloneURL() string {
	return fmt.Sprintf(referenceCloneURLTemplateConstant, reference.Host, reference.Owner, reference.Name)
}

// ReferenceParseError indicates a reference string could not be understood.
type ReferenceParseError struct {
	Input string
}

// Error describes the parse failure.
func (parseError ReferenceParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, referenceParseErrorMessage)
}

// ParseRepositoryReference accepts the reference notations users supply:
// "owner/repo", "github:owner/repo", "github.com/owner/repo", full HTTPS or
// SSH remote URLs. Hosts other than github.com are preserved when the input
// carries one.
func ParseRepositoryReference(input string) (RepositoryReference, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) == 0 {
		return RepositoryReference{}, ReferenceParseError{Input: input}
	}

	if strings.HasPrefix(trimmed, githubShorthandPrefixConstant) {
		return parseSlugReference(strings.TrimPrefix(trimmed, githubShorthandPrefixConstant))
	}

	if strings.HasPrefix(trimmed, httpsProtocolPrefixConstant) ||
		strings.HasPrefix(trimmed, httpProtocolPrefixConstant) ||
		strings.HasPrefix(trimmed, sshProtocolPrefixConstant) ||
		strings.HasPrefix(trimmed, gitUserPrefixConstant) {
		parsedRemote, parseError := ParseRemoteURL(trimmed)
		if parseError != nil {
			return RepositoryReference{}, ReferenceParseError{Input: input}
		}
		return RepositoryReference{Host: parsedRemote.Host, Owner: parsedRemote.Owner, Name: parsedRemote.Repository}, nil
	}

	if strings.HasPrefix(trimmed, githubHostPrefixConstant) {
		return parseSlugReference(strings.TrimPrefix(trimmed, githubHostPrefixConstant))
	}

	return parseSlugReference(trimmed)
}

func parseSlugReference(slug string) (RepositoryReference, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(slug), pathSeparatorConstant)
	cleaned = strings.TrimSuffix(cleaned, gitSuffixConstant)
	segments := strings.Split(cleaned, pathSeparatorConstant)
	if len(segments) != referenceSegmentCountConstant {
		return RepositoryReference{}, ReferenceParseError{Input: slug}
	}
	owner := strings.TrimSpace(segments[0])
	name := strings.TrimSpace(segments[1])
	if len(owner) == 0 || len(name) == 0 {
		return RepositoryReference{}, ReferenceParseError{Input: slug}
	}
	return RepositoryReference{Host: githubHostConstant, Owner: owner, Name: name}, nil
}
