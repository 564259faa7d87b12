// Package fingerprint derives stable repository identities for idempotent
// result storage. A full-history fingerprint binds the root commit to the
// canonical remote identity; a remote-only fingerprint is the weaker fallback
// used when no clone is available.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	fingerprintFieldSeparatorConstant = "\n"
	missingRemoteMessageConstant      = "canonical remote identity is required"
	missingRootCommitMessage          = "root commit hash is required"
)

// Scope describes how much repository identity a fingerprint captures.
type Scope string

// Supported fingerprint scopes.
const (
	ScopeFullHistory Scope = "full_history"
	ScopeRemoteOnly  Scope = "remote_only"
)

// Fingerprint couples a digest with the scope it was derived from. Two
// fingerprints are interchangeable keys only when both value and scope match.
type Fingerprint struct {
	Value string
	Scope Scope
}

// Input validation errors.
var (
	ErrMissingRemote     = errors.New(missingRemoteMessageConstant)
	ErrMissingRootCommit = errors.New(missingRootCommitMessage)
)

// ComputeFullHistory derives the preferred fingerprint from the repository's
// root commit hash and its canonical remote identity.
func ComputeFullHistory(rootCommitHash string, canonicalRemote string) (Fingerprint, error) {
	trimmedRootCommit := strings.TrimSpace(rootCommitHash)
	if len(trimmedRootCommit) == 0 {
		return Fingerprint{}, ErrMissingRootCommit
	}
	trimmedRemote := strings.TrimSpace(canonicalRemote)
	if len(trimmedRemote) == 0 {
		return Fingerprint{}, ErrMissingRemote
	}

	digest := sha256.Sum256([]byte(trimmedRootCommit + fingerprintFieldSeparatorConstant + trimmedRemote))
	return Fingerprint{Value: hex.EncodeToString(digest[:]), Scope: ScopeFullHistory}, nil
}

// ComputeRemoteOnly derives the fallback fingerprint from the canonical
// remote identity alone.
func ComputeRemoteOnly(canonicalRemote string) (Fingerprint, error) {
	trimmedRemote := strings.TrimSpace(canonicalRemote)
	if len(trimmedRemote) == 0 {
		return Fingerprint{}, ErrMissingRemote
	}

	digest := sha256.Sum256([]byte(trimmedRemote))
	return Fingerprint{Value: hex.EncodeToString(digest[:]), Scope: ScopeRemoteOnly}, nil
}
