// Package gitrepo contains helpers for interrogating Git repositories.
//
// It exposes RepositoryManager for reading commit history, branches, and
// remotes, along with remote URL and repository reference parsing consumed by
// the scan services.
package gitrepo
