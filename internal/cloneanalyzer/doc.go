// Package cloneanalyzer implements the primary acquisition path: a scoped
// temporary clone of the target repository, analyzed in place and removed on
// every exit, including timeouts and detector failures.
package cloneanalyzer
