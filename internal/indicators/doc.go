// Package indicators derives hygiene and risk signals from a repository
// working tree: test coverage shape, committed env files, secret hints,
// dependency counts, lint and CI configuration, TODO density, and related
// structural facts. Every indicator is computed independently from the tree
// alone; nothing here consults the network or git history.
package indicators
