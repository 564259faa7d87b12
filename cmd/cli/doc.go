// Package cli constructs the vibereport command-line interface, wiring the
// Cobra command hierarchy, configuration loader, structured logging, and the
// scan pipeline shared by the scan, batch, and results commands.
package cli
