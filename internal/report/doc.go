// Package report defines the scan result model and failure taxonomy shared
// by the analyzers, the result store, and the scan service.
package report
