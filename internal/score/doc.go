// Package score composes hygiene indicators and authorship attribution into a
// weighted point total, a letter grade, and a narrative verdict.
package score
