// Package classify attributes commits to coding assistants.
//
// An ordered, case-insensitive substring table maps commit author names,
// emails, and message bodies (trailers included) to a known tool; commits
// matching no rule are attributed to a human. The table can be replaced at
// runtime from a YAML document.
package classify
