// Package report renders the connect attempt history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured JSON for scripts
//   - MarkdownWriter: a Markdown document with an outcome chart
//
// Report data lives in the model package; writers only format it.
package report
