// Package output formats scan reports for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: full structured JSON report
//   - markdown: PR-comment-friendly summary with a findings table
//   - sarif: SARIF v2.1.0 for upload to code scanning dashboards
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*scan.Report]. [WriteReport]
// handles destination selection.
package output
