// Package report formats hunt and search results for humans and
// machines. Three formats are supported: plain text for terminals,
// JSON for tooling, and Markdown for documentation and sharing.
package report
