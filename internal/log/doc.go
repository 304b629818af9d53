// Package log provides logging with automatic sanitization of
// sensitive values, built on top of the standard slog package.
//
// Hunts touch authenticated surfaces of third-party platforms:
// responses carry session cookies, anti-bot tokens, and occasionally
// API keys embedded in pages. None of that belongs in a log file that
// gets attached to a bug report. The SecureHandler masks sensitive
// attributes before they reach the underlying handler, even in
// verbose mode.
//
// The handler wraps any slog.Handler, so it composes with text or
// JSON output and with libraries that accept a *slog.Logger,
// including tornago.
package log
