// Package logging provides structured logging for GridWatch Core.
//
// It wraps the standard library's log/slog with configuration-driven
// level filtering, JSON or text output, and default service attributes.
// Components receive a *Logger (or a narrower interface) via dependency
// injection rather than a package-level logger.
package logging
