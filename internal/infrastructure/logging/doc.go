// Package logging wraps log/slog for the project management service.
//
// Every entry carries the service name and version, output is JSON in
// production and text for local development, and the level threshold comes
// from the logging section of config.yaml:
//
//	logging:
//	  level: info     # debug, info, warn, error
//	  format: json    # json, text
//	  output: stdout  # stdout, stderr
//
// Loggers are safe for concurrent use. Derive component-scoped loggers with
// With:
//
//	apiLog := logger.With("component", "api")
//	apiLog.Info("listening", "addr", addr)
//
// Never log credentials or raw tokens; log the subject instead.
package logging
