// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a named child logger so every line carries its origin:
//
//	logger := logging.NewDefault()
//	sandboxLog := logger.Component("sandbox")
//	sandboxLog.Info("Mounted document", zap.String("handle", h.ID))
//
// Console output produced by previewed documents is logged by the sandbox at
// debug level under the "sandbox.console" name; it never reaches the host's
// own error channel.
package logging
