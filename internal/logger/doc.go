// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON output,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Request handlers attach product, channel, target and arch to the context
// logger so every line emitted while serving a request can be correlated.
// Credentials are never passed to these helpers.
package logger
