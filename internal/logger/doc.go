// Package logger wraps zap to provide:
//   - a global sugared logger writing either console or JSON lines,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - context-aware shortcuts (Infof, ErrorKV, etc.).
//
// Services keep the logger in their context, so every log line carries the
// component name and request-scoped fields.
package logger
