package types

// Logger defines methods for structured logging.
//
// Every method takes a message followed by alternating key/value pairs, the calling
// convention shared by zap.SugaredLogger and log/slog. Adapters for both live in
// internal/logging and are exposed from the root package.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
}
