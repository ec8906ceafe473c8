package observability

// Logger provides structured logging with variadic key/value fields.
type Logger interface {
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})

	// WithFields returns a logger that attaches the given fields to
	// every entry it emits.
	WithFields(fields map[string]interface{}) Logger
}

// Metrics provides counters, histograms and gauges.
type Metrics interface {
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}
