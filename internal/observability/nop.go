package observability

// NopLogger discards all log entries. Intended for tests.
type NopLogger struct{}

func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Debug(string, ...interface{}) {}

func (l NopLogger) WithFields(map[string]interface{}) Logger { return l }

// NopMetrics discards all observations. Intended for tests.
type NopMetrics struct{}

func (NopMetrics) IncrementCounter(string, map[string]string)         {}
func (NopMetrics) RecordHistogram(string, float64, map[string]string) {}
func (NopMetrics) SetGauge(string, float64, map[string]string)        {}
