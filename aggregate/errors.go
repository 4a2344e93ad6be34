package aggregate

import "fmt"

// ConfigError reports an invalid aggregation configuration. It is raised
// at build or validation time, before any document is processed, and is
// fatal to constructing the aggregation.
type ConfigError struct {
	Agg    string
	Reason string
}

// NewConfigError creates a ConfigError for the named aggregation.
func NewConfigError(agg, format string, args ...any) *ConfigError {
	return &ConfigError{Agg: agg, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("aggregation [%s]: %s", e.Agg, e.Reason)
}

// ExecError reports a failure during the reduce stage. It aborts the
// affected pipeline step and carries the aggregation name.
type ExecError struct {
	Agg    string
	Reason string
}

// NewExecError creates an ExecError for the named aggregation.
func NewExecError(agg, format string, args ...any) *ExecError {
	return &ExecError{Agg: agg, Reason: fmt.Sprintf(format, args...)}
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("reduce of aggregation [%s] failed: %s", e.Agg, e.Reason)
}
