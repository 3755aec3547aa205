package domain

// ConfigError reports an invalid plant configuration: mismatched per-array
// parameter lengths, out-of-range factors, or arrays whose weather series
// resolve to different UTC offsets. It is fatal and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}
