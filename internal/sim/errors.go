package sim

import "fmt"

// ConfigError is a fatal configuration mistake: unset or out-of-range
// settings, unknown scheme values, illegal propagation combinations.
//
// Configuration errors abort a call before any integration step executes.
// They are distinct from runtime errors, which are collected during a run
// and abort it at the next step boundary.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}
