package config

import "fmt"

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field '%s', value '%s': %s", e.Field, e.Value, e.Message)
}

func NewConfigError(field, value, msg string) error {
	return &ConfigError{Field: field, Value: value, Message: msg}
}
