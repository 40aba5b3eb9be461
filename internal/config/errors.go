package config

import "fmt"

// MissingFieldError reports a required configuration key that is absent
// from the document. Key is the dotted path, e.g. "model.gnn.num_layers".
type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("config: missing required key %q", e.Key)
}

// InvalidValueError reports a present field that violates its type or
// range constraint.
type InvalidValueError struct {
	Key        string
	Value      interface{}
	Constraint string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config: invalid value for %q: %v (%s)", e.Key, e.Value, e.Constraint)
}

// UnknownFieldError reports a key in the document that is not part of the
// schema. Unrecognized keys are rejected rather than silently ignored so
// that a typo'd field name fails at load time instead of becoming a no-op.
type UnknownFieldError struct {
	Detail string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("config: unrecognized key: %s", e.Detail)
}

// FileAccessError reports that the configuration file could not be read
// or is malformed at the YAML syntax level.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("config: cannot load %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}
