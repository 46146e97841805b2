package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel every missing-object error unwraps to.
var ErrNotFound = errors.New("object not found")

// NotFoundError conveys that a specific object key was not found in the bucket.
type NotFoundError struct {
	Bucket string
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s/%s: not found", e.Bucket, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err represents a missing remote object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ConfigError is returned when a client cannot be built from its settings.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid object store config: %s: %v", e.Reason, e.Err)
	}
	return "invalid object store config: " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransportError wraps a network, auth or backend failure of one operation.
type TransportError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("s3 %s %s failed: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("s3 %s %s/%s failed: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when an object expected to hold text does not.
type DecodeError struct {
	Key string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("object %s is not valid UTF-8 text", e.Key)
}
