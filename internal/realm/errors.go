package realm

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/backupctl/internal/storage"
)

// ConfigParseError is returned when a realms document cannot be decoded or
// one of its realms has an invalid shape.
type ConfigParseError struct {
	Realm string
	Err   error
}

func (e *ConfigParseError) Error() string {
	if e.Realm == "" {
		return fmt.Sprintf("failed to parse realms config: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse realms config: realm %s: %v", e.Realm, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// IOError is returned when a local file cannot be read or written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// RealmNotFoundError lists the configured realm names to ease diagnostics.
type RealmNotFoundError struct {
	Name  string
	Known []string
}

func (e *RealmNotFoundError) Error() string {
	return fmt.Sprintf("realm %q not found, known realms: [%s]", e.Name, strings.Join(e.Known, ", "))
}

// ValidationError is returned when a file or key does not belong to a realm.
type ValidationError struct {
	Realm  string
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("realm %s: %s: %s", e.Realm, e.Name, e.Reason)
}

// UnsupportedTransportError is returned for transport kinds without an implementation.
type UnsupportedTransportError struct {
	Kind string
}

func (e *UnsupportedTransportError) Error() string {
	return fmt.Sprintf("transport %q not supported yet", e.Kind)
}

// NoBackupsError is returned by Pull when nothing in the realm matches.
type NoBackupsError struct {
	Realm    string
	Prefix   string
	Contains string
}

func (e *NoBackupsError) Error() string {
	return fmt.Sprintf("realm %s: no backups under %q containing %q", e.Realm, e.Prefix, e.Contains)
}

func (e *NoBackupsError) Unwrap() error {
	return storage.ErrNotFound
}
