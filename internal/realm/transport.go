package realm

import (
	"github.com/andresuchdata/backupctl/internal/storage"
)

// TransportS3 is the kind name of the S3-compatible transport.
const TransportS3 = "S3"

// Transport is a storage backend a realm pushes to and pulls from.
type Transport interface {
	// Kind is the value of the transport field in the realms file.
	Kind() string
	// Validate checks the settings structurally, without connecting.
	Validate() error
	// Open builds a client for the backend.
	Open() (storage.ObjectStorage, error)
}

// S3Transport talks to AWS S3 or any S3-compatible service.
type S3Transport struct {
	Config storage.S3Config
}

func (t S3Transport) Kind() string { return TransportS3 }

func (t S3Transport) Validate() error { return t.Config.Validate() }

func (t S3Transport) Open() (storage.ObjectStorage, error) {
	return storage.NewS3Client(t.Config)
}

// unsupportedTransport keeps realms with an unknown kind loadable so the
// remaining realms stay usable; every use fails.
type unsupportedTransport struct {
	kind string
}

func (t unsupportedTransport) Kind() string { return t.kind }

func (t unsupportedTransport) Validate() error { return nil }

func (t unsupportedTransport) Open() (storage.ObjectStorage, error) {
	return nil, &UnsupportedTransportError{Kind: t.kind}
}
