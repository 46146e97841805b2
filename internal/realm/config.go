package realm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/backupctl/internal/storage"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config maps realm names to realms. It is loaded once per command or scrape
// and never modified afterwards.
type Config struct {
	Realms map[string]*Realm
}

type document struct {
	Realms map[string]entry `toml:"realms" yaml:"realms"`
}

type entry struct {
	Transport       string `toml:"transport" yaml:"transport"`
	Prefix          string `toml:"prefix" yaml:"prefix"`
	Contains        string `toml:"contains" yaml:"contains"`
	AccessKey       string `toml:"access_key" yaml:"access_key"`
	SecretAccessKey string `toml:"secret_access_key" yaml:"secret_access_key"`
	Bucket          string `toml:"bucket" yaml:"bucket"`
	Region          string `toml:"region" yaml:"region"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint"`
}

// Load parses a TOML realms document.
func Load(text string) (*Config, error) {
	var doc document
	dec := toml.NewDecoder(strings.NewReader(text)).DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var (
			decodeErr *toml.DecodeError
			strictErr *toml.StrictMissingError
		)
		switch {
		case errors.As(err, &strictErr):
			keys := make([]string, 0, len(strictErr.Errors))
			for i := range strictErr.Errors {
				keys = append(keys, strings.Join(strictErr.Errors[i].Key(), "."))
			}
			err = fmt.Errorf("unknown fields [%s]: %w", strings.Join(keys, ", "), err)
		case errors.As(err, &decodeErr):
			row, col := decodeErr.Position()
			err = fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return nil, &ConfigParseError{Err: err}
	}
	return doc.build()
}

// LoadYAML parses a YAML realms document.
func LoadYAML(text string) (*Config, error) {
	var doc document
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigParseError{Err: err}
	}
	return doc.build()
}

// LoadFile reads a realms file. Files ending in .yaml or .yml are parsed as
// YAML, anything else as TOML.
func LoadFile(path string) (*Config, error) {
	log.Info().Str("path", path).Msg("reading realms config")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	text := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(text)
	default:
		return Load(text)
	}
}

// Lookup returns the realm called name.
func (c *Config) Lookup(name string) (*Realm, error) {
	r, ok := c.Realms[name]
	if !ok {
		return nil, &RealmNotFoundError{Name: name, Known: c.Names()}
	}
	return r, nil
}

// Names returns the realm names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Realms))
	for name := range c.Realms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d document) build() (*Config, error) {
	cfg := &Config{Realms: make(map[string]*Realm, len(d.Realms))}
	for name, e := range d.Realms {
		transport, err := e.transport()
		if err != nil {
			return nil, &ConfigParseError{Realm: name, Err: err}
		}
		cfg.Realms[name] = &Realm{
			Name:      name,
			Prefix:    e.Prefix,
			Contains:  e.Contains,
			Transport: transport,
		}
	}
	return cfg, nil
}

func (e entry) transport() (Transport, error) {
	switch {
	case e.Transport == "":
		return nil, errors.New("transport is required")
	case strings.EqualFold(e.Transport, TransportS3):
		t := S3Transport{Config: storage.S3Config{
			AccessKey: e.AccessKey,
			SecretKey: e.SecretAccessKey,
			Bucket:    e.Bucket,
			Region:    e.Region,
			Endpoint:  e.Endpoint,
		}}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return unsupportedTransport{kind: e.Transport}, nil
	}
}
