// Package config loads persistsql settings from persistsql.yaml and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/persistsql/internal/catalog"
	"github.com/roach88/persistsql/internal/loader"
)

// FileName is the configuration file looked up in the manifest directory.
const FileName = "persistsql.yaml"

// EnvFile holds optional PERSISTSQL_* assignments next to FileName.
const EnvFile = ".env"

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds the settings shared by every command.
type Config struct {
	// EntityFile is the document that declares persisted entities.
	EntityFile string `yaml:"entity_file"`
	// ClientMarker is the class member that marks a persist client class.
	ClientMarker string `yaml:"client_marker"`
	// Include lists manifest globs relative to the manifest directory.
	Include []string `yaml:"include"`
	// Format lays out rewritten documents over several lines.
	Format bool `yaml:"format"`
	// Output is the default output format, "text" or "json".
	Output string `yaml:"output"`
	// Database is the SQLite file used by preview and rewrite --record.
	Database string `yaml:"database"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EntityFile:   catalog.DefaultEntityFile,
		ClientMarker: catalog.DefaultClientMarker,
		Include:      []string{loader.DefaultPattern},
		Format:       true,
		Output:       OutputText,
	}
}

// Load reads dir/persistsql.yaml over the defaults, then applies
// PERSISTSQL_* environment overrides. Variables from dir/.env are used
// when the process environment does not set them. Both files are
// optional.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, EnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", EnvFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PERSISTSQL_ENTITY_FILE"); ok && v != "" {
		c.EntityFile = v
	}
	if v, ok := lookup("PERSISTSQL_CLIENT_MARKER"); ok && v != "" {
		c.ClientMarker = v
	}
	if v, ok := lookup("PERSISTSQL_INCLUDE"); ok && v != "" {
		c.Include = nil
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Include = append(c.Include, p)
			}
		}
	}
	if v, ok := lookup("PERSISTSQL_FORMAT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PERSISTSQL_FORMAT: %w", err)
		}
		c.Format = b
	}
	if v, ok := lookup("PERSISTSQL_OUTPUT"); ok && v != "" {
		c.Output = v
	}
	if v, ok := lookup("PERSISTSQL_DATABASE"); ok && v != "" {
		c.Database = v
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.EntityFile == "" {
		return fmt.Errorf("entity_file must not be empty")
	}
	if c.ClientMarker == "" {
		return fmt.Errorf("client_marker must not be empty")
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		return fmt.Errorf("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output)
	}
	return nil
}

// CatalogOptions returns the binding catalog settings.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{EntityFile: c.EntityFile, ClientMarker: c.ClientMarker}
}

// LoaderOptions returns the manifest loader settings.
func (c *Config) LoaderOptions(mode loader.Mode) loader.Options {
	return loader.Options{Patterns: c.Include, Mode: mode}
}
