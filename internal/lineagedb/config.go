package lineagedb

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConnectionConfig describes how a node reaches its lineage SQL store.
// The bundled store is SQLite, which has no network transport, so Open
// treats Database as a file path and ignores Host/Port/User/Password —
// those fields are kept for interface parity with a networked SQL
// store behind a custom Client.
type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Open resolves cfg into a Client for the named node: an empty Database
// disables lineage (Noop), otherwise Database is opened as a SQLite
// file whose tables are prefixed with nodeName.
func (cfg ConnectionConfig) Open(nodeName string) (Client, error) {
	if cfg.Database == "" {
		return Noop{}, nil
	}
	return OpenSQLite(cfg.Database, nodeName)
}

// LoadConnectionConfig reads a ConnectionConfig from a YAML file, for
// programs that prefer file-based node configuration over a literal Go
// struct.
func LoadConnectionConfig(path string) (ConnectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("lineagedb: read config %q: %w", path, err)
	}
	var cfg ConnectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConnectionConfig{}, fmt.Errorf("lineagedb: parse config %q: %w", path, err)
	}
	return cfg, nil
}
