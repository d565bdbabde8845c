package connectors

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultConnectionsPath is where the registry looks when no path is
// configured.
const DefaultConnectionsPath = "connections.yaml"

// ConnectionConfig is one named external connection.
type ConnectionConfig struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type,omitempty"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	Database string            `yaml:"database,omitempty"`
	User     string            `yaml:"user,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Driver   string            `yaml:"driver,omitempty"`
	Extras   map[string]string `yaml:"extras,omitempty"`
}

// LoadConnections reads the connection list. A missing file is an empty
// registry, not an error. A single mapping document is accepted as a
// one-entry list.
func LoadConnections(path string) ([]ConnectionConfig, error) {
	if path == "" {
		path = DefaultConnectionsPath
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read connections %s: %w", path, err)
	}

	var list []ConnectionConfig
	if err := yaml.Unmarshal(data, &list); err != nil {
		var single ConnectionConfig
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse connections %s: %w", path, err)
		}
		list = []ConnectionConfig{single}
	}

	out := list[:0]
	for _, c := range list {
		if c.Name == "" {
			continue
		}
		if c.Type == "" {
			c.Type = "sql"
		}
		out = append(out, c)
	}
	return out, nil
}

// SaveConnections writes the registry back out.
func SaveConnections(conns []ConnectionConfig, path string) error {
	if path == "" {
		path = DefaultConnectionsPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	data, err := yaml.Marshal(conns)
	if err != nil {
		return fmt.Errorf("encode connections: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write connections %s: %w", path, err)
	}
	return nil
}

// findConnection resolves a connection by exact name.
func findConnection(conns []ConnectionConfig, name string) (ConnectionConfig, error) {
	for _, c := range conns {
		if c.Name == name {
			return c, nil
		}
	}
	return ConnectionConfig{}, fmt.Errorf("connection %q not found", name)
}

// dsn builds the database URL. The password falls back to the
// <NAME>_PASSWORD environment variable when the config leaves it empty.
func (c ConnectionConfig) dsn() (string, error) {
	driver := strings.ToLower(c.Driver)
	switch driver {
	case "", "postgres", "postgresql", "pgx":
	default:
		return "", fmt.Errorf("unsupported driver %q for connection %q", c.Driver, c.Name)
	}

	host := c.Host
	if host == "" {
		host = "localhost"
	}
	if c.Port != 0 {
		host = fmt.Sprintf("%s:%d", host, c.Port)
	}

	u := url.URL{Scheme: "postgres", Host: host}
	if c.Database != "" {
		u.Path = "/" + c.Database
	}
	pwd := c.Password
	if pwd == "" {
		pwd = os.Getenv(strings.ToUpper(c.Name) + "_PASSWORD")
	}
	if c.User != "" || pwd != "" {
		u.User = url.UserPassword(c.User, pwd)
	}
	return u.String(), nil
}
