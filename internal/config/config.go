package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vango-dev/vroute/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vroute.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultManifest is the default route manifest path.
	DefaultManifest = "routes.yaml"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultWebSocketPath is the session endpoint of the thin client.
	DefaultWebSocketPath = "/_vroute/ws"
)

// Module sources.
const (
	ModulesFS = "fs"
	ModulesS3 = "s3"
)

// Config represents the complete vroute.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Manifest is the path to the route manifest (YAML or JSON).
	Manifest string `json:"manifest,omitempty"`

	// Server contains dev server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Static contains static file serving configuration.
	Static StaticConfig `json:"static,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Modules contains lazy module loading configuration.
	Modules ModulesConfig `json:"modules,omitempty"`

	// Router contains router behavior settings.
	Router RouterConfig `json:"router,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains dev server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// MetricsPath is the Prometheus endpoint ("" disables it).
	MetricsPath string `json:"metricsPath,omitempty"`

	// WebSocketPath is the thin-client session endpoint.
	WebSocketPath string `json:"webSocketPath,omitempty"`

	// Watch reloads the manifest when it changes.
	Watch bool `json:"watch,omitempty"`
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix for static files (default: "/static/").
	Prefix string `json:"prefix,omitempty"`

	// Shell is the application shell served for every matched route,
	// relative to Dir. A built-in shell is used when the file is missing.
	Shell string `json:"shell,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// ModulesConfig contains lazy module loading settings.
type ModulesConfig struct {
	// Source is "fs" (default) or "s3".
	Source string `json:"source,omitempty"`

	// Dir is the module directory for the fs source.
	Dir string `json:"dir,omitempty"`

	// Bucket is the S3 bucket for the s3 source.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is prepended to module names in the bucket.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region of the bucket.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (e.g., a local MinIO).
	Endpoint string `json:"endpoint,omitempty"`
}

// RouterConfig contains router behavior settings.
type RouterConfig struct {
	// FailClosedPlugins aborts a navigation when a plugin fails.
	FailClosedPlugins bool `json:"failClosedPlugins,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Manifest: DefaultManifest,
		Server: ServerConfig{
			Host:          DefaultHost,
			Port:          DefaultPort,
			MetricsPath:   DefaultMetricsPath,
			WebSocketPath: DefaultWebSocketPath,
		},
		Static: StaticConfig{
			Dir:    "public",
			Prefix: "/static/",
			Shell:  "index.html",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Modules: ModulesConfig{
			Source: ModulesFS,
			Dir:    "modules",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vroute.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R007").
				WithDetail("No vroute.json found in " + filepath.Dir(path)).
				WithSuggestion("Create vroute.json or pass --manifest explicitly")
		}
		return nil, errors.New("R006").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("R006").
			WithDetail("Failed to parse vroute.json: " + err.Error()).
			WithSuggestion("Check that vroute.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("R006").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R006").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Manifest == "" {
		c.Manifest = d.Manifest
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.WebSocketPath == "" {
		c.Server.WebSocketPath = d.Server.WebSocketPath
	}
	if c.Static.Dir == "" {
		c.Static.Dir = d.Static.Dir
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = d.Static.Prefix
	}
	if c.Static.Shell == "" {
		c.Static.Shell = d.Static.Shell
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Modules.Source == "" {
		c.Modules.Source = d.Modules.Source
	}
	if c.Modules.Dir == "" {
		c.Modules.Dir = d.Modules.Dir
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("R006").WithDetail(detail)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535")
	}
	if c.Server.MetricsPath != "" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return invalid("server.metricsPath must start with /")
	}
	if !strings.HasPrefix(c.Server.WebSocketPath, "/") {
		return invalid("server.webSocketPath must start with /")
	}
	if !strings.HasPrefix(c.Static.Prefix, "/") || !strings.HasSuffix(c.Static.Prefix, "/") {
		return invalid("static.prefix must start and end with /")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be one of debug, info, warn, error; got " + strconv.Quote(c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json; got " + strconv.Quote(c.Log.Format))
	}

	switch c.Modules.Source {
	case ModulesFS:
	case ModulesS3:
		if c.Modules.Bucket == "" {
			return invalid("modules.bucket is required when modules.source is s3")
		}
	default:
		return invalid("modules.source must be fs or s3; got " + strconv.Quote(c.Modules.Source))
	}
	return nil
}

// Address returns the listen address of the dev server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the dev server.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// resolve returns path relative to the config directory.
func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// ManifestPath returns the absolute path to the route manifest.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Manifest)
}

// StaticPath returns the absolute path to the static directory.
func (c *Config) StaticPath() string {
	return c.resolve(c.Static.Dir)
}

// ShellPath returns the absolute path to the application shell.
func (c *Config) ShellPath() string {
	return filepath.Join(c.StaticPath(), c.Static.Shell)
}

// ModulesPath returns the absolute path to the fs module directory.
func (c *Config) ModulesPath() string {
	return c.resolve(c.Modules.Dir)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vroute.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R007").
				WithDetail("No vroute.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
