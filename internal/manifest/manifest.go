// Package manifest loads route manifests and turns them into navrouter
// routes.
//
// A manifest is YAML (.yaml, .yml) or JSON (.json). Environment variables
// in the file are expanded before parsing.
//
//	plugins:
//	  - type: log
//	routes:
//	  - path: /
//	    title: Home
//	    view: <h1>Home</h1>
//	  - path: /user/:id
//	    title: User
//	    view: <h1>User {{.id}}</h1>
//	    plugins:
//	      - type: lazy
//	        module: user.js
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/pattern"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Plugin types.
const (
	PluginLazy = "lazy"
	PluginLog  = "log"
)

// Manifest is a parsed route manifest.
type Manifest struct {
	Plugins []PluginSpec `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	Routes  []RouteSpec  `yaml:"routes" json:"routes"`

	path string
}

// RouteSpec declares one route.
type RouteSpec struct {
	Path    string       `yaml:"path" json:"path"`
	Title   string       `yaml:"title,omitempty" json:"title,omitempty"`
	View    string       `yaml:"view,omitempty" json:"view,omitempty"`
	Plugins []PluginSpec `yaml:"plugins,omitempty" json:"plugins,omitempty"`
}

// PluginSpec declares a plugin.
type PluginSpec struct {
	// Type is "lazy" or "log".
	Type string `yaml:"type" json:"type"`

	// Module is the module a lazy plugin loads.
	Module string `yaml:"module,omitempty" json:"module,omitempty"`

	// Name overrides the plugin name of a log plugin.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.New("R004").
			WithDetailf("unsupported manifest extension %q", filepath.Ext(path)).
			WithSuggestion("Use .yaml, .yml or .json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("R004").WithDetailf("read %s", path).Wrap(err)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	m.path = path
	return m, nil
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Manifest, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, errors.New("R004").WithDetail("invalid YAML").Wrap(err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(expanded))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, errors.New("R004").WithDetail("invalid JSON").Wrap(err)
		}
	default:
		return nil, errors.New("R004").WithDetailf("unknown format %q", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}

// Validate checks routes and plugins.
func (m *Manifest) Validate() error {
	if len(m.Routes) == 0 {
		return errors.New("R004").WithDetail("manifest declares no routes")
	}

	if err := validatePlugins(m.Plugins, "plugins"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(m.Routes))
	for i, r := range m.Routes {
		where := fmt.Sprintf("routes[%d]", i)
		if r.Path == "" {
			return errors.New("R004").WithDetailf("%s: path is required", where)
		}
		if seen[r.Path] {
			return errors.New("R004").WithDetailf("%s: duplicate path %q", where, r.Path)
		}
		seen[r.Path] = true

		if _, err := pattern.Compile(r.Path); err != nil {
			return errors.New("R004").WithDetailf("%s", where).Wrap(err)
		}
		if err := validatePlugins(r.Plugins, where+".plugins"); err != nil {
			return err
		}
	}
	return nil
}

func validatePlugins(specs []PluginSpec, where string) error {
	for i, p := range specs {
		switch p.Type {
		case PluginLazy:
			if p.Module == "" {
				return errors.New("R004").WithDetailf("%s[%d]: lazy plugin requires a module", where, i)
			}
		case PluginLog:
		default:
			return errors.New("R004").WithDetailf("%s[%d]: unknown plugin type %q", where, i, p.Type)
		}
	}
	return nil
}

// Save writes the manifest in the format implied by path.
func (m *Manifest) Save(path string) error {
	format, ok := FormatOf(path)
	if !ok {
		return errors.New("R004").WithDetailf("unsupported manifest extension %q", filepath.Ext(path))
	}

	var (
		data []byte
		err  error
	)
	if format == FormatYAML {
		data, err = yaml.Marshal(m)
	} else {
		data, err = json.MarshalIndent(m, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("R004").Wrap(err)
	}
	return os.WriteFile(path, data, 0644)
}
