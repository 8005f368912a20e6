// Package lazy provides a navrouter plugin that loads a route's module the
// first time the route is navigated to.
//
// The plugin only defers to a Loader; where module bytes come from is up to
// the loader. S3Loader reads them from an S3 bucket and FSLoader from any
// fs.FS, such as a build output directory.
//
// Example:
//
//	cache := lazy.NewCache()
//	loader := lazy.NewS3Loader(s3.NewFromConfig(cfg), "my-bucket", "modules/")
//
//	routes := []navrouter.Route{{
//	    Path:    "/reports",
//	    Render:  reportsView,
//	    Plugins: []navrouter.Plugin{lazy.New("reports.js", loader, lazy.WithCache(cache))},
//	}}
package lazy

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	vrerrors "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/navrouter"
)

// Loader fetches the contents of a module by name.
type Loader interface {
	Load(ctx context.Context, module string) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, module string) ([]byte, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, module string) ([]byte, error) {
	return f(ctx, module)
}

// Cache holds loaded modules. One cache may be shared by many plugins and
// routers; each module is loaded at most once at a time.
type Cache struct {
	mu      sync.Mutex
	modules map[string][]byte
	loading map[string]*sync.Mutex
}

// NewCache creates an empty module cache.
func NewCache() *Cache {
	return &Cache{
		modules: make(map[string][]byte),
		loading: make(map[string]*sync.Mutex),
	}
}

// Get returns a loaded module.
func (c *Cache) Get(module string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.modules[module]
	return data, ok
}

// Modules returns the names of all loaded modules, sorted.
func (c *Cache) Modules() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// load returns the cached module or calls fetch, holding the module's
// lock so concurrent callers share one fetch.
func (c *Cache) load(module string, fetch func() ([]byte, error)) (data []byte, fetched bool, err error) {
	c.mu.Lock()
	lock, ok := c.loading[module]
	if !ok {
		lock = &sync.Mutex{}
		c.loading[module] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	if data, ok := c.Get(module); ok {
		return data, false, nil
	}
	data, err = fetch()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.modules[module] = data
	c.mu.Unlock()
	return data, true, nil
}

// Plugin loads one module before navigation to the routes it is attached to.
type Plugin struct {
	module string
	loader Loader
	cache  *Cache
	logger *slog.Logger
	onLoad func(module string, data []byte)
}

var _ navrouter.Plugin = (*Plugin)(nil)

// Option configures a Plugin.
type Option func(*Plugin)

// WithCache shares a module cache between plugins.
func WithCache(cache *Cache) Option {
	return func(p *Plugin) {
		if cache != nil {
			p.cache = cache
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// OnLoad registers fn to run after the module has been fetched. It is not
// called for cache hits.
func OnLoad(fn func(module string, data []byte)) Option {
	return func(p *Plugin) {
		p.onLoad = fn
	}
}

// New creates a plugin that loads module through loader.
func New(module string, loader Loader, opts ...Option) *Plugin {
	p := &Plugin{
		module: module,
		loader: loader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = NewCache()
	}
	return p
}

// Name implements navrouter.Plugin.
func (p *Plugin) Name() string {
	return "lazy:" + p.module
}

// Module returns the module name.
func (p *Plugin) Module() string {
	return p.module
}

// Cache returns the plugin's module cache.
func (p *Plugin) Cache() *Cache {
	return p.cache
}

// BeforeNavigation implements navrouter.Plugin. Failures are R005 errors.
func (p *Plugin) BeforeNavigation(ctx context.Context, to *navrouter.Route) error {
	data, fetched, err := p.cache.load(p.module, func() ([]byte, error) {
		return p.loader.Load(ctx, p.module)
	})
	if err != nil {
		return vrerrors.New("R005").
			WithDetailf("module %q for route %q", p.module, to.Path).
			Wrap(err)
	}
	if !fetched {
		return nil
	}

	p.logger.Debug("module loaded",
		"module", p.module,
		"route", to.Path,
		"bytes", len(data),
		"navigation_id", navrouter.NavigationID(ctx),
	)
	if p.onLoad != nil {
		p.onLoad(p.module, data)
	}
	return nil
}
