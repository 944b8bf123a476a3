package pushclient

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultAppName is the name given to an App built without WithName.
const DefaultAppName = "[DEFAULT]"

// Option configures App.
type Option func(*App)

// WithLogger sets a custom logger for the App and the components built from it.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for registration requests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}

// WithSessionDir sets the directory where transport state is stored.
func WithSessionDir(dir string) Option {
	return func(a *App) {
		a.sessionDir = dir
	}
}

// WithName sets the App name.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// App is the application handle. Build it once with InitializeApp and pass it
// to everything that needs a component bound to the same configuration.
type App struct {
	name       string
	config     Config
	sessionDir string
	logger     *slog.Logger
	httpClient *http.Client

	mu         sync.Mutex
	components map[string]*component
}

type component struct {
	once  sync.Once
	value any
}

// InitializeApp creates an App from cfg. The configuration is copied and not
// validated.
func InitializeApp(cfg Config, opts ...Option) *App {
	a := &App{
		name:       DefaultAppName,
		config:     cfg,
		sessionDir: DefaultSessionDir(),
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		components: make(map[string]*component),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("App initialized", "name", a.name, "project_id", cfg.ProjectID)
	return a
}

// DefaultSessionDir returns ~/.pushclient.
func DefaultSessionDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pushclient")
}

// Name returns the App name.
func (a *App) Name() string { return a.name }

// Config returns a copy of the App configuration.
func (a *App) Config() Config { return a.config }

// SessionDir returns the directory where transport state is stored.
func (a *App) SessionDir() string { return a.sessionDir }

// Logger returns the App logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// HTTPClient returns the App HTTP client.
func (a *App) HTTPClient() *http.Client { return a.httpClient }

// Component returns the value registered under key, calling build the first
// time key is requested. build runs at most once per key for the lifetime of
// the App; concurrent callers wait for it and all receive the same value.
func (a *App) Component(key string, build func() any) any {
	a.mu.Lock()
	c, ok := a.components[key]
	if !ok {
		c = &component{}
		a.components[key] = c
	}
	a.mu.Unlock()

	c.once.Do(func() {
		c.value = build()
		a.logger.Debug("App component created", "app", a.name, "component", key)
	})
	return c.value
}
