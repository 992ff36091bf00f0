// Package loader provides multi-source configuration loading
package loader

import (
	"os"
	"sort"

	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/config/source"
	"pubsub-core/internal/config/validator"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
)

// EnvPrefix is the environment variable prefix for server settings
const EnvPrefix = "PUBSUB"

// Loader loads configuration from multiple sources in priority order
type Loader struct {
	sources      []source.Source
	skipValidate bool
}

// NewLoader creates a new Loader
func NewLoader() *Loader {
	return &Loader{
		sources: make([]source.Source, 0),
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(s source.Source) {
	l.sources = append(l.sources, s)
}

// SetSkipValidate disables the validation phase
func (l *Loader) SetSkipValidate(skip bool) {
	l.skipValidate = skip
}

// Load loads configuration from all sources in priority order, then validates it
// Lower priority sources are loaded first, then higher priority sources override
func (l *Loader) Load() (*schema.Root, error) {
	if len(l.sources) == 0 {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "no configuration sources registered")
	}

	sorted := make([]source.Source, len(l.sources))
	copy(sorted, l.sources)
	sort.Stable(source.ByPriority(sorted))

	cfg := &schema.Root{}
	for _, s := range sorted {
		corelog.Debugf("Loading configuration from source: %s (priority %d)", s.Name(), s.Priority())
		if err := s.LoadInto(cfg); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError,
				"failed to load configuration from source %s", s.Name())
		}
	}

	if !l.skipValidate {
		if result := validator.ValidateConfig(cfg); !result.IsValid() {
			return nil, coreerrors.New(coreerrors.CodeConfigError, result.Error())
		}
	}

	return cfg, nil
}

// LoaderBuilder helps build a Loader with common configurations
type LoaderBuilder struct {
	loader       *Loader
	prefix       string
	configFile   string
	appEnv       string
	enableDotEnv bool
	skipValidate bool
}

// NewLoaderBuilder creates a new LoaderBuilder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		loader:       NewLoader(),
		prefix:       EnvPrefix,
		enableDotEnv: true,
	}
}

// WithPrefix sets the environment variable prefix
func (b *LoaderBuilder) WithPrefix(prefix string) *LoaderBuilder {
	b.prefix = prefix
	return b
}

// WithConfigFile sets the configuration file path
func (b *LoaderBuilder) WithConfigFile(path string) *LoaderBuilder {
	b.configFile = path
	return b
}

// WithAppEnv sets the application environment (development/production)
func (b *LoaderBuilder) WithAppEnv(env string) *LoaderBuilder {
	b.appEnv = env
	return b
}

// WithDotEnv enables or disables .env file loading
func (b *LoaderBuilder) WithDotEnv(enabled bool) *LoaderBuilder {
	b.enableDotEnv = enabled
	return b
}

// WithSkipValidate enables or disables the validation phase
func (b *LoaderBuilder) WithSkipValidate(skip bool) *LoaderBuilder {
	b.skipValidate = skip
	return b
}

// Build creates the configured Loader
func (b *LoaderBuilder) Build() *Loader {
	// 1. defaults (lowest priority)
	b.loader.AddSource(source.NewDefaultSource())

	// 2. YAML file
	configFile := source.FindConfigFile(b.configFile)
	if configFile != "" {
		b.loader.AddSource(source.NewYAMLSource(configFile))
		corelog.Debugf("Using config file: %s", configFile)
	}

	// 3. .env files, exported into the environment for step 4
	if b.enableDotEnv {
		b.loader.AddSource(source.NewDotEnvSource(source.FindDotEnvDirs(configFile), b.appEnv))
	}

	// 4. environment variables (highest priority)
	b.loader.AddSource(source.NewEnvSource(b.prefix))

	b.loader.SetSkipValidate(b.skipValidate)
	return b.loader
}

// LoadServer loads and validates the server configuration
// An explicitly named config file must exist
func LoadServer(configFile string) (*schema.Root, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError, "config file %q", configFile)
		}
	}
	return NewLoaderBuilder().
		WithConfigFile(configFile).
		WithAppEnv(os.Getenv(EnvPrefix + "_ENV")).
		Build().
		Load()
}
