package app

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/NoakLiu/SandGraphX/internal/capability"
	"github.com/NoakLiu/SandGraphX/internal/config"
	"github.com/NoakLiu/SandGraphX/internal/hclconf"
	"github.com/NoakLiu/SandGraphX/internal/yamlconf"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: logger, capability registry, and the workflow loader chosen for
// the input file's format.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	loader   config.Loader
	registry *capability.Registry
}

// NewApp constructs a fully initialized App with its own isolated logger
// and registry. Passing no modules installs the compiled-in core set.
func NewApp(outW io.Writer, cfg *Config, modules ...capability.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := capability.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, m := range modules {
		m.Register(reg)
	}
	logger.Debug("Capability modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		loader:   loaderForPath(cfg.WorkflowPath),
		registry: reg,
	}
}

// loaderForPath picks the workflow loader by file extension. HCL is the
// primary format; .yaml/.yml selects the YAML loader.
func loaderForPath(path string) config.Loader {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yamlconf.NewLoader()
	default:
		return hclconf.NewLoader()
	}
}
