package capability

import (
	"fmt"
	"log/slog"
)

// EnvironmentFactory builds a fresh, per-node environment instance from the
// node's static config. Each environment node owns its own instance, so
// state never leaks between nodes sharing a sandbox type.
type EnvironmentFactory func(config map[string]any) (Environment, error)

// Module is implemented by packages that contribute sandbox types or custom
// handlers to an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry holds the sandbox factories and custom handlers available to an
// engine instance.
type Registry struct {
	sandboxes map[string]EnvironmentFactory
	handlers  map[string]CustomFunc
}

// NewRegistry creates and initializes an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sandboxes: make(map[string]EnvironmentFactory),
		handlers:  make(map[string]CustomFunc),
	}
}

// RegisterSandbox registers an environment factory under a sandbox type
// name. Registering the same name twice is a programming error and panics.
func (r *Registry) RegisterSandbox(name string, factory EnvironmentFactory) {
	if _, exists := r.sandboxes[name]; exists {
		panic(fmt.Sprintf("sandbox type '%s' already registered", name))
	}
	slog.Debug("Registering sandbox factory.", "name", name)
	r.sandboxes[name] = factory
}

// RegisterHandler registers a custom node handler by name. Duplicate
// registration panics.
func (r *Registry) RegisterHandler(name string, fn CustomFunc) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("custom handler '%s' already registered", name))
	}
	slog.Debug("Registering custom handler.", "name", name)
	r.handlers[name] = fn
}

// NewEnvironment instantiates an environment of the given sandbox type.
func (r *Registry) NewEnvironment(sandboxType string, config map[string]any) (Environment, error) {
	factory, ok := r.sandboxes[sandboxType]
	if !ok {
		return nil, fmt.Errorf("unknown sandbox type '%s'", sandboxType)
	}
	return factory(config)
}

// Handler looks up a custom handler by name.
func (r *Registry) Handler(name string) (CustomFunc, error) {
	fn, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown custom handler '%s'", name)
	}
	return fn, nil
}
