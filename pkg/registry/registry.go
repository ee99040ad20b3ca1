package registry

import (
	"fmt"
	"path/filepath"

	"github.com/juliencaulet/acm-control/pkg/errors"
)

// Registry maps component names to their static descriptions and owns the
// fixed dependency order.
type Registry struct {
	components map[ComponentName]*Component
	order      []ComponentName
}

// NewRegistry builds the component table for the App Collection Manager
// stack from the given configuration.
func NewRegistry(config *Config) *Registry {
	backendDir := config.ProjectDir
	frontendDir := filepath.Join(config.ProjectDir, "web")
	venvDir := filepath.Join(backendDir, ".venv")
	uvicornPath := filepath.Join(venvDir, "bin", "uvicorn")

	uvicornArgs := func(extra ...string) []string {
		args := []string{"backend.main:app", "--host", "0.0.0.0", "--port", "8000"}
		return append(args, extra...)
	}

	backendEnv := func(env Environment) []string {
		return []string{
			"ACM_ENVIRONMENT=" + string(env),
			"PYTHONPATH=" + backendDir,
		}
	}

	components := map[ComponentName]*Component{
		ComponentDatastore: {
			Name:         ComponentDatastore,
			Stop:         StopMechanismServiceManager,
			ServiceName:  config.MongoServiceName,
			MatchPattern: "mongod",
			LogFile:      filepath.Join(config.LogDir, "mongodb.log"),
			Port:         27017,
		},
		ComponentAPIServer: {
			Name: ComponentAPIServer,
			Start: map[Environment]ExecSpec{
				EnvironmentDevelopment: {
					Path: uvicornPath,
					Args: uvicornArgs("--reload"),
					Dir:  backendDir,
					Env:  backendEnv(EnvironmentDevelopment),
				},
				EnvironmentProduction: {
					Path: uvicornPath,
					Args: uvicornArgs("--workers", "4"),
					Dir:  backendDir,
					Env:  backendEnv(EnvironmentProduction),
				},
			},
			Stop:          StopMechanismSignal,
			MatchPattern:  "backend.main:app",
			LogFile:       filepath.Join(config.LogDir, "backend.log"),
			Port:          8000,
			DependsOn:     ComponentDatastore,
			Preconditions: []string{venvDir},
		},
		ComponentWebFrontend: {
			Name: ComponentWebFrontend,
			Start: map[Environment]ExecSpec{
				EnvironmentDevelopment: {
					Path: "npm",
					Args: []string{"run", "dev"},
					Dir:  frontendDir,
				},
				EnvironmentProduction: {
					Path: "npm",
					Args: []string{"run", "start"},
					Dir:  frontendDir,
				},
			},
			Stop:          StopMechanismSignal,
			MatchPattern:  "npm run",
			LogFile:       filepath.Join(config.LogDir, "frontend.log"),
			Port:          3000,
			DependsOn:     ComponentAPIServer,
			Preconditions: []string{filepath.Join(frontendDir, "package.json")},
		},
	}

	return &Registry{
		components: components,
		order:      ComponentNames(),
	}
}

// Component returns the description for name.
func (r *Registry) Component(name ComponentName) (*Component, error) {
	component, ok := r.components[name]
	if !ok {
		return nil, errors.NewValidationError(
			fmt.Sprintf("unknown component: %s", name), nil,
		).WithContext("known_components", "datastore, api-server, web-frontend")
	}
	return component, nil
}

// StartOrder returns the components in dependency order for startup.
func (r *Registry) StartOrder() []ComponentName {
	order := make([]ComponentName, len(r.order))
	copy(order, r.order)
	return order
}

// StopOrder returns the components in reverse dependency order for shutdown.
func (r *Registry) StopOrder() []ComponentName {
	order := make([]ComponentName, len(r.order))
	for i, name := range r.order {
		order[len(r.order)-1-i] = name
	}
	return order
}

// ParseComponentName validates a component name from the command line.
func ParseComponentName(s string) (ComponentName, error) {
	switch ComponentName(s) {
	case ComponentDatastore, ComponentAPIServer, ComponentWebFrontend:
		return ComponentName(s), nil
	default:
		return "", errors.NewValidationError(
			fmt.Sprintf("unknown component: %s", s), nil,
		).WithContext("known_components", "all, datastore, api-server, web-frontend")
	}
}
