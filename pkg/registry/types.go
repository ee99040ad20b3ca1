package registry

// ComponentName identifies one of the managed services. The set is fixed:
// the orchestrator manages exactly the datastore, the API server and the
// web frontend.
type ComponentName string

const (
	ComponentDatastore   ComponentName = "datastore"
	ComponentAPIServer   ComponentName = "api-server"
	ComponentWebFrontend ComponentName = "web-frontend"
)

// ComponentNames lists the managed components in dependency order: the
// datastore must be up before the API server, which must be up before the
// web frontend.
func ComponentNames() []ComponentName {
	return []ComponentName{ComponentDatastore, ComponentAPIServer, ComponentWebFrontend}
}

// Environment selects the start-command variant and resource parameters.
// It is immutable for the duration of one invocation.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// StopMechanism describes how a component is brought down.
type StopMechanism string

const (
	// StopMechanismSignal sends SIGTERM to the spawned process group.
	StopMechanismSignal StopMechanism = "signal"
	// StopMechanismServiceManager delegates to the system service manager
	// (systemd or brew services), used for the datastore.
	StopMechanismServiceManager StopMechanism = "service-manager"
)

// ExecSpec describes how to launch a component's process for one environment.
type ExecSpec struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args,omitempty"`
	Dir  string   `yaml:"dir,omitempty"`
	Env  []string `yaml:"env,omitempty"`
}

// Component is the static description of one managed service.
type Component struct {
	Name ComponentName

	// Start holds the per-environment launch command. Empty for
	// service-manager components, whose start goes through the manager.
	Start map[Environment]ExecSpec

	// Stop selects signal delivery or a service-manager call.
	Stop StopMechanism

	// ServiceName is the service-manager unit name. Only set when Stop is
	// StopMechanismServiceManager.
	ServiceName string

	// MatchPattern is the command-line substring identifying the
	// component's OS process.
	MatchPattern string

	// LogFile is where the component's output lands. Fixed, environment
	// independent.
	LogFile string

	// Port the component listens on when running.
	Port int

	// DependsOn names the component that must be running before this one
	// starts, and that stops after this one. At most one.
	DependsOn ComponentName

	// Preconditions are filesystem paths that must exist before a start is
	// attempted (virtualenv for the backend, package.json for the
	// frontend).
	Preconditions []string
}
