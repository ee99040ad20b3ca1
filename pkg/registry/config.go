package registry

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/juliencaulet/acm-control/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration structure constructed once at startup
// and passed to every component. Defaults cover the standard project layout;
// a YAML file can override any field.
type Config struct {
	// ProjectDir is the application checkout root, containing backend/ and
	// web/.
	ProjectDir string `yaml:"project_dir"`

	// LogDir holds the per-component log files. Fixed location, not
	// environment dependent.
	LogDir string `yaml:"log_dir"`

	// MongoURL is the datastore connection string used for introspection
	// queries only.
	MongoURL string `yaml:"mongo_url"`

	// MongoServiceName is the service-manager unit managing the datastore.
	MongoServiceName string `yaml:"mongo_service_name"`

	Orchestration OrchestrationConfig `yaml:"orchestration"`
}

// OrchestrationConfig bounds the start/stop wait windows and surfaces the
// two policy choices the tool deliberately leaves to the operator.
type OrchestrationConfig struct {
	// StartTimeout bounds the wait for a component to reach the running
	// state after a start.
	StartTimeout time.Duration `yaml:"start_timeout,omitempty"`

	// StopTimeout is the grace period after a stop signal before the stop
	// is reported as failed.
	StopTimeout time.Duration `yaml:"stop_timeout,omitempty"`

	// PollInterval is the initial delay of the liveness retry loop; each
	// retry multiplies it by BackoffRate.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	BackoffRate  float64       `yaml:"backoff_rate,omitempty"`

	// ForceKillAfterTimeout escalates to SIGKILL when the grace period
	// expires. Off by default: certainty of termination is traded for
	// safety.
	ForceKillAfterTimeout bool `yaml:"force_kill_after_timeout,omitempty"`

	// LockFile serializes concurrent invocations when set. Empty disables
	// the guard.
	LockFile string `yaml:"lock_file,omitempty"`
}

// DefaultConfig returns the configuration for the standard layout rooted at
// the current working directory.
func DefaultConfig() *Config {
	config := &Config{}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads configuration from a YAML file and applies
// defaults for anything the file leaves unset.
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setConfigDefaults(config *Config) {
	if config.ProjectDir == "" {
		if wd, err := os.Getwd(); err == nil {
			config.ProjectDir = wd
		} else {
			config.ProjectDir = "."
		}
	}
	if config.LogDir == "" {
		config.LogDir = config.ProjectDir + "/logs"
	}
	if config.MongoURL == "" {
		config.MongoURL = "mongodb://localhost:27017"
	}
	if config.MongoServiceName == "" {
		if runtime.GOOS == "darwin" {
			config.MongoServiceName = "mongodb-community"
		} else {
			config.MongoServiceName = "mongod"
		}
	}

	orch := &config.Orchestration
	if orch.StartTimeout == 0 {
		orch.StartTimeout = 30 * time.Second
	}
	if orch.StopTimeout == 0 {
		orch.StopTimeout = 15 * time.Second
	}
	if orch.PollInterval == 0 {
		orch.PollInterval = 500 * time.Millisecond
	}
	if orch.BackoffRate == 0 {
		orch.BackoffRate = 1.5
	}
}

// ValidateConfig validates the configuration structure.
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}
	if config.ProjectDir == "" {
		return errors.NewValidationError("project directory cannot be empty", nil)
	}
	if config.LogDir == "" {
		return errors.NewValidationError("log directory cannot be empty", nil)
	}

	orch := config.Orchestration
	if orch.StartTimeout <= 0 {
		return errors.NewValidationError(
			fmt.Sprintf("invalid start timeout: %v", orch.StartTimeout), nil)
	}
	if orch.StopTimeout <= 0 {
		return errors.NewValidationError(
			fmt.Sprintf("invalid stop timeout: %v", orch.StopTimeout), nil)
	}
	if orch.PollInterval <= 0 {
		return errors.NewValidationError(
			fmt.Sprintf("invalid poll interval: %v", orch.PollInterval), nil)
	}
	if orch.BackoffRate < 1.0 {
		return errors.NewValidationError(
			fmt.Sprintf("backoff rate must be >= 1.0, got %g", orch.BackoffRate), nil)
	}

	return nil
}

// ParseEnvironment validates an environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvironmentDevelopment:
		return EnvironmentDevelopment, nil
	case EnvironmentProduction:
		return EnvironmentProduction, nil
	default:
		return "", errors.NewValidationError(
			fmt.Sprintf("unsupported environment: %s", s), nil,
		).WithContext("supported_environments", "development, production")
	}
}
