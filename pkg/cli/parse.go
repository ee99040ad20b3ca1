package cli

import (
	"fmt"

	flags "github.com/jessevdk/go-flags"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logview"
	"github.com/juliencaulet/acm-control/pkg/registry"
	"github.com/juliencaulet/acm-control/pkg/status"
)

// Verb is the validated command verb.
type Verb string

const (
	VerbStart Verb = "start"
	VerbStop  Verb = "stop"
	VerbCheck Verb = "check"
	VerbShow  Verb = "show"
	VerbLogs  Verb = "logs"
	VerbHelp  Verb = "help"
)

type flagOptions struct {
	EnvDev   bool   `long:"env-dev" description:"select the development environment (default)"`
	EnvProd  bool   `long:"env-prod" description:"select the production environment"`
	Follow   bool   `long:"follow" description:"stream new log lines as they are appended"`
	Lines    *int   `long:"lines" value-name:"N" description:"number of log lines to show (default 50)"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"tool log verbosity"`
	Config   string `long:"config" value-name:"FILE" description:"path to a YAML configuration override"`
}

// Invocation is the parsed and validated CLI intent.
type Invocation struct {
	Verb        Verb
	Component   registry.ComponentName // unset when All
	All         bool
	Environment registry.Environment
	ShowType    status.ShowType
	LogOptions  logview.Options
	LogLevel    string
	ConfigPath  string
}

// Parse validates the command line into an Invocation. Every rejection
// happens here, before any side effect.
func Parse(argv []string) (*Invocation, error) {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.PassDoubleDash)
	positional, err := parser.ParseArgs(argv)
	if err != nil {
		return nil, errors.NewValidationError("invalid command line flags", err)
	}

	if len(positional) == 0 {
		return nil, errors.NewValidationError("missing command", nil)
	}

	verb, err := parseVerb(positional[0])
	if err != nil {
		return nil, err
	}

	inv := &Invocation{
		Verb:        verb,
		All:         true,
		Environment: registry.EnvironmentDevelopment,
		LogLevel:    opts.LogLevel,
		ConfigPath:  opts.Config,
	}

	if opts.EnvDev && opts.EnvProd {
		return nil, errors.NewValidationError("--env-dev and --env-prod are mutually exclusive", nil)
	}
	if opts.EnvProd {
		inv.Environment = registry.EnvironmentProduction
	}

	if len(positional) > 1 && positional[1] != "all" {
		component, err := registry.ParseComponentName(positional[1])
		if err != nil {
			return nil, err
		}
		inv.Component = component
		inv.All = false
	}

	var rest []string
	if len(positional) > 2 {
		rest = positional[2:]
	}

	switch verb {
	case VerbHelp:
		return inv, nil

	case VerbShow:
		if inv.All || inv.Component != registry.ComponentDatastore {
			return nil, errors.NewValidationError("show is only supported for the datastore component", nil)
		}
		if len(rest) == 0 {
			return nil, errors.NewValidationError("show requires a sub-type: status, databases, collections, users or indexes", nil)
		}
		showType, err := status.ParseShowType(rest[0])
		if err != nil {
			return nil, err
		}
		inv.ShowType = showType
		rest = rest[1:]

	case VerbLogs:
		if inv.All {
			return nil, errors.NewValidationError("logs requires a single component", nil)
		}
		inv.LogOptions = logview.Options{
			Follow: opts.Follow,
			Lines:  logview.DefaultLines,
		}
		if opts.Lines != nil {
			if *opts.Lines <= 0 {
				return nil, errors.NewValidationError(
					fmt.Sprintf("--lines must be positive, got %d", *opts.Lines), nil)
			}
			inv.LogOptions.Lines = *opts.Lines
		}
	}

	if verb != VerbLogs && (opts.Follow || opts.Lines != nil) {
		return nil, errors.NewValidationError("--follow and --lines are only valid for the logs command", nil)
	}

	if len(rest) > 0 {
		return nil, errors.NewValidationError(
			fmt.Sprintf("unexpected argument: %s", rest[0]), nil)
	}

	return inv, nil
}

func parseVerb(s string) (Verb, error) {
	switch Verb(s) {
	case VerbStart, VerbStop, VerbCheck, VerbShow, VerbLogs, VerbHelp:
		return Verb(s), nil
	default:
		return "", errors.NewValidationError(
			fmt.Sprintf("unknown command: %s", s), nil,
		).WithContext("known_commands", "start, stop, check, show, logs, help")
	}
}

// Usage is the text printed for help and for usage errors.
const Usage = `usage: acmctl <command> [component] [options]

commands:
  start    start a component and everything it depends on
  stop     stop a component (and dependents first when stopping all)
  check    report the running state of each component
  show     datastore introspection (requires a sub-type)
  logs     show or follow a component's log file
  help     print this text

components:
  all (default), datastore, api-server, web-frontend

options:
  --env-dev / --env-prod   environment variant (default development)
  --follow                 logs: stream appended lines until interrupted
  --lines N                logs: number of lines to show (default 50)
  --config FILE            YAML configuration override
  --log-level LEVEL        debug, info, warn or error

show sub-types (datastore only):
  status, databases, collections, users, indexes
`
