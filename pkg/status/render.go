package status

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/orchestrator"
	"github.com/juliencaulet/acm-control/pkg/probe"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const (
	iconOK   = "✓"
	iconFail = "✗"
	iconWarn = "!"
)

// RenderCheck writes one status line for a probed component.
func RenderCheck(w io.Writer, name registry.ComponentName, state probe.State, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(w, "%s %-13s probe failed: %v\n", failStyle.Render(iconFail), name, err)
	case state.Running:
		detail := fmt.Sprintf("pid %d", state.PID)
		if state.Port != 0 {
			detail += fmt.Sprintf(", port %d", state.Port)
		}
		fmt.Fprintf(w, "%s %-13s running (%s)\n", okStyle.Render(iconOK), name, detail)
	default:
		fmt.Fprintf(w, "%s %-13s not running\n", failStyle.Render(iconFail), name)
	}
}

// RenderError writes a failure line with the colored indicator.
func RenderError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", failStyle.Render(iconFail), err)
}

// RenderOutcome writes one result line of a start/stop operation.
func RenderOutcome(w io.Writer, name registry.ComponentName, outcome orchestrator.Outcome, err error) {
	if err != nil {
		icon := failStyle.Render(iconFail)
		if errors.IsTimeoutError(err) {
			icon = warnStyle.Render(iconWarn)
		}
		fmt.Fprintf(w, "%s %-13s %v\n", icon, name, err)
		return
	}
	switch outcome {
	case orchestrator.OutcomeAlreadyRunning, orchestrator.OutcomeAlreadyStopped:
		fmt.Fprintf(w, "%s %-13s %s\n", okStyle.Render(iconOK), name, dimStyle.Render(string(outcome)))
	default:
		fmt.Fprintf(w, "%s %-13s %s\n", okStyle.Render(iconOK), name, outcome)
	}
}
