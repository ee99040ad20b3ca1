package probe

import (
	"context"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// gopsutilTable is the production ProcessTable, reading the OS process table
// through gopsutil.
type gopsutilTable struct{}

// NewSystemProcessTable returns a ProcessTable backed by the live OS process
// table.
func NewSystemProcessTable() ProcessTable {
	return &gopsutilTable{}
}

func (g *gopsutilTable) List(ctx context.Context) ([]TableEntry, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]TableEntry, 0, len(procs))
	for _, proc := range procs {
		cmdline, err := proc.CmdlineWithContext(ctx)
		if err != nil {
			// Processes can exit mid-scan or deny access; skip them.
			continue
		}
		if cmdline == "" {
			continue
		}
		entries = append(entries, TableEntry{PID: proc.Pid, Cmdline: cmdline})
	}
	return entries, nil
}

func (g *gopsutilTable) Snapshot(ctx context.Context, pid int32, preferredPort int) (State, bool, error) {
	exists, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return NotRunning(), false, err
	}
	if !exists {
		return NotRunning(), false, nil
	}

	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return NotRunning(), false, nil
	}

	state := State{Running: true, PID: pid}

	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		state.MemoryRSS = mem.RSS
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		state.CPUPercent = cpu
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil {
		state.StartedAt = time.UnixMilli(created)
	}
	if conns, err := proc.ConnectionsWithContext(ctx); err == nil {
		state.Port = listeningPort(conns, preferredPort)
	}

	return state, true, nil
}

// listeningPort picks the listening TCP port to report: the component's
// configured port when the process holds it, otherwise the lowest listener.
func listeningPort(conns []psnet.ConnectionStat, preferredPort int) int {
	lowest := 0
	for _, conn := range conns {
		if conn.Status != "LISTEN" {
			continue
		}
		port := int(conn.Laddr.Port)
		if port == preferredPort {
			return port
		}
		if lowest == 0 || port < lowest {
			lowest = port
		}
	}
	return lowest
}
