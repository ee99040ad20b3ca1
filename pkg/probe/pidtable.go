package probe

import (
	"sync"

	"github.com/juliencaulet/acm-control/pkg/registry"
)

// PIDTable records the PIDs of processes spawned during this invocation.
// Probes consult it before falling back to the pattern-based process-table
// scan, which is a fragile liveness signal across invocations but the only
// one available when this table has no entry.
type PIDTable struct {
	mu   sync.Mutex
	pids map[registry.ComponentName]int32
}

func NewPIDTable() *PIDTable {
	return &PIDTable{
		pids: make(map[registry.ComponentName]int32),
	}
}

// Record remembers the PID spawned for a component.
func (t *PIDTable) Record(name registry.ComponentName, pid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pids[name] = pid
}

// Lookup returns the recorded PID for a component, or 0 when none exists.
func (t *PIDTable) Lookup(name registry.ComponentName) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pids[name]
}

// Forget drops a component's entry, used after a confirmed stop or when the
// recorded process turned out to be gone.
func (t *PIDTable) Forget(name registry.ComponentName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pids, name)
}
