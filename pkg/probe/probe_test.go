package probe

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acmerrors "github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

type fakeTable struct {
	entries     []TableEntry
	listErr     error
	states      map[int32]State
	snapshotErr error
	snapshots   []int32
}

func (f *fakeTable) List(ctx context.Context) ([]TableEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

func (f *fakeTable) Snapshot(ctx context.Context, pid int32, preferredPort int) (State, bool, error) {
	f.snapshots = append(f.snapshots, pid)
	if f.snapshotErr != nil {
		return NotRunning(), false, f.snapshotErr
	}
	state, ok := f.states[pid]
	return state, ok, nil
}

type fakeServiceManager struct {
	active    bool
	activeErr error
	starts    []string
	stops     []string
}

func (f *fakeServiceManager) IsActive(ctx context.Context, name string) (bool, error) {
	return f.active, f.activeErr
}

func (f *fakeServiceManager) Start(ctx context.Context, name string) error {
	f.starts = append(f.starts, name)
	return nil
}

func (f *fakeServiceManager) Stop(ctx context.Context, name string) error {
	f.stops = append(f.stops, name)
	return nil
}

func testComponents(t *testing.T) (*registry.Component, *registry.Component) {
	t.Helper()
	reg := registry.NewRegistry(registry.DefaultConfig())
	apiServer, err := reg.Component(registry.ComponentAPIServer)
	require.NoError(t, err)
	datastore, err := reg.Component(registry.ComponentDatastore)
	require.NoError(t, err)
	return apiServer, datastore
}

func TestProbe_MatchByPattern(t *testing.T) {
	apiServer, _ := testComponents(t)

	table := &fakeTable{
		entries: []TableEntry{
			{PID: 100, Cmdline: "/usr/bin/bash"},
			{PID: 200, Cmdline: ".venv/bin/uvicorn backend.main:app --host 0.0.0.0 --port 8000"},
		},
		states: map[int32]State{
			200: {Running: true, PID: 200, Port: 8000, StartedAt: time.Now()},
		},
	}

	prober := NewProcessProbe(table, NewPIDTable(), &fakeServiceManager{}, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), apiServer)
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, int32(200), state.PID)
	assert.Equal(t, 8000, state.Port)
}

func TestProbe_NoMatchIsNotAnError(t *testing.T) {
	apiServer, _ := testComponents(t)

	table := &fakeTable{
		entries: []TableEntry{{PID: 100, Cmdline: "/usr/bin/bash"}},
		states:  map[int32]State{},
	}

	prober := NewProcessProbe(table, NewPIDTable(), &fakeServiceManager{}, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), apiServer)
	require.NoError(t, err)
	assert.False(t, state.Running)
}

func TestProbe_ListFailureIsDiscoveryError(t *testing.T) {
	apiServer, _ := testComponents(t)

	table := &fakeTable{listErr: errors.New("proc unreadable")}
	prober := NewProcessProbe(table, NewPIDTable(), &fakeServiceManager{}, logging.NewNopLogger())

	_, err := prober.Probe(context.Background(), apiServer)
	require.Error(t, err)
	assert.True(t, acmerrors.IsDiscoveryError(err))
}

func TestProbe_RecordedPIDTakesPrecedence(t *testing.T) {
	apiServer, _ := testComponents(t)

	// No pattern-matching entry: only the recorded PID is visible.
	table := &fakeTable{
		entries: nil,
		states: map[int32]State{
			321: {Running: true, PID: 321},
		},
	}

	pids := NewPIDTable()
	pids.Record(registry.ComponentAPIServer, 321)

	prober := NewProcessProbe(table, pids, &fakeServiceManager{}, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), apiServer)
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, int32(321), state.PID)
	assert.Equal(t, []int32{321}, table.snapshots, "one snapshot resolves both existence and state")
}

func TestProbe_StaleRecordedPIDFallsBackToScan(t *testing.T) {
	apiServer, _ := testComponents(t)

	table := &fakeTable{
		entries: []TableEntry{
			{PID: 555, Cmdline: "uvicorn backend.main:app"},
		},
		states: map[int32]State{
			555: {Running: true, PID: 555},
			// 999 is gone
		},
	}

	pids := NewPIDTable()
	pids.Record(registry.ComponentAPIServer, 999)

	prober := NewProcessProbe(table, pids, &fakeServiceManager{}, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), apiServer)
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, int32(555), state.PID)
	assert.Zero(t, pids.Lookup(registry.ComponentAPIServer), "stale entry should be forgotten")
}

func TestProbe_DatastoreRequiresActiveService(t *testing.T) {
	_, datastore := testComponents(t)

	table := &fakeTable{
		entries: []TableEntry{{PID: 42, Cmdline: "/usr/bin/mongod --config /etc/mongod.conf"}},
		states:  map[int32]State{42: {Running: true, PID: 42, Port: 27017}},
	}

	svc := &fakeServiceManager{active: false}
	prober := NewProcessProbe(table, NewPIDTable(), svc, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), datastore)
	require.NoError(t, err)
	assert.False(t, state.Running, "substring match alone must not count for a system service")

	svc.active = true
	state, err = prober.Probe(context.Background(), datastore)
	require.NoError(t, err)
	assert.True(t, state.Running)
}

func TestProbe_ServiceManagerFailureIsDiscoveryError(t *testing.T) {
	_, datastore := testComponents(t)

	table := &fakeTable{
		entries: []TableEntry{{PID: 42, Cmdline: "mongod"}},
		states:  map[int32]State{42: {Running: true, PID: 42}},
	}
	svc := &fakeServiceManager{activeErr: errors.New("systemctl unavailable")}

	prober := NewProcessProbe(table, NewPIDTable(), svc, logging.NewNopLogger())

	_, err := prober.Probe(context.Background(), datastore)
	require.Error(t, err)
	assert.True(t, acmerrors.IsDiscoveryError(err))
}

func TestProbe_SkipsOwnProcess(t *testing.T) {
	apiServer, _ := testComponents(t)

	self := int32(os.Getpid())
	table := &fakeTable{
		entries: []TableEntry{
			{PID: self, Cmdline: "acmctl logs backend.main:app"},
		},
		states: map[int32]State{self: {Running: true, PID: self}},
	}

	prober := NewProcessProbe(table, NewPIDTable(), &fakeServiceManager{}, logging.NewNopLogger())

	state, err := prober.Probe(context.Background(), apiServer)
	require.NoError(t, err)
	assert.False(t, state.Running)
}

func TestMatchCmdline(t *testing.T) {
	assert.True(t, MatchCmdline("uvicorn backend.main:app --reload", "backend.main:app"))
	assert.False(t, MatchCmdline("uvicorn other.app", "backend.main:app"))
	assert.False(t, MatchCmdline("anything", ""))
}

func TestPIDTable(t *testing.T) {
	table := NewPIDTable()

	assert.Zero(t, table.Lookup(registry.ComponentDatastore))

	table.Record(registry.ComponentDatastore, 7)
	assert.Equal(t, int32(7), table.Lookup(registry.ComponentDatastore))

	table.Forget(registry.ComponentDatastore)
	assert.Zero(t, table.Lookup(registry.ComponentDatastore))
}
