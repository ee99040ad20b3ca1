package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acmerrors "github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
)

func newTestManager(goos string, run commandRunner) *execServiceManager {
	return &execServiceManager{
		run:    run,
		goos:   goos,
		logger: logging.NewNopLogger(),
	}
}

func TestServiceManager_IsActive_Systemd(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		cmdErr  error
		want    bool
		wantErr bool
	}{
		{name: "active unit", output: "active\n", want: true},
		// systemctl is-active exits non-zero for inactive units
		{name: "inactive unit", output: "inactive\n", cmdErr: errors.New("exit status 3"), want: false},
		{name: "failed unit", output: "failed\n", cmdErr: errors.New("exit status 3"), want: false},
		{name: "query failure", output: "", cmdErr: errors.New("systemctl not found"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []string
			manager := newTestManager("linux", func(ctx context.Context, name string, args ...string) ([]byte, error) {
				gotArgs = append([]string{name}, args...)
				return []byte(tt.output), tt.cmdErr
			})

			active, err := manager.IsActive(context.Background(), "mongod")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, acmerrors.IsDiscoveryError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
			assert.Equal(t, []string{"systemctl", "is-active", "mongod"}, gotArgs)
		})
	}
}

func TestServiceManager_IsActive_Brew(t *testing.T) {
	manager := newTestManager("darwin", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "brew", name)
		return []byte(`{"name": "mongodb-community", "running": true, "pid": 42}`), nil
	})

	active, err := manager.IsActive(context.Background(), "mongodb-community")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestServiceManager_StartStop(t *testing.T) {
	var invocations [][]string
	manager := newTestManager("linux", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		invocations = append(invocations, append([]string{name}, args...))
		return nil, nil
	})

	require.NoError(t, manager.Start(context.Background(), "mongod"))
	require.NoError(t, manager.Stop(context.Background(), "mongod"))

	assert.Equal(t, [][]string{
		{"systemctl", "start", "mongod"},
		{"systemctl", "stop", "mongod"},
	}, invocations)
}

func TestServiceManager_StartFailure(t *testing.T) {
	manager := newTestManager("linux", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Failed to start mongod.service: access denied\n"), errors.New("exit status 1")
	})

	err := manager.Start(context.Background(), "mongod")
	require.Error(t, err)
	assert.True(t, acmerrors.IsProcessError(err))
}
