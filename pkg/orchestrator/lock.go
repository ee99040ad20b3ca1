package orchestrator

import (
	"fmt"
	"os"

	"github.com/juliencaulet/acm-control/pkg/errors"
)

// AcquireLock serializes concurrent invocations through an exclusive lock
// file. Returns a release function.
func AcquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NewConflictError("another invocation holds the lock", nil).WithContext("lock_file", path)
		}
		return nil, errors.NewIOError("failed to create lock file", err).WithContext("lock_file", path)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return func() {
		os.Remove(path)
	}, nil
}
