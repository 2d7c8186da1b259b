//go:build !windows

package exithook

import (
	"sync"

	"al.essio.dev/pkg/shellescape"
	"github.com/matgreaves/run/onexit"
)

// RemoveOnExit queues "rm -rf dir" to run when the process exits. The path
// is shell-quoted, so spaces and metacharacters cannot widen the removal.
func RemoveOnExit(dir string) CancelFunc {
	if !registrable(dir) {
		return noop
	}
	cancel, err := onexit.OnExitF("rm -rf %s", shellescape.Quote(dir))
	if err != nil || cancel == nil {
		return noop
	}
	var once sync.Once
	return func() {
		once.Do(func() { _ = cancel() })
	}
}
