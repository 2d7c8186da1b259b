// Package exithook registers backup removal of temporary directories for
// when the process exits without running its deferred cleanup.
//
// On unix the removal is queued with onexit, which runs it from a helper
// shell after this process is gone, even on SIGKILL. On windows no helper
// exists and only the caller's own cleanup applies.
package exithook

import "strings"

// CancelFunc withdraws a registered removal. It is never nil and is safe to
// call more than once.
type CancelFunc func()

func noop() {}

// registrable reports whether dir can be passed through the line-based
// onexit protocol.
func registrable(dir string) bool {
	return dir != "" && !strings.ContainsAny(dir, "\n\r")
}
