//go:build windows

package exithook

// RemoveOnExit registers nothing on windows; callers still remove dir with
// their deferred cleanup.
func RemoveOnExit(dir string) CancelFunc {
	return noop
}
