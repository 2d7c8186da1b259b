package diskimage

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// HDIUtil mounts images with the macOS hdiutil tool.
type HDIUtil struct {
	bin string
}

// NewHDIUtil returns a Mounter that runs hdiutil from PATH.
func NewHDIUtil() *HDIUtil {
	return &HDIUtil{bin: "hdiutil"}
}

// Mount attaches imagePath read-only at mountPoint without opening a
// Finder window.
func (h *HDIUtil) Mount(ctx context.Context, imagePath, mountPoint string) error {
	return h.run(ctx, "attach", "-nobrowse", "-readonly", "-noautoopen", "-mountpoint", mountPoint, imagePath)
}

// Unmount detaches the volume at mountPoint.
func (h *HDIUtil) Unmount(ctx context.Context, mountPoint string) error {
	return h.run(ctx, "detach", mountPoint)
}

func (h *HDIUtil) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, h.bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("hdiutil %s: %w", args[0], err)
		}
		return fmt.Errorf("hdiutil %s: %w: %s", args[0], err, msg)
	}
	return nil
}
