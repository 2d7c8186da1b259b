// Package diskimage unpacks macOS .dmg packages into a directory.
//
// An image is attached read-only at a private mount point, its volume is
// copied into the destination, and the image is detached and deleted.
// Mounting is abstracted behind Mounter so the sequence can be exercised
// on any platform.
package diskimage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/idanshimon/protect-web/internal/config"
)

// Expansion failure kinds.
var (
	ErrMount   = errors.New("failed to mount disk image")
	ErrCopy    = errors.New("failed to copy disk image contents")
	ErrUnmount = errors.New("failed to unmount disk image")
)

// Mounter attaches and detaches disk images.
type Mounter interface {
	Mount(ctx context.Context, imagePath, mountPoint string) error
	Unmount(ctx context.Context, mountPoint string) error
}

// Expander copies the contents of disk images into directories.
type Expander struct {
	mounter Mounter
	logger  config.Logger
}

// NewExpander returns an Expander using m, or hdiutil when m is nil.
func NewExpander(m Mounter, logger config.Logger) *Expander {
	if m == nil {
		m = NewHDIUtil()
	}
	return &Expander{mounter: m, logger: config.OrNop(logger)}
}

// Expand mounts imagePath, copies the volume into destDir, unmounts it and
// deletes the image.
//
// A mount failure stops immediately and leaves the image in place. Once the
// image is mounted, unmount and image removal are always attempted, even
// when copying fails or ctx is done. A copy failure takes precedence over
// an unmount failure in the returned error.
func (e *Expander) Expand(ctx context.Context, imagePath, destDir string) error {
	mountPoint, err := os.MkdirTemp("", "protect-web-dmg-")
	if err != nil {
		return fmt.Errorf("%w: create mount point: %v", ErrMount, err)
	}
	defer os.Remove(mountPoint)

	if err := e.mounter.Mount(ctx, imagePath, mountPoint); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMount, imagePath, err)
	}
	e.logger.Debug("disk image mounted", "image", imagePath, "mount_point", mountPoint)

	copyErr := copyTree(mountPoint, destDir)
	unmountErr := e.mounter.Unmount(context.WithoutCancel(ctx), mountPoint)

	if err := os.Remove(imagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("could not remove disk image", "image", imagePath, "error", err)
	}

	switch {
	case copyErr != nil && unmountErr != nil:
		return fmt.Errorf("%w: %v (unmount also failed: %v)", ErrCopy, copyErr, unmountErr)
	case copyErr != nil:
		return fmt.Errorf("%w: %v", ErrCopy, copyErr)
	case unmountErr != nil:
		return fmt.Errorf("%w: %s: %v", ErrUnmount, mountPoint, unmountErr)
	}
	return nil
}
