package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LVMCommands is the command table used by LVM sources.
type LVMCommands struct {
	LVCreate string
	LVRemove string
	Mount    string
	Umount   string
}

// DefaultLVMCommands uses the stock binaries from PATH.
func DefaultLVMCommands() LVMCommands {
	return LVMCommands{LVCreate: "lvcreate", LVRemove: "lvremove", Mount: "mount", Umount: "umount"}
}

// LVM snapshots a logical volume and mounts the snapshot read-only.
type LVM struct {
	// Path is the logical volume device, e.g. /dev/vg0/home.
	Path string
	// Size is the copy-on-write space reserved for the snapshot.
	Size string
	// MountDir holds temporary snapshot mount points.
	MountDir string
	Commands LVMCommands
}

func NewLVM(path string) *LVM {
	return &LVM{Path: path, Size: "1G", MountDir: "/root/zgit", Commands: DefaultLVMCommands()}
}

func (l *LVM) String() string { return "lvm:" + l.Path }

func (l *LVM) TakeSnapshot(ctx context.Context, name string) (*Handle, error) {
	c := l.Commands
	if err := run(ctx, c.LVCreate, "--size", l.Size, "-s", "-n", name, l.Path); err != nil {
		return nil, err
	}
	dev := filepath.Join(filepath.Dir(l.Path), name)
	removeLV := func(ctx context.Context) error { return run(ctx, c.LVRemove, "-f", dev) }

	mountPoint := filepath.Join(l.MountDir, name)
	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return nil, errors.Join(fmt.Errorf("create mount point: %w", err), removeLV(ctx))
	}
	if err := run(ctx, c.Mount, "-o", "ro", dev, mountPoint); err != nil {
		return nil, errors.Join(err, os.Remove(mountPoint), removeLV(ctx))
	}
	return &Handle{
		Path: mountPoint,
		Name: name,
		release: func(ctx context.Context) error {
			if err := run(ctx, c.Umount, mountPoint); err != nil {
				return err
			}
			if err := os.Remove(mountPoint); err != nil {
				return err
			}
			return removeLV(ctx)
		},
	}, nil
}
