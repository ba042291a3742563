package bridge

import (
	"fmt"

	"zgit/src/incusapi"
	"zgit/src/target"
)

// Opener builds Sources from parsed bridge URIs.
type Opener struct {
	LVM         LVMCommands
	MountDir    string
	StorageRoot string
	// Incus connects lazily so LVM-only setups never need the daemon.
	Incus func() (incusapi.Client, error)

	incus incusapi.Client
}

func DefaultOpener() *Opener {
	return &Opener{
		LVM:         DefaultLVMCommands(),
		MountDir:    "/root/zgit",
		StorageRoot: DefaultIncusStorageRoot,
		Incus: func() (incusapi.Client, error) {
			c, err := incusapi.ConnectLocal()
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// Open returns the Source for t.
func (o *Opener) Open(t target.Target) (Source, error) {
	switch t.Scheme {
	case "lvm":
		l := NewLVM(t.DevicePath)
		l.Commands = o.LVM
		if o.MountDir != "" {
			l.MountDir = o.MountDir
		}
		return l, nil
	case "incus":
		if o.incus == nil {
			c, err := o.Incus()
			if err != nil {
				return nil, fmt.Errorf("connect to incus: %w", err)
			}
			o.incus = c
		}
		s := NewIncus(o.incus, t.Project, t.Pool, t.Volume)
		if o.StorageRoot != "" {
			s.StorageRoot = o.StorageRoot
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported bridge scheme %q", t.Scheme)
}
