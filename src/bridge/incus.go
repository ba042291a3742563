package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"zgit/src/incusapi"
)

// DefaultIncusStorageRoot is where Incus keeps storage pool mounts.
const DefaultIncusStorageRoot = "/var/lib/incus/storage-pools"

// Incus snapshots a custom storage volume through the Incus API and reads
// the snapshot from the pool's on-disk layout. This works for pool drivers
// that expose snapshots as directories (dir, btrfs).
type Incus struct {
	Client      incusapi.Client
	Project     string
	Pool        string
	Volume      string
	StorageRoot string
}

func NewIncus(c incusapi.Client, project, pool, volume string) *Incus {
	return &Incus{Client: c, Project: project, Pool: pool, Volume: volume, StorageRoot: DefaultIncusStorageRoot}
}

func (s *Incus) String() string { return "incus:" + s.Project + "/" + s.Pool + "/" + s.Volume }

// SnapshotPath is the directory holding snapshot name of the volume.
func (s *Incus) SnapshotPath(name string) string {
	vol := s.Volume
	if s.Project != "" && s.Project != "default" {
		vol = s.Project + "_" + s.Volume
	}
	return filepath.Join(s.StorageRoot, s.Pool, "custom-snapshots", vol, name)
}

func (s *Incus) TakeSnapshot(ctx context.Context, name string) (*Handle, error) {
	if err := s.Client.CreateVolumeSnapshot(s.Project, s.Pool, s.Volume, name); err != nil {
		return nil, err
	}
	del := func(context.Context) error { return s.Client.DeleteVolumeSnapshot(s.Project, s.Pool, s.Volume, name) }
	p := s.SnapshotPath(name)
	if fi, err := os.Stat(p); err != nil || !fi.IsDir() {
		return nil, errors.Join(fmt.Errorf("incus snapshot %s is not readable at %s", name, p), del(ctx))
	}
	return &Handle{Path: p, Name: name, release: del}, nil
}
