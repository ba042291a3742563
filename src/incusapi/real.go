package incusapi

import (
	incuscli "github.com/lxc/incus/client"
	"github.com/lxc/incus/shared/api"
)

// customVolumeType is the storage volume type for user-created volumes.
const customVolumeType = "custom"

// RealClient wraps the official Incus Go client.
type RealClient struct {
	c incuscli.InstanceServer
}

// ConnectLocal connects to the local Incus via the UNIX socket.
func ConnectLocal() (*RealClient, error) {
	c, err := incuscli.ConnectIncusUnix("", nil)
	if err != nil {
		return nil, err
	}
	return &RealClient{c: c}, nil
}

func (r *RealClient) Server() (ServerInfo, error) {
	s, _, err := r.c.GetServer()
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{ServerVersion: s.Environment.ServerVersion}, nil
}

func (r *RealClient) CreateVolumeSnapshot(project, pool, volume, snapshot string) error {
	op, err := r.c.UseProject(project).CreateStoragePoolVolumeSnapshot(pool, customVolumeType, volume, api.StorageVolumeSnapshotsPost{Name: snapshot})
	if err != nil {
		return err
	}
	return op.Wait()
}

func (r *RealClient) DeleteVolumeSnapshot(project, pool, volume, snapshot string) error {
	op, err := r.c.UseProject(project).DeleteStoragePoolVolumeSnapshot(pool, customVolumeType, volume, snapshot)
	if err != nil {
		return err
	}
	return op.Wait()
}
