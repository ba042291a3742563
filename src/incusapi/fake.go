package incusapi

import "sort"

// FakeClient is an in-memory implementation for unit tests.
type FakeClient struct {
	ServerVersionStr string
	// Snapshots maps "project/pool/volume" to its snapshot names.
	Snapshots map[string][]string
	// OnCreate, when set, runs after a snapshot is recorded; tests use it
	// to materialise the snapshot directory.
	OnCreate func(project, pool, volume, snapshot string) error
}

func NewFake() *FakeClient {
	return &FakeClient{Snapshots: map[string][]string{}}
}

func (f *FakeClient) Server() (ServerInfo, error) {
	return ServerInfo{ServerVersion: f.ServerVersionStr}, nil
}

func key(project, pool, volume string) string { return project + "/" + pool + "/" + volume }

func (f *FakeClient) CreateVolumeSnapshot(project, pool, volume, snapshot string) error {
	k := key(project, pool, volume)
	for _, s := range f.Snapshots[k] {
		if s == snapshot {
			// mimic Incus conflict
			return &ConflictError{Resource: "snapshot", Name: k + "/" + snapshot}
		}
	}
	f.Snapshots[k] = append(f.Snapshots[k], snapshot)
	sort.Strings(f.Snapshots[k])
	if f.OnCreate != nil {
		return f.OnCreate(project, pool, volume, snapshot)
	}
	return nil
}

func (f *FakeClient) DeleteVolumeSnapshot(project, pool, volume, snapshot string) error {
	k := key(project, pool, volume)
	snaps := f.Snapshots[k]
	for i, s := range snaps {
		if s == snapshot {
			f.Snapshots[k] = append(snaps[:i:i], snaps[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{Resource: "snapshot", Name: k + "/" + snapshot}
}

type ConflictError struct{ Resource, Name string }
func (e *ConflictError) Error() string { return e.Resource + " conflict: " + e.Name }

type NotFoundError struct{ Resource, Name string }
func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }
