package syncer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"zgit/src/bridge"
	"zgit/src/registry"
	"zgit/src/syncer"
	"zgit/src/volmgr"
)

type fakeSource struct {
	name string
	err  error
}

func (s *fakeSource) TakeSnapshot(ctx context.Context, name string) (*bridge.Handle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bridge.Handle{Path: "/snapshots/" + name, Name: name}, nil
}

func (s *fakeSource) String() string { return s.name }

type fakeCopier struct{ copies [][2]string }

func (c *fakeCopier) Copy(ctx context.Context, from, to string) error {
	c.copies = append(c.copies, [2]string{from, to})
	return nil
}

func TestBackupAll(t *testing.T) {
	f := volmgr.NewFake()
	f.AddVolume("tank/home", "/tank/home")
	snaps(f, "tank/a", "g1")
	f.AddVolume("backup", "")
	reg := registry.New()
	for _, p := range [][3]string{{"tank/home", "backup", "backup/home"}, {"tank/a", "backup", "backup/a"}} {
		if err := reg.AddRemote(p[0], p[1], p[2]); err != nil {
			t.Fatalf("AddRemote: %v", err)
		}
	}
	// tank/a is clean; its backup already matches.
	snaps(f, "backup/a", "g1")

	o := newOrchestrator(f)
	cp := &fakeCopier{}
	o.Importer.Copier = cp
	o.Importer.Now = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 0, 0, time.UTC) }

	bridges := []syncer.Bridge{{Source: &fakeSource{name: "lvm:/dev/vg0/home"}, Volume: "tank/home"}}
	rep, err := o.BackupAll(context.Background(), reg, bridges, syncer.SyncOptions{PushOptions: syncer.PushOptions{CreateIfMissing: true}})
	if err != nil {
		t.Fatalf("BackupAll: %v", err)
	}
	if len(rep.Imports) != 1 || rep.Imports[0].Snapshot != "2402030405" || rep.Imports[0].Err != nil {
		t.Fatalf("imports = %+v", rep.Imports)
	}
	if len(cp.copies) != 1 || cp.copies[0] != [2]string{"/snapshots/2402030405", "/tank/home"} {
		t.Fatalf("copies = %v", cp.copies)
	}
	// The import left tank/home with a head and no changes, so only the
	// sync moves it.
	if len(rep.Commits) != 0 {
		t.Fatalf("commits = %+v", rep.Commits)
	}
	if len(rep.Syncs) != 2 || rep.Failed() != 0 {
		t.Fatalf("syncs = %+v", rep.Syncs)
	}
	if got := len(f.Volumes["backup/home"].Snapshots); got != 1 {
		t.Fatalf("backup/home has %d snapshots", got)
	}
}

func TestBackupAll_RecordsFailures(t *testing.T) {
	f := volmgr.NewFake()
	f.AddVolume("tank/home", "/tank/home")
	reg := registry.New()
	_ = reg.Init("tank/gone")
	o := newOrchestrator(f)
	o.Importer.Copier = &fakeCopier{}

	bridges := []syncer.Bridge{{Source: &fakeSource{name: "incus:default/p/v", err: errors.New("daemon down")}, Volume: "tank/home"}}
	rep, err := o.BackupAll(context.Background(), reg, bridges, syncer.SyncOptions{})
	if err != nil {
		t.Fatalf("BackupAll: %v", err)
	}
	if rep.Failed() != 2 || len(rep.Commits) != 1 || rep.Commits[0].Volume != "tank/gone" {
		t.Fatalf("report = %+v", rep)
	}

	_, err = o.BackupAll(context.Background(), reg, bridges, syncer.SyncOptions{StopOnError: true})
	if err == nil {
		t.Fatalf("StopOnError should surface the import failure")
	}
}
