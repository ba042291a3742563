package volmgr_test

import (
	"context"
	"errors"
	"testing"

	"zgit/src/volmgr"
)

func TestResolveVolume(t *testing.T) {
	mounts := map[string]string{
		"tank":        "/tank",
		"tank/home":   "/tank/home",
		"tank/legacy": "legacy",
		"tank/none":   "none",
		"tank/homer":  "/tank/homer",
	}
	cases := map[string]string{
		"/tank/home/alice/docs": "tank/home",
		"/tank/home":            "tank/home",
		"/tank/homer/x":         "tank/homer",
		"/tank/other":           "tank",
		"/tank/home/../x":       "tank",
	}
	for path, want := range cases {
		got, err := volmgr.ResolveVolume(mounts, path)
		if err != nil || got != want {
			t.Fatalf("%s: got %q %v, want %q", path, got, err, want)
		}
	}
	var nv *volmgr.NoVolumeError
	if _, err := volmgr.ResolveVolume(mounts, "/srv"); !errors.As(err, &nv) {
		t.Fatalf("expected NoVolumeError, got %v", err)
	}
}

func TestResolveVolumeForPath(t *testing.T) {
	f := volmgr.NewFake()
	f.AddVolume("tank/a", "/tank/a")
	f.AddVolume("backup/a", "")
	got, err := volmgr.ResolveVolumeForPath(context.Background(), f, "/tank/a/sub")
	if err != nil || got != "tank/a" {
		t.Fatalf("got %q %v", got, err)
	}
}
