package zfs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zgit/src/volmgr"
	"zgit/src/zfs"
)

// fakeZFS writes a shell script standing in for the zfs binary. Every call
// appends its argv to calls.log; send emits a fixed stream and receive
// stores its stdin.
func fakeZFS(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
echo "$@" >> "` + dir + `/calls.log"
case "$1" in
send) printf 'STREAM' ;;
receive) cat > "` + dir + `/received" ;;
esac
` + body + `
`
	bin := filepath.Join(dir, "zfs")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake zfs: %v", err)
	}
	return bin, dir
}

func calls(t *testing.T, dir string) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "calls.log"))
	if err != nil {
		t.Fatalf("read calls: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestFullTransfer_Pipes(t *testing.T) {
	bin, dir := fakeZFS(t, "")
	d := zfs.New(zfs.Config{Binary: bin}, nil)
	if err := d.FullTransfer(context.Background(), "tank/a", "s1", "backup/a", true); err != nil {
		t.Fatalf("FullTransfer: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "received"))
	if err != nil || string(got) != "STREAM" {
		t.Fatalf("received %q %v", got, err)
	}
	c := calls(t, dir)
	if len(c) != 2 {
		t.Fatalf("calls = %v", c)
	}
	joined := strings.Join(c, "\n")
	if !strings.Contains(joined, "send tank/a@s1") || !strings.Contains(joined, "receive -F backup/a") {
		t.Fatalf("calls = %v", c)
	}
}

func TestIncrementalTransfer_WithProgress(t *testing.T) {
	bin, dir := fakeZFS(t, "")
	var progress bytes.Buffer
	d := zfs.New(zfs.Config{Binary: bin, Progress: &progress}, nil)
	if err := d.IncrementalTransfer(context.Background(), "tank/a", "s1", "s2", "backup/a"); err != nil {
		t.Fatalf("IncrementalTransfer: %v", err)
	}
	joined := strings.Join(calls(t, dir), "\n")
	if !strings.Contains(joined, "send -i tank/a@s1 tank/a@s2") || !strings.Contains(joined, "receive backup/a") {
		t.Fatalf("calls = %s", joined)
	}
	if !strings.Contains(progress.String(), "6 bytes") {
		t.Fatalf("progress = %q", progress.String())
	}
}

func TestTransfer_ReceiveFailureIsReported(t *testing.T) {
	bin, _ := fakeZFS(t, `[ "$1" = receive ] && { echo "destination has been modified" >&2; exit 1; }
exit 0`)
	d := zfs.New(zfs.Config{Binary: bin}, nil)
	err := d.IncrementalTransfer(context.Background(), "tank/a", "s1", "s2", "backup/a")
	var ce *volmgr.CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if ce.Args[1] != "receive" || !strings.Contains(ce.Stderr, "modified") {
		t.Fatalf("error = %+v", ce)
	}
}

func TestCommands_Argv(t *testing.T) {
	bin, dir := fakeZFS(t, "")
	d := zfs.New(zfs.Config{Binary: bin}, nil)
	ctx := context.Background()
	if _, err := d.CreateSnapshot(ctx, "tank/a", "s1", "it's a message; rm -rf /"); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if err := d.SetReadOnly(ctx, "backup/a", true); err != nil {
		t.Fatalf("SetReadOnly: %v", err)
	}
	if err := d.Rollback(ctx, "backup/a", "s1"); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := d.DestroySnapshot(ctx, "tank/a", "s1"); err != nil {
		t.Fatalf("DestroySnapshot: %v", err)
	}
	want := []string{
		"snapshot -o org.zgit:commitmsg=it's a message; rm -rf / tank/a@s1",
		"set readonly=on backup/a",
		"rollback backup/a@s1",
		"destroy tank/a@s1",
	}
	got := calls(t, dir)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("calls = %q", got)
	}
	if err := d.CreateVolume(ctx, "-o"); err == nil {
		t.Fatalf("expected option-like name to be rejected")
	}
}

func TestListHistories(t *testing.T) {
	bin, _ := fakeZFS(t, `case "$*" in
*"-t snapshot"*) printf 'tank/a@s1\t42\t1704067200\thello\n' ;;
*) printf 'tank\ntank/a\n' ;;
esac`)
	hs, err := zfs.New(zfs.Config{Binary: bin}, nil).ListHistories(context.Background())
	if err != nil {
		t.Fatalf("ListHistories: %v", err)
	}
	if !hs.Has("tank") || len(hs["tank/a"]) != 1 || hs["tank/a"][0].ContentID != "42" {
		t.Fatalf("histories = %+v", hs)
	}
}

func TestListHistories_Unavailable(t *testing.T) {
	bin, _ := fakeZFS(t, "exit 1")
	_, err := zfs.New(zfs.Config{Binary: bin}, nil).ListHistories(context.Background())
	var cu *volmgr.CatalogUnavailableError
	if !errors.As(err, &cu) {
		t.Fatalf("expected CatalogUnavailableError, got %v", err)
	}
}
