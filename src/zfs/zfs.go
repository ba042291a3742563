// Package zfs implements volmgr.Manager on top of the zfs command line
// tool. Every invocation is a plain argument vector; no shell is involved.
package zfs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"zgit/src/history"
	pg "zgit/src/util/progress"
	"zgit/src/volmgr"
)

// Config is the command table used by a Driver. It is copied into the
// driver at construction and never mutated afterwards.
type Config struct {
	// Binary is the zfs executable, looked up on PATH when not absolute.
	Binary string
	// MessageProperty is the user property holding commit messages.
	MessageProperty string
	// Progress, when set, receives byte counts for every transfer.
	Progress io.Writer
}

// DefaultConfig returns the stock command table.
func DefaultConfig() Config {
	return Config{Binary: "zfs", MessageProperty: "org.zgit:commitmsg"}
}

// Driver talks to ZFS through its CLI.
type Driver struct {
	cfg Config
	log logrus.FieldLogger
}

var _ volmgr.Manager = (*Driver)(nil)

// New returns a driver for cfg. A nil log discards debug output.
func New(cfg Config, log logrus.FieldLogger) *Driver {
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	if cfg.MessageProperty == "" {
		cfg.MessageProperty = DefaultConfig().MessageProperty
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Driver{cfg: cfg, log: log}
}

// Config returns a copy of the driver's command table.
func (d *Driver) Config() Config { return d.cfg }

func (d *Driver) ListHistories(ctx context.Context) (history.Histories, error) {
	names, err := d.output(ctx, "list", "-H", "-p", "-o", "name")
	if err != nil {
		return nil, &volmgr.CatalogUnavailableError{Err: err}
	}
	snaps, err := d.output(ctx, "list", "-H", "-p", "-t", "snapshot", "-s", "createtxg",
		"-o", "name,guid,creation,"+d.cfg.MessageProperty)
	if err != nil {
		return nil, &volmgr.CatalogUnavailableError{Err: err}
	}
	hs, err := parseHistories(names, snaps)
	if err != nil {
		return nil, &volmgr.CatalogUnavailableError{Err: err}
	}
	return hs, nil
}

func parseHistories(names, snaps string) (history.Histories, error) {
	hs := history.Histories{}
	for _, line := range lines(names) {
		hs[line] = history.History{}
	}
	for _, line := range lines(snaps) {
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("unexpected snapshot line %q", line)
		}
		volume, snap, ok := strings.Cut(fields[0], "@")
		if !ok {
			return nil, fmt.Errorf("unexpected snapshot name %q", fields[0])
		}
		created, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: bad creation time %q", fields[0], fields[2])
		}
		msg := fields[3]
		if msg == "-" {
			msg = ""
		}
		hs[volume] = append(hs[volume], history.Snapshot{
			Name:      snap,
			ContentID: fields[1],
			Created:   time.Unix(created, 0).UTC(),
			Message:   msg,
		})
	}
	return hs, nil
}

func (d *Driver) CreateSnapshot(ctx context.Context, volume, name, message string) (string, error) {
	full, err := snapshotName(volume, name)
	if err != nil {
		return "", err
	}
	args := []string{"snapshot"}
	if message != "" {
		args = append(args, "-o", d.cfg.MessageProperty+"="+message)
	}
	args = append(args, full)
	if _, err := d.output(ctx, args...); err != nil {
		return "", err
	}
	return name, nil
}

func (d *Driver) DestroySnapshot(ctx context.Context, volume, name string) error {
	full, err := snapshotName(volume, name)
	if err != nil {
		return err
	}
	_, err = d.output(ctx, "destroy", full)
	return err
}

func (d *Driver) CreateVolume(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, err := d.output(ctx, "create", name)
	return err
}

func (d *Driver) FullTransfer(ctx context.Context, src, snap, dest string, force bool) error {
	full, err := snapshotName(src, snap)
	if err != nil {
		return err
	}
	if err := checkName(dest); err != nil {
		return err
	}
	recv := []string{"receive"}
	if force {
		recv = append(recv, "-F")
	}
	recv = append(recv, dest)
	return d.pipe(ctx, full, []string{"send", full}, recv)
}

func (d *Driver) IncrementalTransfer(ctx context.Context, src, from, to, dest string) error {
	fromName, err := snapshotName(src, from)
	if err != nil {
		return err
	}
	toName, err := snapshotName(src, to)
	if err != nil {
		return err
	}
	if err := checkName(dest); err != nil {
		return err
	}
	return d.pipe(ctx, toName, []string{"send", "-i", fromName, toName}, []string{"receive", dest})
}

func (d *Driver) SetReadOnly(ctx context.Context, volume string, on bool) error {
	if err := checkName(volume); err != nil {
		return err
	}
	val := "readonly=off"
	if on {
		val = "readonly=on"
	}
	_, err := d.output(ctx, "set", val, volume)
	return err
}

func (d *Driver) Rollback(ctx context.Context, volume, snap string) error {
	full, err := snapshotName(volume, snap)
	if err != nil {
		return err
	}
	_, err = d.output(ctx, "rollback", full)
	return err
}

func (d *Driver) Diff(ctx context.Context, volume, from, to string) ([]volmgr.Change, error) {
	fromName, err := snapshotName(volume, from)
	if err != nil {
		return nil, err
	}
	args := []string{"diff", "-H", fromName}
	if to != "" {
		toName, err := snapshotName(volume, to)
		if err != nil {
			return nil, err
		}
		args = append(args, toName)
	}
	out, err := d.output(ctx, args...)
	if err != nil {
		return nil, err
	}
	var changes []volmgr.Change
	for _, line := range lines(out) {
		changes = append(changes, volmgr.Change(strings.Split(line, "\t")))
	}
	return changes, nil
}

func (d *Driver) MountPoints(ctx context.Context) (map[string]string, error) {
	out, err := d.output(ctx, "list", "-H", "-o", "name,mountpoint")
	if err != nil {
		return nil, err
	}
	mounts := map[string]string{}
	for _, line := range lines(out) {
		name, mp, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("unexpected mount line %q", line)
		}
		mounts[name] = mp
	}
	return mounts, nil
}

// output runs zfs with args and returns its stdout.
func (d *Driver) output(ctx context.Context, args ...string) (string, error) {
	d.log.WithField("args", args).Debug("zfs")
	cmd := exec.CommandContext(ctx, d.cfg.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &volmgr.CommandError{Args: append([]string{d.cfg.Binary}, args...), Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// pipe runs `zfs send...` with its stdout connected to `zfs receive...`.
// Both children share an os.Pipe; the parent closes its copies so that the
// sender sees EPIPE if the receiver dies and the receiver sees EOF when the
// sender exits.
func (d *Driver) pipe(ctx context.Context, label string, sendArgs, recvArgs []string) error {
	d.log.WithFields(logrus.Fields{"send": sendArgs, "receive": recvArgs}).Debug("zfs pipe")
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("zfs: create pipe: %w", err)
	}
	send := exec.CommandContext(ctx, d.cfg.Binary, sendArgs...)
	recv := exec.CommandContext(ctx, d.cfg.Binary, recvArgs...)
	var sendErr, recvErr bytes.Buffer
	send.Stdout = pw
	send.Stderr = &sendErr
	recv.Stderr = &recvErr
	if d.cfg.Progress != nil {
		recv.Stdin = pg.NewReader(pr, 0, label, d.cfg.Progress)
	} else {
		recv.Stdin = pr
	}

	if err := recv.Start(); err != nil {
		pr.Close()
		pw.Close()
		return &volmgr.CommandError{Args: append([]string{d.cfg.Binary}, recvArgs...), Err: err}
	}
	if err := send.Start(); err != nil {
		pw.Close()
		_ = recv.Wait()
		pr.Close()
		return &volmgr.CommandError{Args: append([]string{d.cfg.Binary}, sendArgs...), Err: err}
	}
	pw.Close()
	if d.cfg.Progress == nil {
		pr.Close()
	}
	recvWait := recv.Wait()
	pr.Close()
	sendWait := send.Wait()

	// A dead receiver makes the sender fail with EPIPE; report the cause.
	if recvWait != nil {
		return &volmgr.CommandError{Args: append([]string{d.cfg.Binary}, recvArgs...), Stderr: recvErr.String(), Err: recvWait}
	}
	if sendWait != nil {
		return &volmgr.CommandError{Args: append([]string{d.cfg.Binary}, sendArgs...), Stderr: sendErr.String(), Err: sendWait}
	}
	return nil
}

// checkName rejects names the zfs tool would parse as options.
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid volume name %q", name)
	}
	return nil
}

func snapshotName(volume, snap string) (string, error) {
	if err := checkName(volume); err != nil {
		return "", err
	}
	if snap == "" || strings.ContainsAny(snap, "@/") {
		return "", fmt.Errorf("invalid snapshot name %q", snap)
	}
	return volume + "@" + snap, nil
}

func lines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			out = append(out, line)
		}
	}
	return out
}
