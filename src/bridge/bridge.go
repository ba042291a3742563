// Package bridge imports snapshots taken outside ZFS (LVM logical volumes,
// Incus custom volumes) into a managed volume as ordinary commits.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"zgit/src/history"
	"zgit/src/volmgr"
)

// Handle is a temporary, readable view of an external snapshot.
type Handle struct {
	// Path is a directory holding the snapshot's files.
	Path string
	// Name is the snapshot name reused for the commit.
	Name    string
	release func(context.Context) error
}

// NewHandle returns a handle whose Release calls release.
func NewHandle(path, name string, release func(context.Context) error) *Handle {
	return &Handle{Path: path, Name: name, release: release}
}

// Release tears down the snapshot and its mount.
func (h *Handle) Release(ctx context.Context) error {
	if h == nil || h.release == nil {
		return nil
	}
	return h.release(ctx)
}

// Source produces transferable snapshots of external origin.
type Source interface {
	TakeSnapshot(ctx context.Context, name string) (*Handle, error)
	String() string
}

// Copier copies a snapshot tree into a volume's mount point.
type Copier interface {
	Copy(ctx context.Context, from, to string) error
}

// Rsync copies with rsync, deleting files absent from the source.
type Rsync struct {
	Binary string
	Args   []string
}

// DefaultRsync is `rsync -a --delete`.
func DefaultRsync() Rsync { return Rsync{Binary: "rsync", Args: []string{"-a", "--delete"}} }

func (r Rsync) Copy(ctx context.Context, from, to string) error {
	args := append(append([]string{}, r.Args...), strings.TrimSuffix(from, "/")+"/", to)
	return run(ctx, r.Binary, args...)
}

// Importer commits external snapshots into volumes.
type Importer struct {
	Transport volmgr.Transport
	Inspector volmgr.Inspector
	Copier    Copier
	Log       logrus.FieldLogger
	Now       func() time.Time
	// KeepSource leaves the external snapshot in place after import.
	KeepSource bool
}

func NewImporter(m volmgr.Manager, log logrus.FieldLogger) *Importer {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Importer{Transport: m, Inspector: m, Copier: DefaultRsync(), Log: log, Now: time.Now}
}

// Import snapshots src, copies it into volume and commits the result under
// the same snapshot name. An empty name uses the date.
func (i *Importer) Import(ctx context.Context, src Source, volume, name, message string) (snap string, err error) {
	if name == "" {
		name = history.DateName(i.Now())
	}
	mounts, err := i.Inspector.MountPoints(ctx)
	if err != nil {
		return "", err
	}
	mp, ok := mounts[volume]
	if !ok || !strings.HasPrefix(mp, "/") {
		return "", fmt.Errorf("volume %s has no mount point", volume)
	}
	log := i.Log.WithFields(logrus.Fields{"source": src.String(), "volume": volume, "snapshot": name})

	h, err := src.TakeSnapshot(ctx, name)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", src, err)
	}
	if !i.KeepSource {
		defer func() {
			if rerr := h.Release(ctx); rerr != nil {
				log.WithError(rerr).Warn("release external snapshot")
				if err == nil {
					err = rerr
				}
			}
		}()
	}
	log.Info("copying external snapshot")
	if err := i.Copier.Copy(ctx, h.Path, mp); err != nil {
		return "", fmt.Errorf("copy %s -> %s: %w", h.Path, volume, err)
	}
	snap, err = i.Transport.CreateSnapshot(ctx, volume, h.Name, message)
	if err != nil {
		return "", err
	}
	return snap, nil
}

// run executes a helper binary, folding stderr into the error.
func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &volmgr.CommandError{Args: append([]string{bin}, args...), Stderr: stderr.String(), Err: err}
	}
	return nil
}
