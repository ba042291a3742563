package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"zgit/src/history"
	"zgit/src/volmgr"
)

// ErrNoCommits is returned by operations that need at least one snapshot.
var ErrNoCommits = errors.New("no commits yet")

// Forget destroys every snapshot of volume except the newest keep, oldest
// first, and returns the destroyed ones. Remotes are not consulted: a
// forgotten snapshot may be the last one a remote shares with volume.
func (o *Orchestrator) Forget(ctx context.Context, hs history.Histories, volume string, keep int) ([]history.Snapshot, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	h, ok := hs[volume]
	if !ok {
		return nil, &history.UnknownVolumeError{Volume: volume}
	}
	if len(h) <= keep {
		return nil, nil
	}
	doomed := h[:len(h)-keep]
	o.Log.WithField("volume", volume).Infof("deleting %d old snapshots", len(doomed))
	for i, s := range doomed {
		if err := o.Manager.DestroySnapshot(ctx, volume, s.Name); err != nil {
			hs[volume] = append(history.History{}, h[i:]...)
			return append([]history.Snapshot{}, doomed[:i]...), err
		}
	}
	hs[volume] = append(history.History{}, h[len(doomed):]...)
	return append([]history.Snapshot{}, doomed...), nil
}

// Commit snapshots volume. An empty name uses the current date.
func (o *Orchestrator) Commit(ctx context.Context, volume, name, message string) (string, error) {
	if name == "" {
		name = history.DateName(o.Now())
	}
	snap, err := o.Manager.CreateSnapshot(ctx, volume, name, message)
	if err != nil {
		return "", err
	}
	o.Log.WithFields(logrus.Fields{"volume": volume, "snapshot": snap}).Info("committed")
	return snap, nil
}

// CommitIfChanged commits volume when it differs from its newest snapshot.
// A volume without snapshots is always committed, and so is one whose diff
// cannot be computed.
func (o *Orchestrator) CommitIfChanged(ctx context.Context, hs history.Histories, volume, message string) (string, bool, error) {
	if head, ok := hs[volume].Head(); ok {
		changes, err := o.Manager.Diff(ctx, volume, head.Name, "")
		switch {
		case err != nil:
			o.Log.WithError(err).WithField("volume", volume).Warn("diff failed; assuming modified")
		case len(changes) == 0:
			return "", false, nil
		}
	}
	snap, err := o.Commit(ctx, volume, "", message)
	if err != nil {
		return "", false, err
	}
	return snap, true, nil
}

// Status lists changes of volume since its newest snapshot.
func (o *Orchestrator) Status(ctx context.Context, hs history.Histories, volume string) ([]volmgr.Change, error) {
	return o.Diff(ctx, hs, volume)
}

// Diff lists changes against one snapshot, between two snapshots, or
// against the newest snapshot when none are named.
func (o *Orchestrator) Diff(ctx context.Context, hs history.Histories, volume string, snaps ...string) ([]volmgr.Change, error) {
	h, ok := hs[volume]
	if !ok {
		return nil, &history.UnknownVolumeError{Volume: volume}
	}
	var from, to string
	switch len(snaps) {
	case 0:
		head, ok := h.Head()
		if !ok {
			return nil, ErrNoCommits
		}
		from = head.Name
	case 1:
		from = snaps[0]
	case 2:
		from, to = snaps[0], snaps[1]
	default:
		return nil, fmt.Errorf("diff takes at most two snapshots, got %d", len(snaps))
	}
	return o.Manager.Diff(ctx, volume, from, to)
}
