package syncer

import (
	"context"

	"github.com/sirupsen/logrus"

	"zgit/src/bridge"
	"zgit/src/history"
	"zgit/src/registry"
)

// DefaultBackupMessage is the commit message used by unattended backups.
const DefaultBackupMessage = "backup latest changes"

// Bridge pairs an external snapshot source with the volume it feeds.
type Bridge struct {
	Source bridge.Source
	Volume string
}

// Commit is one snapshot taken during a backup.
type Commit struct {
	Volume   string
	Snapshot string
	Err      error
}

// BackupReport collects everything a backup run did.
type BackupReport struct {
	Imports []Commit
	Commits []Commit
	Syncs   []Result
}

// Failed counts the failed items of the run.
func (r BackupReport) Failed() int {
	n := 0
	for _, c := range r.Imports {
		if c.Err != nil {
			n++
		}
	}
	for _, c := range r.Commits {
		if c.Err != nil {
			n++
		}
	}
	for _, s := range r.Syncs {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// BackupAll imports every bridge, commits every registered source that
// changed, then syncs all registered pairs. Per-item failures are recorded
// in the report; the error is only set for catalog failures or, when
// opts.StopOnError is set, for the first failed item.
func (o *Orchestrator) BackupAll(ctx context.Context, reg *registry.Config, bridges []Bridge, opts SyncOptions) (BackupReport, error) {
	var rep BackupReport
	for _, b := range bridges {
		snap, err := o.Importer.Import(ctx, b.Source, b.Volume, "", "")
		rep.Imports = append(rep.Imports, Commit{Volume: b.Volume, Snapshot: snap, Err: err})
		if err != nil {
			o.Log.WithError(err).WithFields(logrus.Fields{"source": b.Source.String(), "volume": b.Volume}).Error("bridge import failed")
			if opts.StopOnError {
				return rep, err
			}
		}
	}

	hs, err := o.Histories(ctx)
	if err != nil {
		return rep, err
	}
	for _, src := range reg.Sources() {
		if !hs.Has(src) {
			err := &history.UnknownVolumeError{Volume: src}
			rep.Commits = append(rep.Commits, Commit{Volume: src, Err: err})
			o.Log.WithError(err).Warn("registered source is missing")
			if opts.StopOnError {
				return rep, err
			}
			continue
		}
		snap, changed, err := o.CommitIfChanged(ctx, hs, src, DefaultBackupMessage)
		if err != nil || changed {
			rep.Commits = append(rep.Commits, Commit{Volume: src, Snapshot: snap, Err: err})
		}
		if err != nil && opts.StopOnError {
			return rep, err
		}
	}

	hs, err = o.Histories(ctx)
	if err != nil {
		return rep, err
	}
	rep.Syncs, err = o.SyncAll(ctx, hs, reg, opts)
	return rep, err
}
