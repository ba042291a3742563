package syncer

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"zgit/src/history"
	"zgit/src/registry"
	"zgit/src/replicate"
)

// SyncVolume syncs volume with each of its registered remotes in order.
// Failures are recorded per pair; only with StopOnError is the first one
// also returned.
func (o *Orchestrator) SyncVolume(ctx context.Context, hs history.Histories, reg *registry.Config, volume string, opts SyncOptions) ([]Result, error) {
	remotes, err := reg.Remotes(volume)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(remotes))
	for _, l := range remotes {
		r, err := o.Sync(ctx, hs, volume, l.Dest, opts.PushOptions)
		r.Remote = l.Name
		o.logResult(r)
		results = append(results, r)
		if err != nil && opts.StopOnError {
			return results, err
		}
	}
	return results, nil
}

// SyncAll syncs every registered source, in lexical order.
func (o *Orchestrator) SyncAll(ctx context.Context, hs history.Histories, reg *registry.Config, opts SyncOptions) ([]Result, error) {
	var results []Result
	for _, src := range reg.Sources() {
		rs, err := o.SyncVolume(ctx, hs, reg, src, opts)
		results = append(results, rs...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (o *Orchestrator) logResult(r Result) {
	log := o.Log.WithFields(logrus.Fields{"source": r.Source, "dest": r.Dest, "remote": r.Remote})
	switch r.State {
	case Failed:
		log.WithError(r.Err).Error("sync failed")
	case Skipped:
		log.WithField("reason", r.Reason).Info("sync skipped")
	case Executed:
		if r.Head != nil {
			log.WithFields(logrus.Fields{"snapshot": r.Head.Name, "direction": r.Direction}).Info("synced")
		}
	}
}

// RootIndex maps a "keep newest N" count onto a plan root index.
func RootIndex(keep int) int {
	if keep <= 0 {
		return 0
	}
	return -keep
}

// Clone creates dest from origin and registers origin as remote "origin"
// of dest. keep > 0 starts the clone at the keep-th newest snapshot. Once
// the root snapshot has landed the remote is registered even if a later
// increment fails.
func (o *Orchestrator) Clone(ctx context.Context, hs history.Histories, reg *registry.Config, origin, dest string, keep int) (Result, error) {
	if hs.Has(dest) {
		err := &VolumeExistsError{Volume: dest}
		return Result{Source: origin, Dest: dest, State: Failed, Err: err}, err
	}
	r, err := o.Push(ctx, hs, origin, dest, PushOptions{CreateIfMissing: true, RootIndex: RootIndex(keep)})
	if err != nil {
		if hs.Has(dest) {
			if rerr := reg.AddRemote(dest, "origin", origin); rerr != nil {
				return r, errors.Join(err, rerr)
			}
			r.Remote = "origin"
		}
		return r, err
	}
	if r.State != Executed {
		err := &NotAvailableError{Volume: dest, Reason: "pool " + history.Root(dest) + " does not exist"}
		if r.Reason == ReasonNoSnapshots {
			err = &NotAvailableError{Volume: origin, Reason: ReasonNoSnapshots}
		}
		r.State, r.Err = Failed, err
		return r, err
	}
	if err := reg.AddRemote(dest, "origin", origin); err != nil {
		return r, err
	}
	r.Remote = "origin"
	return r, nil
}

// CloneAll recreates every registered source that is missing but whose
// pool exists, from the first remote that has snapshots. prefix limits
// the remotes considered. A failed restore does not stop the others; the
// failures are returned joined once every source has been tried.
func (o *Orchestrator) CloneAll(ctx context.Context, hs history.Histories, reg *registry.Config, prefix string, keep int) ([]Result, error) {
	var results []Result
	var errs []error
	for _, target := range reg.Sources() {
		if hs.Has(target) || !hs.PoolExists(target) {
			continue
		}
		for _, l := range reg.BackupMap[target] {
			if prefix != "" && !strings.HasPrefix(l.Dest, prefix) {
				continue
			}
			if len(hs[l.Dest]) == 0 {
				continue
			}
			r, err := o.Push(ctx, hs, l.Dest, target, PushOptions{CreateIfMissing: true, RootIndex: RootIndex(keep)})
			r.Remote = l.Name
			o.logResult(r)
			results = append(results, r)
			if err != nil {
				errs = append(errs, err)
			}
			break
		}
	}
	return results, errors.Join(errs...)
}

// AddRemoteOptions tune AddRemote.
type AddRemoteOptions struct {
	// Defer leaves a missing destination to be created by a later sync.
	Defer bool
	// ReadOnly marks a created destination as a read-only archive.
	ReadOnly bool
}

// AddRemote registers dest as remote name of src. A missing destination is
// created from src's oldest snapshot unless deferred.
func (o *Orchestrator) AddRemote(ctx context.Context, hs history.Histories, reg *registry.Config, src, name, dest string, opts AddRemoteOptions) (Result, error) {
	r := Result{Source: src, Dest: dest, Remote: name, State: Skipped}
	for _, l := range reg.BackupMap[src] {
		if l.Name == name {
			err := &registry.DuplicateRemoteError{Volume: src, Remote: name, Dest: l.Dest}
			r.State, r.Err = Failed, err
			return r, err
		}
	}
	if !hs.Has(dest) && !opts.Defer {
		src0, ok := hs[src]
		if !ok || len(src0) == 0 {
			var err error = &NotAvailableError{Volume: src, Reason: ReasonNoSnapshots}
			if !ok {
				err = &history.UnknownVolumeError{Volume: src}
			}
			r.State, r.Err = Failed, err
			return r, err
		}
		root := src0[0]
		plan := history.Plan{Source: src, Dest: dest, Root: &root}
		head, err := o.Executor.Execute(ctx, plan, hs, replicate.Options{ReadOnly: opts.ReadOnly})
		r.Head = head
		if err != nil {
			r.State, r.Err = Failed, err
			return r, err
		}
		r.State, r.Outcome = Executed, history.DestMissing
	}
	if err := reg.AddRemote(src, name, dest); err != nil {
		return r, err
	}
	return r, nil
}

// RemoveRemote drops remote name of src.
func (o *Orchestrator) RemoveRemote(reg *registry.Config, src, name string) (registry.RemoteLink, error) {
	return reg.RemoveRemote(src, name)
}

// Init registers volume as a source with no remotes.
func (o *Orchestrator) Init(reg *registry.Config, volume string) error {
	return reg.Init(volume)
}
