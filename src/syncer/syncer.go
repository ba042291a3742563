// Package syncer composes history comparison, replication and the registry
// into the git-style operations: push, pull, sync, clone and friends.
package syncer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"zgit/src/bridge"
	"zgit/src/history"
	"zgit/src/replicate"
	"zgit/src/volmgr"
)

// State is where a single pair ended up after an attempt.
type State int

const (
	Unknown State = iota
	Executed
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Direction tells which way snapshots moved for a pair.
type Direction int

const (
	// Push moves snapshots from Source to Dest.
	Push Direction = iota
	// Pull moves snapshots from Dest to Source.
	Pull
)

func (d Direction) String() string {
	if d == Pull {
		return "pull"
	}
	return "push"
}

// Reasons used for skipped pairs.
const (
	ReasonUpToDate     = "up to date"
	ReasonNotAvailable = "not available"
	ReasonDiverged     = "diverged"
	ReasonNoSnapshots  = "no snapshots"
)

// Result reports one (source, dest) attempt.
type Result struct {
	Source    string
	Dest      string
	Remote    string
	Direction Direction
	Outcome   history.Outcome
	State     State
	Reason    string
	// Head is the newest snapshot transferred, nil when nothing moved.
	Head *history.Snapshot
	Err  error
}

// Transferred reports whether any snapshot moved.
func (r Result) Transferred() bool { return r.State == Executed && r.Head != nil }

// CannotFastForwardError is returned when neither history contains the
// other's head.
type CannotFastForwardError struct{ Source, Dest string }

func (e *CannotFastForwardError) Error() string {
	return fmt.Sprintf("cannot fast-forward %s to %s: histories diverged", e.Source, e.Dest)
}

// VolumeExistsError is returned when clone targets an existing volume.
type VolumeExistsError struct{ Volume string }

func (e *VolumeExistsError) Error() string { return "volume already exists: " + e.Volume }

// NotAvailableError is returned when a clone cannot start.
type NotAvailableError struct{ Volume, Reason string }

func (e *NotAvailableError) Error() string { return e.Volume + ": " + e.Reason }

// PushOptions tune push, pull and sync.
type PushOptions struct {
	// CreateIfMissing creates an absent destination from the source's
	// RootIndex snapshot, provided the destination pool exists.
	CreateIfMissing bool
	// ReadOnly treats the destination as a disposable read-only archive.
	ReadOnly bool
	// RootIndex picks the root snapshot of a created destination;
	// negative values count from the newest snapshot.
	RootIndex int
}

// SyncOptions tune batch syncs.
type SyncOptions struct {
	PushOptions
	// StopOnError ends a batch at the first failed pair.
	StopOnError bool
}

// Orchestrator runs the operations against one volume manager.
type Orchestrator struct {
	Manager  volmgr.Manager
	Executor *replicate.Executor
	Importer *bridge.Importer
	Log      logrus.FieldLogger
	Now      func() time.Time
}

func New(m volmgr.Manager, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Orchestrator{
		Manager:  m,
		Executor: replicate.New(m, log),
		Importer: bridge.NewImporter(m, log),
		Log:      log,
		Now:      time.Now,
	}
}

// Histories lists every volume with its snapshots.
func (o *Orchestrator) Histories(ctx context.Context) (history.Histories, error) {
	return o.Manager.ListHistories(ctx)
}

// Push fast-forwards dest to src. hs is updated with whatever was applied.
// A diverged pair yields a CannotFastForwardError; a missing destination
// that may not be created is skipped without error.
func (o *Orchestrator) Push(ctx context.Context, hs history.Histories, src, dest string, opts PushOptions) (Result, error) {
	r := Result{Source: src, Dest: dest, Direction: Push}
	c, err := history.Compare(src, dest, hs)
	if err != nil {
		r.State, r.Err = Failed, err
		return r, err
	}
	r.Outcome = c.Outcome
	switch c.Outcome {
	case history.UpToDate:
		r.State, r.Reason = Skipped, ReasonUpToDate
		return r, nil
	case history.Diverged:
		err := &CannotFastForwardError{Source: src, Dest: dest}
		r.State, r.Reason, r.Err = Skipped, ReasonDiverged, err
		return r, err
	case history.DestMissing:
		if len(hs[src]) == 0 {
			r.State, r.Reason = Skipped, ReasonNoSnapshots
			return r, nil
		}
		if !opts.CreateIfMissing || !hs.PoolExists(dest) {
			o.Log.WithFields(logrus.Fields{"source": src, "dest": dest}).Warn("destination is not available")
			r.State, r.Reason = Skipped, ReasonNotAvailable
			return r, nil
		}
	}
	plan, err := history.NewPlan(c, hs[src], opts.RootIndex)
	if err != nil {
		r.State, r.Err = Failed, err
		return r, err
	}
	head, err := o.Executor.Execute(ctx, plan, hs, replicate.Options{ReadOnly: opts.ReadOnly})
	r.Head = head
	if err != nil {
		r.State, r.Err = Failed, err
		return r, err
	}
	r.State = Executed
	return r, nil
}

// Pull fast-forwards src from dest.
func (o *Orchestrator) Pull(ctx context.Context, hs history.Histories, src, dest string, opts PushOptions) (Result, error) {
	r, err := o.Push(ctx, hs, dest, src, opts)
	r.Source, r.Dest, r.Direction = src, dest, Pull
	return r, err
}

// Sync pushes a to b when b's head is in a's history and pulls otherwise.
// When neither head is in the other history nothing is transferred.
func (o *Orchestrator) Sync(ctx context.Context, hs history.Histories, a, b string, opts PushOptions) (Result, error) {
	c, err := history.Compare(a, b, hs)
	if err != nil {
		return Result{Source: a, Dest: b, State: Failed, Err: err}, err
	}
	if c.Outcome != history.Diverged {
		return o.Push(ctx, hs, a, b, opts)
	}
	back, err := history.Compare(b, a, hs)
	if err != nil {
		return Result{Source: a, Dest: b, Outcome: c.Outcome, State: Failed, Err: err}, err
	}
	if back.Outcome == history.Diverged {
		err := &CannotFastForwardError{Source: a, Dest: b}
		return Result{Source: a, Dest: b, Outcome: history.Diverged, State: Skipped, Reason: ReasonDiverged, Err: err}, err
	}
	return o.Pull(ctx, hs, a, b, opts)
}
