// Package replicate executes replication plans against a volume transport.
package replicate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"zgit/src/history"
	"zgit/src/volmgr"
)

// Options tune a single plan execution.
type Options struct {
	// ReadOnly marks the destination as a disposable read-only archive. A
	// failed transfer is then retried once after rolling the destination
	// back to its last good snapshot and forcing it read-only. A freshly
	// created destination is made read-only as well.
	ReadOnly bool
}

// TransferFailedError wraps the transport error that stopped a plan.
// From is empty for a full transfer.
type TransferFailedError struct {
	Source, Dest string
	From, To     string
	Err          error
}

func (e *TransferFailedError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("full transfer of %s@%s to %s failed: %v", e.Source, e.To, e.Dest, e.Err)
	}
	return fmt.Sprintf("incremental transfer of %s@%s..%s to %s failed: %v", e.Source, e.From, e.To, e.Dest, e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }

// Executor carries out plans. It is not safe for concurrent use.
type Executor struct {
	Transport volmgr.Transport
	Log       logrus.FieldLogger
	// RetryDelay is the pause before the single recovery retry.
	RetryDelay time.Duration
}

func New(t volmgr.Transport, log logrus.FieldLogger) *Executor {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Executor{Transport: t, Log: log, RetryDelay: time.Second}
}

// Execute applies plan and records every applied snapshot in hs so later
// comparisons in the same run see the new state. It returns the newest
// snapshot now present on the destination, or nil when nothing moved.
// Increments already applied stay applied when a later one fails.
func (e *Executor) Execute(ctx context.Context, plan history.Plan, hs history.Histories, opts Options) (*history.Snapshot, error) {
	log := e.Log.WithFields(logrus.Fields{"source": plan.Source, "dest": plan.Dest})
	var head *history.Snapshot

	if plan.Root != nil {
		for _, parent := range hs.MissingParents(plan.Dest) {
			log.WithField("volume", parent).Info("creating parent volume")
			if err := e.Transport.CreateVolume(ctx, parent); err != nil {
				return nil, fmt.Errorf("create parent %s: %w", parent, err)
			}
			hs[parent] = history.History{}
		}
		root := *plan.Root
		log.WithField("snapshot", root.Name).Info("full transfer")
		err := e.withRecovery(ctx, opts.ReadOnly, func(int) error {
			return e.Transport.FullTransfer(ctx, plan.Source, root.Name, plan.Dest, plan.DestExists)
		})
		if err != nil {
			return nil, &TransferFailedError{Source: plan.Source, Dest: plan.Dest, To: root.Name, Err: err}
		}
		hs[plan.Dest] = history.History{root}
		head = &root
		if opts.ReadOnly {
			if err := e.Transport.SetReadOnly(ctx, plan.Dest, true); err != nil {
				return head, fmt.Errorf("mark %s read-only: %w", plan.Dest, err)
			}
		}
	}

	for _, inc := range plan.Increments {
		inc := inc
		log.WithFields(logrus.Fields{"from": inc.From.Name, "to": inc.To.Name}).Info("incremental transfer")
		err := e.withRecovery(ctx, opts.ReadOnly, func(attempt int) error {
			if attempt > 0 {
				if err := e.recover(ctx, plan.Dest, hs); err != nil {
					return err
				}
			}
			return e.Transport.IncrementalTransfer(ctx, plan.Source, inc.From.Name, inc.To.Name, plan.Dest)
		})
		if err != nil {
			return head, &TransferFailedError{Source: plan.Source, Dest: plan.Dest, From: inc.From.Name, To: inc.To.Name, Err: err}
		}
		hs[plan.Dest] = append(hs[plan.Dest], inc.To)
		to := inc.To
		head = &to
	}
	return head, nil
}

// recover rolls dest back to its newest recorded snapshot and forces it
// read-only.
func (e *Executor) recover(ctx context.Context, dest string, hs history.Histories) error {
	last, ok := hs[dest].Head()
	if !ok {
		return fmt.Errorf("no snapshot to roll %s back to", dest)
	}
	if err := e.Transport.Rollback(ctx, dest, last.Name); err != nil {
		return fmt.Errorf("rollback %s@%s: %w", dest, last.Name, err)
	}
	if err := e.Transport.SetReadOnly(ctx, dest, true); err != nil {
		return fmt.Errorf("mark %s read-only: %w", dest, err)
	}
	return nil
}

// withRecovery runs op once, or up to twice when retry is allowed. op gets
// the zero-based attempt number.
func (e *Executor) withRecovery(ctx context.Context, retry bool, op func(attempt int) error) error {
	var retries uint64
	if retry {
		retries = 1
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(e.RetryDelay), retries), ctx)
	attempt := 0
	return backoff.RetryNotify(func() error {
		err := op(attempt)
		attempt++
		return err
	}, b, func(err error, _ time.Duration) {
		e.Log.WithError(err).Warn("transfer failed; retrying as read-only archive")
	})
}
