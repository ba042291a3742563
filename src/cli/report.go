package cli

import (
	"errors"
	"fmt"
	"io"

	"zgit/src/history"
	"zgit/src/replicate"
	"zgit/src/syncer"
)

// printResult writes the one-line user report for a pair.
func printResult(w io.Writer, r syncer.Result) {
	from, to := r.Source, r.Dest
	if r.Direction == syncer.Pull {
		from, to = r.Dest, r.Source
	}
	switch r.State {
	case syncer.Executed:
		if r.Head == nil {
			fmt.Fprintf(w, "%s and %s are up to date\n", r.Source, r.Dest)
			return
		}
		if r.Direction == syncer.Pull {
			fmt.Fprintf(w, "pulled %s@%s to %s\n", from, r.Head.Name, to)
		} else {
			fmt.Fprintf(w, "pushed %s@%s to %s\n", from, r.Head.Name, to)
		}
	case syncer.Skipped:
		switch r.Reason {
		case syncer.ReasonUpToDate:
			fmt.Fprintf(w, "%s and %s are up to date\n", r.Source, r.Dest)
		case syncer.ReasonDiverged:
			fmt.Fprintf(w, "Cannot fast-forward either %s or %s: histories diverged, merge is not supported\n", r.Source, r.Dest)
		case syncer.ReasonNotAvailable:
			fmt.Fprintf(w, "destination %s is not available; use --create to create it\n", to)
		default:
			fmt.Fprintf(w, "skipped %s -> %s: %s\n", from, to, r.Reason)
		}
	case syncer.Failed:
		fmt.Fprintf(w, "ERROR: %s -> %s: %v\n", from, to, r.Err)
		var tf *replicate.TransferFailedError
		if errors.As(r.Err, &tf) {
			fmt.Fprintln(w, "\tConsider using the --readonly option if the destination is an archive")
		}
	}
}

// printPlan describes what a push from src to dest would do.
func printPlan(w io.Writer, hs history.Histories, src, dest string, create bool, rootIndex int) error {
	c, err := history.Compare(src, dest, hs)
	if err != nil {
		return err
	}
	switch c.Outcome {
	case history.UpToDate:
		fmt.Fprintf(w, "%s and %s are up to date\n", src, dest)
		return nil
	case history.Diverged:
		fmt.Fprintf(w, "cannot fast-forward %s to %s\n", src, dest)
		return nil
	case history.DestMissing:
		if !create || !hs.PoolExists(dest) || len(hs[src]) == 0 {
			fmt.Fprintf(w, "destination %s is not available\n", dest)
			return nil
		}
	}
	plan, err := history.NewPlan(c, hs[src], rootIndex)
	if err != nil {
		return err
	}
	if plan.Root != nil {
		fmt.Fprintf(w, "would create %s from %s@%s\n", dest, src, plan.Root.Name)
	}
	for _, inc := range plan.Increments {
		fmt.Fprintf(w, "would send %s@%s..%s to %s\n", src, inc.From.Name, inc.To.Name, dest)
	}
	return nil
}
