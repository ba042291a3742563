package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zgit/src/history"
	"zgit/src/safety"
	"zgit/src/volmgr"
)

func newForgetCmd(stdout io.Writer) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "forget [VOLUME]",
		Short: "Delete all but the most recent commits of a volume",
		Long: `Delete all but the most recent --keep commits of a volume. Remotes are not
consulted: forgetting the last commit a remote shares with this volume breaks
fast-forward between them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 1 {
				return errors.New("--keep must be > 0")
			}
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			vol, err := rt.volume(cmd, argAt(args, 0))
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			h, ok := hs[vol]
			if !ok {
				return &history.UnknownVolumeError{Volume: vol}
			}
			if len(h) <= keep {
				fmt.Fprintf(stdout, "%s has %d commits; nothing to forget\n", vol, len(h))
				return nil
			}
			doomed := h[:len(h)-keep]
			for _, s := range doomed {
				fmt.Fprintf(stdout, "%s@%s\t%s\tdelete\n", vol, s.Name, s.Created.Format("2006-01-02 15:04"))
			}
			if rt.opts.DryRun {
				return nil
			}
			ok, err = safety.Confirm(rt.opts, cmd.InOrStdin(), stdout, fmt.Sprintf("Delete %d old snapshots from %s?", len(doomed), vol))
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(stdout, "deleting %d old snapshots from %s...\n", len(doomed), vol)
			_, err = rt.orch.Forget(rt.ctx, hs, vol, keep)
			return err
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 4, "Number of latest commits to keep")
	return cmd
}

func newLogCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "log [VOLUME]",
		Short: "List the commits of a volume, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			vol, err := rt.volume(cmd, argAt(args, 0))
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			h, ok := hs[vol]
			if !ok {
				return &history.UnknownVolumeError{Volume: vol}
			}
			for i := len(h) - 1; i >= 0; i-- {
				s := h[i]
				fmt.Fprintf(stdout, "commit %s (ZFS snapshot %s)\n", s.ContentID, s.Name)
				fmt.Fprintln(stdout, "Author: (not recorded)")
				fmt.Fprintf(stdout, "Date:   %s\n\n", s.Created.Format("Mon Jan 2 15:04:05 2006 -0700"))
				fmt.Fprintf(stdout, "    %s\n\n", s.Message)
			}
			return nil
		},
	}
}

func newCommitCmd(stdout io.Writer) *cobra.Command {
	var message, name string
	cmd := &cobra.Command{
		Use:   "commit [VOLUME]",
		Short: "Commit a snapshot of a volume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			vol, err := rt.volume(cmd, argAt(args, 0))
			if err != nil {
				return err
			}
			if message == "" {
				message, err = safety.Prompt(cmd.InOrStdin(), stdout, "Enter a commit message")
				if err != nil {
					return fmt.Errorf("commit message: %w", err)
				}
			}
			if rt.opts.DryRun {
				fmt.Fprintf(stdout, "would commit %s\n", vol)
				return nil
			}
			snap, err := rt.orch.Commit(rt.ctx, vol, name, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Committed snapshot %s\n", snap)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Snapshot name (default YYMMDDhhmm)")
	return cmd
}

// statusLimit caps the changes listed per volume by status --all.
const statusLimit = 10

func newStatusCmd(stdout io.Writer) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "status [VOLUME]",
		Short: "List files changed since the last commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			if !all {
				vol, err := rt.volume(cmd, argAt(args, 0))
				if err != nil {
					return err
				}
				changes, err := rt.orch.Status(rt.ctx, hs, vol)
				if err != nil {
					return err
				}
				printChanges(stdout, changes, 0)
				return nil
			}
			reg, err := rt.loadRegistry()
			if err != nil {
				return err
			}
			for _, src := range reg.Sources() {
				fmt.Fprintf(stdout, "%s:\n", src)
				changes, err := rt.orch.Status(rt.ctx, hs, src)
				if err != nil {
					fmt.Fprintf(stdout, "\tERROR: %v\n", err)
					continue
				}
				printChanges(stdout, changes, statusLimit)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show status of every registered volume")
	return cmd
}

func newDiffCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [SNAPSHOT [SNAPSHOT]]",
		Short: "List changes against a snapshot or between two snapshots",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			vol, err := rt.volume(cmd, "")
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			changes, err := rt.orch.Diff(rt.ctx, hs, vol, args...)
			if err != nil {
				return err
			}
			printChanges(stdout, changes, 0)
			return nil
		},
	}
}

// printChanges prints diff lines as-is; limit > 0 truncates with "...".
func printChanges(w io.Writer, changes []volmgr.Change, limit int) {
	for i, c := range changes {
		if limit > 0 && i == limit {
			fmt.Fprintln(w, "...")
			return
		}
		fmt.Fprintln(w, c.String())
	}
}
