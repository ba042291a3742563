package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zgit/src/history"
	"zgit/src/registry"
	"zgit/src/syncer"
)

// branchVolume maps the optional BRANCH argument onto a volume name;
// "master" is the current volume.
func branchVolume(args []string, i int) string {
	b := argAt(args, i)
	if b == "master" {
		return ""
	}
	return b
}

func newPushCmd(stdout io.Writer) *cobra.Command {
	var opts syncer.PushOptions
	cmd := &cobra.Command{
		Use:   "push REMOTE [BRANCH]",
		Short: "Fast-forward a remote to the current volume",
		Long:  "Fast-forward a remote to the current volume. BRANCH is \"master\" (the current volume) or a volume name.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, stdout, args, opts, false)
		},
	}
	cmd.Flags().BoolVar(&opts.CreateIfMissing, "create", false, "Create the remote volume if it is missing")
	cmd.Flags().BoolVar(&opts.ReadOnly, "readonly", false, "Treat the remote as a read-only archive")
	return cmd
}

func newPullCmd(stdout io.Writer) *cobra.Command {
	var opts syncer.PushOptions
	cmd := &cobra.Command{
		Use:   "pull REMOTE [BRANCH]",
		Short: "Fast-forward the current volume from a remote",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, stdout, args, opts, true)
		},
	}
	cmd.Flags().BoolVar(&opts.ReadOnly, "readonly", false, "Treat the current volume as a read-only archive")
	return cmd
}

func runTransfer(cmd *cobra.Command, stdout io.Writer, args []string, opts syncer.PushOptions, pull bool) error {
	rt, err := newRuntime(cmd, stdout)
	if err != nil {
		return err
	}
	reg, err := rt.loadRegistry()
	if err != nil {
		return err
	}
	vol, err := rt.registeredVolume(cmd, reg, branchVolume(args, 1))
	if err != nil {
		return err
	}
	remote, err := reg.Remote(vol, args[0])
	if err != nil {
		return err
	}
	hs, err := rt.histories()
	if err != nil {
		return err
	}
	src, dest := vol, remote.Dest
	if pull {
		src, dest = dest, src
	}
	if rt.opts.DryRun {
		return printPlan(stdout, hs, src, dest, opts.CreateIfMissing, opts.RootIndex)
	}
	var r syncer.Result
	if pull {
		r, err = rt.orch.Pull(rt.ctx, hs, vol, remote.Dest, opts)
	} else {
		r, err = rt.orch.Push(rt.ctx, hs, vol, remote.Dest, opts)
	}
	r.Remote = remote.Name
	if err != nil {
		return err
	}
	printResult(stdout, r)
	return nil
}

func newSyncCmd(stdout io.Writer) *cobra.Command {
	var all bool
	var opts syncer.SyncOptions
	cmd := &cobra.Command{
		Use:   "sync [VOLUME]",
		Short: "Sync a volume (or all registered volumes) with its remotes by fast-forward",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			reg, err := rt.loadRegistry()
			if err != nil {
				return err
			}
			var sources []string
			if all {
				sources = reg.Sources()
			} else {
				vol, err := rt.registeredVolume(cmd, reg, argAt(args, 0))
				if err != nil {
					return err
				}
				sources = []string{vol}
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			if rt.opts.DryRun {
				return printSyncPlan(stdout, hs, reg, sources, opts.PushOptions)
			}
			var results []syncer.Result
			if all {
				results, err = rt.orch.SyncAll(rt.ctx, hs, reg, opts)
			} else {
				results, err = rt.orch.SyncVolume(rt.ctx, hs, reg, sources[0], opts)
			}
			for _, r := range results {
				printResult(stdout, r)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Synchronize all registered volumes")
	cmd.Flags().BoolVar(&opts.CreateIfMissing, "create", false, "Create remote volumes that are missing")
	cmd.Flags().BoolVar(&opts.ReadOnly, "readonly", false, "Treat remotes as read-only archives")
	cmd.Flags().BoolVar(&opts.StopOnError, "stop-on-error", false, "Stop at the first failed pair and exit non-zero")
	return cmd
}

func printSyncPlan(w io.Writer, hs history.Histories, reg *registry.Config, sources []string, opts syncer.PushOptions) error {
	for _, src := range sources {
		for _, l := range reg.BackupMap[src] {
			a, b := src, l.Dest
			if c, err := history.Compare(a, b, hs); err == nil && c.Outcome == history.Diverged {
				if back, err := history.Compare(b, a, hs); err == nil && back.Outcome != history.Diverged {
					a, b = b, a
				}
			}
			if err := printPlan(w, hs, a, b, opts.CreateIfMissing, opts.RootIndex); err != nil {
				fmt.Fprintf(w, "ERROR: %s -> %s: %v\n", a, b, err)
			}
		}
	}
	return nil
}
