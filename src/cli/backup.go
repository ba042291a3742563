package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"zgit/src/bridge"
	"zgit/src/history"
	"zgit/src/registry"
	"zgit/src/syncer"
	"zgit/src/target"
)

func newBackupCmd(stdout io.Writer) *cobra.Command {
	var opts syncer.SyncOptions
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Import bridges, commit changed volumes and sync every remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			reg, err := rt.loadRegistry()
			if err != nil {
				return err
			}
			bridges, err := openBridges(reg, newOpenerFn(), "")
			if err != nil {
				return err
			}
			if rt.opts.DryRun {
				for _, b := range bridges {
					fmt.Fprintf(stdout, "would import %s into %s\n", b.Source, b.Volume)
				}
				hs, err := rt.histories()
				if err != nil {
					return err
				}
				for _, src := range reg.Sources() {
					fmt.Fprintf(stdout, "would commit %s if changed\n", src)
				}
				return printSyncPlan(stdout, hs, reg, reg.Sources(), opts.PushOptions)
			}
			rep, err := rt.orch.BackupAll(rt.ctx, reg, bridges, opts)
			for _, c := range rep.Imports {
				printCommit(stdout, c, "imported")
			}
			for _, c := range rep.Commits {
				printCommit(stdout, c, "Committed snapshot")
			}
			for _, r := range rep.Syncs {
				printResult(stdout, r)
			}
			if err != nil {
				return err
			}
			if n := rep.Failed(); n > 0 {
				rt.log.Warnf("backup finished with %d failures", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.CreateIfMissing, "create", false, "Create remote volumes that are missing")
	cmd.Flags().BoolVar(&opts.ReadOnly, "readonly", false, "Treat remotes as read-only archives")
	cmd.Flags().BoolVar(&opts.StopOnError, "stop-on-error", false, "Stop at the first failure and exit non-zero")
	return cmd
}

func printCommit(w io.Writer, c syncer.Commit, verb string) {
	if c.Err != nil {
		fmt.Fprintf(w, "ERROR: %s: %v\n", c.Volume, c.Err)
		return
	}
	fmt.Fprintf(w, "%s %s@%s\n", verb, c.Volume, c.Snapshot)
}

// openBridges opens every bridge mapping in source order; only selects a
// single source when non-empty.
func openBridges(reg *registry.Config, opener *bridge.Opener, only string) ([]syncer.Bridge, error) {
	bridges := reg.Bridges()
	keys := make([]string, 0, len(bridges))
	for k := range bridges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []syncer.Bridge
	for _, k := range keys {
		t, err := target.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("bridge map: %w", err)
		}
		if only != "" && t.String() != only {
			continue
		}
		src, err := opener.Open(t)
		if err != nil {
			return nil, err
		}
		out = append(out, syncer.Bridge{Source: src, Volume: bridges[k]})
	}
	if only != "" && len(out) == 0 {
		return nil, fmt.Errorf("no bridge registered for %s", only)
	}
	return out, nil
}

func newBridgeCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Import LVM or Incus volume snapshots as commits",
	}
	cmd.AddCommand(newBridgeAddCmd(stdout))
	cmd.AddCommand(newBridgeListCmd(stdout))
	cmd.AddCommand(newBridgeCommitCmd(stdout))
	return cmd
}

func newBridgeAddCmd(stdout io.Writer) *cobra.Command {
	var noCreate bool
	cmd := &cobra.Command{
		Use:   "add SOURCE VOLUME",
		Short: "Map SOURCE (lvm:/dev/vg/lv or incus:[project/]pool/volume) to VOLUME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := target.Parse(args[0])
			if err != nil {
				return err
			}
			vol := args[1]
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			if !hs.Has(vol) {
				if noCreate {
					return &history.UnknownVolumeError{Volume: vol}
				}
				if err := createVolume(rt, hs, vol); err != nil {
					return err
				}
			}
			if err := rt.update(func(reg *registry.Config) error {
				if prev, ok := reg.Bridges()[t.String()]; ok && prev != vol && !rt.opts.Force {
					return fmt.Errorf("%s is already bridged to %s; use --force to remap it", t, prev)
				}
				reg.BridgeMap[t.String()] = vol
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "bridged %s -> %s\n", t, vol)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCreate, "no-create", false, "Fail instead of creating a missing volume")
	return cmd
}

// createVolume creates vol and any missing parents.
func createVolume(rt *runtime, hs history.Histories, vol string) error {
	if rt.opts.DryRun {
		fmt.Fprintf(rt.out, "would create %s\n", vol)
		return nil
	}
	if !hs.PoolExists(vol) {
		return &history.UnknownVolumeError{Volume: history.Root(vol)}
	}
	for _, p := range append(hs.MissingParents(vol), vol) {
		fmt.Fprintf(rt.out, "creating filesystem %s\n", p)
		if err := rt.mgr.CreateVolume(rt.ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func newBridgeListCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bridge mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			reg, err := rt.loadRegistry()
			if err != nil {
				return err
			}
			bridges := reg.Bridges()
			keys := make([]string, 0, len(bridges))
			for k := range bridges {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(stdout, "%s -> %s\n", k, bridges[k])
			}
			return nil
		},
	}
}

func newBridgeCommitCmd(stdout io.Writer) *cobra.Command {
	var message, name string
	var keepSource bool
	cmd := &cobra.Command{
		Use:   "commit [SOURCE]",
		Short: "Snapshot one bridged source (or all) and commit it to its volume",
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
			only := ""
			if s := argAt(args, 0); s != "" {
				t, err := target.Parse(s)
				if err != nil {
					return err
				}
				only = t.String()
			}
			bridges, err := openBridges(reg, newOpenerFn(), only)
			if err != nil {
				return err
			}
			imp := rt.orch.Importer
			imp.KeepSource = keepSource
			for _, b := range bridges {
				if rt.opts.DryRun {
					fmt.Fprintf(stdout, "would import %s into %s\n", b.Source, b.Volume)
					continue
				}
				snap, err := imp.Import(rt.ctx, b.Source, b.Volume, name, message)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "imported %s@%s from %s\n", b.Volume, snap, b.Source)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Snapshot name (default YYMMDDhhmm)")
	cmd.Flags().BoolVar(&keepSource, "keep-source", false, "Keep the external snapshot after import")
	return cmd
}
