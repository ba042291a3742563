package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zgit/src/registry"
	"zgit/src/syncer"
)

func newInitCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init [VOLUME]",
		Short: "Register a volume in the zgit backup map",
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
			if err := rt.update(func(reg *registry.Config) error { return rt.orch.Init(reg, vol) }); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Initialized %s for zgit\n", vol)
			return nil
		},
	}
}

func newRemoteCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "List or manage the remotes of the current volume",
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
			vol, err := rt.registeredVolume(cmd, reg, "")
			if err != nil {
				return err
			}
			for _, l := range reg.BackupMap[vol] {
				fmt.Fprintf(stdout, "%s %s\n", l.Name, l.Dest)
			}
			return nil
		},
	}
	cmd.AddCommand(newRemoteAddCmd(stdout))
	cmd.AddCommand(newRemoteRemoveCmd(stdout))
	return cmd
}

func newRemoteAddCmd(stdout io.Writer) *cobra.Command {
	var opts syncer.AddRemoteOptions
	cmd := &cobra.Command{
		Use:   "add NAME DEST",
		Short: "Add a remote, creating DEST from the oldest snapshot if missing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			name, dest := args[0], args[1]
			return rt.update(func(reg *registry.Config) error {
				vol, err := rt.registeredVolume(cmd, reg, "")
				if err != nil {
					return err
				}
				hs, err := rt.histories()
				if err != nil {
					return err
				}
				if !hs.Has(dest) {
					switch {
					case opts.Defer:
						fmt.Fprintf(stdout, "Deferring creation of %s; pass --create to the next sync to create it\n", dest)
					case rt.opts.DryRun:
						fmt.Fprintf(stdout, "would create %s by pushing the initial snapshot of %s\n", dest, vol)
						return nil
					default:
						fmt.Fprintf(stdout, "creating %s by pushing the initial snapshot of %s\n", dest, vol)
					}
				}
				if _, err := rt.orch.AddRemote(rt.ctx, hs, reg, vol, name, dest, opts); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "added remote %s %s\n", name, dest)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Defer, "defer", false, "Do not create the remote volume now")
	cmd.Flags().BoolVar(&opts.ReadOnly, "readonly", false, "Mark the remote as a read-only archive")
	return cmd
}

func newRemoteRemoveCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a remote from the backup map (the volume is kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			return rt.update(func(reg *registry.Config) error {
				vol, err := rt.registeredVolume(cmd, reg, "")
				if err != nil {
					return err
				}
				l, err := rt.orch.RemoveRemote(reg, vol, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "removed remote %s %s\n", l.Name, l.Dest)
				return nil
			})
		},
	}
}
