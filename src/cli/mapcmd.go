package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"zgit/src/history"
	"zgit/src/mapper"
	"zgit/src/registry"
	"zgit/src/safety"
)

func newMapCmd(stdout io.Writer) *cobra.Command {
	var order string
	var add bool
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Find volumes that share commits, registered or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			var prio []string
			for _, o := range strings.Split(order, ",") {
				if o = strings.TrimSpace(o); o != "" {
					prio = append(prio, o)
				}
			}
			var failed []error
			run := func(reg *registry.Config) error {
				for _, rel := range mapper.Discover(hs, reg, prio) {
					printRelationship(stdout, rel, mapper.CountDivergence(rel.A, rel.B, hs))
					if rel.Registered {
						continue
					}
					fmt.Fprintln(stdout, "\tNOT yet added as a zgit remote: you can use \"zgit remote add\" to do so.")
					if !add {
						continue
					}
					ok, err := safety.Confirm(rt.opts, cmd.InOrStdin(), stdout, fmt.Sprintf("Add %s as a remote of %s?", rel.B, rel.A))
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					if err := addDiscovered(reg, rel); err != nil {
						fmt.Fprintf(stdout, "ERROR: %v\n", err)
						failed = append(failed, err)
						continue
					}
					fmt.Fprintf(stdout, "added remote %s %s to %s\n", history.Root(rel.B), rel.B, rel.A)
				}
				return nil
			}
			if !add {
				reg, err := rt.loadRegistry()
				if err != nil {
					return err
				}
				return run(reg)
			}
			if err := rt.update(run); err != nil {
				return err
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().StringVar(&order, "order", "", "Comma separated pool names to prefer as reference, e.g. tank,backup")
	cmd.Flags().BoolVar(&add, "add", false, "Offer to register every unregistered pair")
	return cmd
}

func printRelationship(w io.Writer, rel mapper.Relationship, d mapper.Divergence) {
	if d.AAhead > 0 {
		fmt.Fprintf(w, "%s is ahead of %s by %d commits\n", rel.A, rel.B, d.AAhead)
	}
	if d.BAhead > 0 {
		fmt.Fprintf(w, "%s is ahead of %s by %d commits\n", rel.B, rel.A, d.BAhead)
	}
	if d.InSync() {
		fmt.Fprintf(w, "%s and %s are in sync (%d shared commits)\n", rel.A, rel.B, len(rel.Shared))
	}
}

// addDiscovered registers B as a remote of A named after B's pool.
func addDiscovered(reg *registry.Config, rel mapper.Relationship) error {
	if !reg.IsRegistered(rel.A) {
		if err := reg.Init(rel.A); err != nil {
			return err
		}
	}
	return reg.AddRemote(rel.A, history.Root(rel.B), rel.B)
}
