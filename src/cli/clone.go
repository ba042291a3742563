package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"zgit/src/history"
	"zgit/src/registry"
	"zgit/src/syncer"
)

func newCloneCmd(stdout io.Writer) *cobra.Command {
	var keep int
	var many []string
	var all bool
	cmd := &cobra.Command{
		Use:   "clone [ORIGIN] [DEST]",
		Short: "Clone a volume and record it as origin of the copy",
		Long: `Clone ORIGIN into DEST. DEST defaults to a child of the current volume
named after ORIGIN. With --many every listed volume is cloned below DEST (or
the current volume). With --all every registered volume that is missing is
restored from its first remote with snapshots; ORIGIN then filters remotes
by prefix.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New("--keep must be >= 0")
			}
			origin, dest := argAt(args, 0), argAt(args, 1)
			if !all && len(many) == 0 && origin == "" {
				return errors.New("supply ORIGIN, --many or --all")
			}
			rt, err := newRuntime(cmd, stdout)
			if err != nil {
				return err
			}
			hs, err := rt.histories()
			if err != nil {
				return err
			}
			var failed []error
			err = rt.update(func(reg *registry.Config) error {
				if all {
					if rt.opts.DryRun {
						return printCloneAllPlan(stdout, hs, reg, origin)
					}
					results, err := rt.orch.CloneAll(rt.ctx, hs, reg, origin, keep)
					for _, r := range results {
						printCloneResult(stdout, r)
					}
					if err != nil {
						failed = append(failed, err)
					}
					return nil
				}
				var pairs [][2]string
				if len(many) > 0 {
					parent := origin
					if parent == "" {
						if parent, err = rt.volume(cmd, ""); err != nil {
							return err
						}
					}
					for _, src := range many {
						pairs = append(pairs, [2]string{src, parent + "/" + history.Base(src)})
					}
				} else {
					if dest == "" {
						parent, err := rt.volume(cmd, "")
						if err != nil {
							return err
						}
						dest = parent + "/" + history.Base(origin)
					}
					pairs = append(pairs, [2]string{origin, dest})
				}
				for _, p := range pairs {
					if rt.opts.DryRun {
						if err := printPlan(stdout, hs, p[0], p[1], true, syncer.RootIndex(keep)); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintf(stdout, "Creating %s by cloning %s...\n", p[1], p[0])
					r, err := rt.orch.Clone(rt.ctx, hs, reg, p[0], p[1], keep)
					printCloneResult(stdout, r)
					if err != nil {
						failed = append(failed, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Number of most recent commits to clone (0 for all)")
	cmd.Flags().StringSliceVar(&many, "many", nil, "Volumes to clone")
	cmd.Flags().BoolVar(&all, "all", false, "Restore every registered volume that is missing")
	return cmd
}

func printCloneResult(w io.Writer, r syncer.Result) {
	if r.State == syncer.Executed && r.Head != nil {
		fmt.Fprintf(w, "cloned %s@%s to %s\n", r.Source, r.Head.Name, r.Dest)
		return
	}
	printResult(w, r)
}

func printCloneAllPlan(w io.Writer, hs history.Histories, reg *registry.Config, prefix string) error {
	for _, target := range reg.Sources() {
		if hs.Has(target) || !hs.PoolExists(target) {
			continue
		}
		for _, l := range reg.BackupMap[target] {
			if (prefix == "" || strings.HasPrefix(l.Dest, prefix)) && len(hs[l.Dest]) > 0 {
				fmt.Fprintf(w, "would restore %s from %s\n", target, l.Dest)
				break
			}
		}
	}
	return nil
}
