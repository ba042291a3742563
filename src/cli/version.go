package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"zgit/src/version"
	"zgit/src/zfs"
)

type zfsDetectorFunc func(context.Context, string) (zfs.BinaryInfo, error)

var detectZFSFn zfsDetectorFunc = zfs.Detect

// SetZFSDetectorForTest stubs zfs version detection. The returned function
// restores the previous detector.
func SetZFSDetectorForTest(fn zfsDetectorFunc) func() {
	prev := detectZFSFn
	detectZFSFn = fn
	return func() { detectZFSFn = prev }
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zgit version and the detected zfs version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, "zgit", version.Version)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			info, err := detectZFSFn(ctx, zfs.DefaultConfig().Binary)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning:", err)
				return
			}
			fmt.Fprintf(stdout, "zfs %s (kmod %s) at %s\n", info.Version, info.KernelVersion, info.Path)
			if !zfs.IsCompatible(info.Version) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: zfs %s detected; zgit requires %s or newer.\n", info.Version, zfs.RequiredVersion)
			}
		},
	}
}
