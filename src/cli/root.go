package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command for the zgit CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zgit",
		Short: "Git-style commit, push, pull and sync for ZFS snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newVersionCmd(stdout))
	cmd.AddCommand(newInitCmd(stdout))
	cmd.AddCommand(newRemoteCmd(stdout))
	cmd.AddCommand(newPushCmd(stdout))
	cmd.AddCommand(newPullCmd(stdout))
	cmd.AddCommand(newSyncCmd(stdout))
	cmd.AddCommand(newCloneCmd(stdout))
	cmd.AddCommand(newMapCmd(stdout))
	cmd.AddCommand(newForgetCmd(stdout))
	cmd.AddCommand(newLogCmd(stdout))
	cmd.AddCommand(newCommitCmd(stdout))
	cmd.AddCommand(newStatusCmd(stdout))
	cmd.AddCommand(newDiffCmd(stdout))
	cmd.AddCommand(newBackupCmd(stdout))
	cmd.AddCommand(newBridgeCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio. Interrupts cancel the
// running command, which kills any zfs child processes.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "zgit:", err)
		return 1
	}
	return 0
}
