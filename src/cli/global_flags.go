package cli

import (
	"github.com/spf13/cobra"

	"zgit/src/logging"
	"zgit/src/safety"
)

// addGlobalFlags adds the persistent flags shared by every command.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Registry file (default $ZGIT_CONFIG or ~/.zgit_conf.json)")
	cmd.PersistentFlags().String("log-level", logging.DefaultLevel, "Log level: debug|info|warn|error")
	cmd.PersistentFlags().String("volume", "", "Volume to operate on instead of the one containing the working directory")
	cmd.PersistentFlags().Bool("progress", false, "Report transfer progress on stderr")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Force potentially dangerous operations")
}

// getSafetyOptions reads global flags into a safety.Options struct.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	force, _ := cmd.Root().PersistentFlags().GetBool("force")
	return safety.Options{DryRun: dry, Yes: yes, Force: force}
}

func globalString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Root().PersistentFlags().GetString(name)
	return v
}

func globalBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Root().PersistentFlags().GetBool(name)
	return v
}
