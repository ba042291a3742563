package safety

// Options carries the global safety flags of a command invocation.
type Options struct {
	// DryRun reports planned actions without performing them.
	DryRun bool
	// Yes answers every confirmation prompt with yes.
	Yes bool
	// Force allows operations that are refused by default.
	Force bool
}
