package volmgr

import (
	"fmt"
	"strings"
)

// CatalogUnavailableError wraps a failure to query the volume manager.
type CatalogUnavailableError struct{ Err error }

func (e *CatalogUnavailableError) Error() string {
	return "volume catalog unavailable: " + e.Err.Error()
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Err }

// CommandError reports a failed volume manager invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// NoVolumeError is returned when a path cannot be mapped to a volume.
type NoVolumeError struct{ Path string }

func (e *NoVolumeError) Error() string { return e.Path + " is not inside a managed volume" }
