// Package volmgr defines the narrow contract zgit needs from a volume
// manager: listing histories, creating and destroying snapshots, and
// issuing full or incremental transfers.
package volmgr

import (
	"context"
	"strings"

	"zgit/src/history"
)

// Catalog lists every volume with its snapshot history.
type Catalog interface {
	ListHistories(ctx context.Context) (history.Histories, error)
}

// Transport carries out intents against volumes.
type Transport interface {
	// CreateSnapshot snapshots volume and returns the snapshot name. An
	// empty message stores no message.
	CreateSnapshot(ctx context.Context, volume, name, message string) (string, error)
	DestroySnapshot(ctx context.Context, volume, name string) error
	CreateVolume(ctx context.Context, name string) error
	// FullTransfer creates dest from src@snap. force replaces an existing
	// dest that has no snapshots.
	FullTransfer(ctx context.Context, src, snap, dest string, force bool) error
	IncrementalTransfer(ctx context.Context, src, from, to, dest string) error
	SetReadOnly(ctx context.Context, volume string, on bool) error
	Rollback(ctx context.Context, volume, snap string) error
}

// Inspector answers questions about volume contents and placement.
type Inspector interface {
	// Diff lists changes of volume relative to snapshot from; when to is
	// set the diff is between the two snapshots.
	Diff(ctx context.Context, volume, from, to string) ([]Change, error)
	// MountPoints maps volume names to mount paths.
	MountPoints(ctx context.Context) (map[string]string, error)
}

// Manager is everything zgit uses from a volume manager.
type Manager interface {
	Catalog
	Transport
	Inspector
}

// Change is one line of a diff, split into its tab separated fields.
type Change []string

func (c Change) String() string { return strings.Join(c, "\t") }
