// Package history models the snapshot history of volumes and the rules for
// comparing two histories.
package history

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is one entry in a volume's history.
type Snapshot struct {
	// Name is unique within its volume.
	Name string `json:"name"`
	// ContentID is stamped at creation and survives transfers verbatim,
	// which is how shared ancestry is detected across volumes.
	ContentID string    `json:"contentId"`
	Created   time.Time `json:"created"`
	Message   string    `json:"message,omitempty"`
}

// History is a volume's snapshots, oldest first.
type History []Snapshot

// Head returns the newest snapshot.
func (h History) Head() (Snapshot, bool) {
	if len(h) == 0 {
		return Snapshot{}, false
	}
	return h[len(h)-1], true
}

// IndexOfContent returns the position of the snapshot carrying id, or -1.
func (h History) IndexOfContent(id string) int {
	for i, s := range h {
		if s.ContentID == id {
			return i
		}
	}
	return -1
}

// IndexOfName returns the position of the named snapshot, or -1.
func (h History) IndexOfName(name string) int {
	for i, s := range h {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ContentIndex maps each content-id to its position.
func (h History) ContentIndex() map[string]int {
	idx := make(map[string]int, len(h))
	for i, s := range h {
		idx[s.ContentID] = i
	}
	return idx
}

// Histories maps volume names to their histories. A key with an empty
// History is a volume that exists but has no snapshots.
type Histories map[string]History

// Names returns the volume names in lexical order.
func (hs Histories) Names() []string {
	out := make([]string, 0, len(hs))
	for name := range hs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the volume exists.
func (hs Histories) Has(volume string) bool {
	_, ok := hs[volume]
	return ok
}

// PoolExists reports whether the root component of volume exists, which is
// the precondition for creating volume.
func (hs Histories) PoolExists(volume string) bool {
	return hs.Has(Root(volume))
}

// Root returns the first component of a hierarchical volume name.
func Root(volume string) string {
	if i := strings.Index(volume, "/"); i >= 0 {
		return volume[:i]
	}
	return volume
}

// Base returns the last component of a hierarchical volume name.
func Base(volume string) string {
	if i := strings.LastIndex(volume, "/"); i >= 0 {
		return volume[i+1:]
	}
	return volume
}

// MissingParents lists the intermediate parents of volume absent from hs,
// shallowest first. The pool root and volume itself are never included.
func (hs Histories) MissingParents(volume string) []string {
	parts := strings.Split(volume, "/")
	var out []string
	for end := 2; end < len(parts); end++ {
		parent := strings.Join(parts[:end], "/")
		if !hs.Has(parent) {
			out = append(out, parent)
		}
	}
	return out
}

// DateName is the default snapshot name for a commit taken at t.
func DateName(t time.Time) string { return t.Format("0601021504") }
