package history

import "fmt"

// Outcome classifies how a destination history relates to a source history.
type Outcome int

const (
	// DestMissing means the destination has no recorded history.
	DestMissing Outcome = iota
	// Ahead means the source can fast-forward the destination.
	Ahead
	// UpToDate means both heads carry the same content-id.
	UpToDate
	// Diverged means the destination head is not in the source history.
	Diverged
)

func (o Outcome) String() string {
	switch o {
	case DestMissing:
		return "dest-missing"
	case Ahead:
		return "ahead"
	case UpToDate:
		return "up-to-date"
	case Diverged:
		return "diverged"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Comparison is the result of Compare.
type Comparison struct {
	Source  string
	Dest    string
	Outcome Outcome
	// Start is the first source index to transfer when Outcome is Ahead.
	Start int
	// DestExists distinguishes an absent destination from one that exists
	// without snapshots when Outcome is DestMissing.
	DestExists bool
}

// UnknownVolumeError is returned when a volume is not in the catalog.
type UnknownVolumeError struct{ Volume string }

func (e *UnknownVolumeError) Error() string { return "volume not found: " + e.Volume }

// Compare locates the destination head inside the source history.
func Compare(src, dest string, hs Histories) (Comparison, error) {
	c := Comparison{Source: src, Dest: dest}
	srcSnaps, ok := hs[src]
	if !ok {
		return c, &UnknownVolumeError{Volume: src}
	}
	destSnaps, ok := hs[dest]
	c.DestExists = ok
	head, hasHead := destSnaps.Head()
	if !hasHead {
		c.Outcome = DestMissing
		return c, nil
	}
	i := srcSnaps.IndexOfContent(head.ContentID)
	switch {
	case i < 0:
		c.Outcome = Diverged
	case i == len(srcSnaps)-1:
		c.Outcome = UpToDate
		c.Start = len(srcSnaps)
	default:
		c.Outcome = Ahead
		c.Start = i + 1
	}
	return c, nil
}

// Increment is one incremental transfer step.
type Increment struct {
	From Snapshot
	To   Snapshot
}

// Plan is an ordered replication from Source to Dest. A non-nil Root is a
// full transfer that has to happen before any increment.
type Plan struct {
	Source     string
	Dest       string
	Root       *Snapshot
	DestExists bool
	Increments []Increment
}

// Empty reports whether executing the plan would transfer nothing.
func (p Plan) Empty() bool { return p.Root == nil && len(p.Increments) == 0 }

// NewPlan turns a comparison into a plan. rootIndex picks the snapshot used
// to create a missing destination; negative values count from the end and
// are clamped to the oldest snapshot.
func NewPlan(c Comparison, src History, rootIndex int) (Plan, error) {
	p := Plan{Source: c.Source, Dest: c.Dest, DestExists: c.DestExists}
	start := c.Start
	switch c.Outcome {
	case UpToDate:
		return p, nil
	case Diverged:
		return p, fmt.Errorf("cannot plan %s -> %s: histories diverged", c.Source, c.Dest)
	case DestMissing:
		if len(src) == 0 {
			return p, fmt.Errorf("cannot create %s: %s has no snapshots", c.Dest, c.Source)
		}
		i := rootIndex
		if i < 0 {
			i += len(src)
		}
		if i < 0 {
			i = 0
		}
		if i >= len(src) {
			i = len(src) - 1
		}
		root := src[i]
		p.Root = &root
		start = i + 1
	}
	for k := start; k < len(src); k++ {
		if k == 0 {
			continue
		}
		p.Increments = append(p.Increments, Increment{From: src[k-1], To: src[k]})
	}
	return p, nil
}
