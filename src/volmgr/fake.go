package volmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"zgit/src/history"
)

// FakeVolume is the in-memory state of one volume.
type FakeVolume struct {
	Snapshots history.History
	ReadOnly  bool
	Mount     string
	// Modified simulates writes after the newest snapshot. Incremental
	// receives into a modified volume fail until it is rolled back.
	Modified bool
}

// Fake is an in-memory Manager for unit tests. Transfers copy snapshots
// with their content-ids, like a real send/receive does.
type Fake struct {
	Volumes map[string]*FakeVolume
	Changes map[string][]Change
	// Fail, when set, is consulted before every operation; a non-nil
	// return value is returned as the operation's error.
	Fail func(op string, args ...string) error
	// Ops records every mutating operation in order.
	Ops []string

	clock time.Time
}

func NewFake() *Fake {
	return &Fake{
		Volumes: map[string]*FakeVolume{},
		Changes: map[string][]Change{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddVolume registers an empty volume.
func (f *Fake) AddVolume(name, mount string) *FakeVolume {
	v := &FakeVolume{Mount: mount}
	f.Volumes[name] = v
	return v
}

// AddSnapshot appends a snapshot with an explicit content-id, creating the
// volume if needed.
func (f *Fake) AddSnapshot(volume, name, contentID string) {
	v, ok := f.Volumes[volume]
	if !ok {
		v = f.AddVolume(volume, "")
	}
	v.Snapshots = append(v.Snapshots, history.Snapshot{Name: name, ContentID: contentID, Created: f.tick()})
}

// CountOps counts recorded operations starting with prefix.
func (f *Fake) CountOps(prefix string) int {
	n := 0
	for _, op := range f.Ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *Fake) check(op string, args ...string) error {
	if f.Fail == nil {
		return nil
	}
	return f.Fail(op, args...)
}

func (f *Fake) volume(name string) (*FakeVolume, error) {
	v, ok := f.Volumes[name]
	if !ok {
		return nil, &NotFoundError{Resource: "volume", Name: name}
	}
	return v, nil
}

func (f *Fake) ListHistories(ctx context.Context) (history.Histories, error) {
	if err := f.check("list"); err != nil {
		return nil, &CatalogUnavailableError{Err: err}
	}
	hs := make(history.Histories, len(f.Volumes))
	for name, v := range f.Volumes {
		hs[name] = append(history.History{}, v.Snapshots...)
	}
	return hs, nil
}

func (f *Fake) CreateSnapshot(ctx context.Context, volume, name, message string) (string, error) {
	if err := f.check("snapshot", volume, name); err != nil {
		return "", err
	}
	v, err := f.volume(volume)
	if err != nil {
		return "", err
	}
	if v.Snapshots.IndexOfName(name) >= 0 {
		return "", &ConflictError{Resource: "snapshot", Name: volume + "@" + name}
	}
	v.Snapshots = append(v.Snapshots, history.Snapshot{Name: name, ContentID: uuid.NewString(), Created: f.tick(), Message: message})
	v.Modified = false
	f.Ops = append(f.Ops, fmt.Sprintf("snapshot %s@%s", volume, name))
	return name, nil
}

func (f *Fake) DestroySnapshot(ctx context.Context, volume, name string) error {
	if err := f.check("destroy", volume, name); err != nil {
		return err
	}
	v, err := f.volume(volume)
	if err != nil {
		return err
	}
	i := v.Snapshots.IndexOfName(name)
	if i < 0 {
		return &NotFoundError{Resource: "snapshot", Name: volume + "@" + name}
	}
	v.Snapshots = append(v.Snapshots[:i:i], v.Snapshots[i+1:]...)
	f.Ops = append(f.Ops, fmt.Sprintf("destroy %s@%s", volume, name))
	return nil
}

func (f *Fake) CreateVolume(ctx context.Context, name string) error {
	if err := f.check("create", name); err != nil {
		return err
	}
	if _, ok := f.Volumes[name]; ok {
		return &ConflictError{Resource: "volume", Name: name}
	}
	if err := f.requireParent(name); err != nil {
		return err
	}
	f.AddVolume(name, "")
	f.Ops = append(f.Ops, "create "+name)
	return nil
}

func (f *Fake) requireParent(name string) error {
	i := strings.LastIndex(name, "/")
	if i < 0 {
		return nil
	}
	if _, ok := f.Volumes[name[:i]]; !ok {
		return &NotFoundError{Resource: "volume", Name: name[:i]}
	}
	return nil
}

func (f *Fake) FullTransfer(ctx context.Context, src, snap, dest string, force bool) error {
	if err := f.check("full", src, snap, dest); err != nil {
		return err
	}
	sv, err := f.volume(src)
	if err != nil {
		return err
	}
	i := sv.Snapshots.IndexOfName(snap)
	if i < 0 {
		return &NotFoundError{Resource: "snapshot", Name: src + "@" + snap}
	}
	if dv, ok := f.Volumes[dest]; ok && (!force || len(dv.Snapshots) > 0) {
		return &ConflictError{Resource: "volume", Name: dest}
	}
	if err := f.requireParent(dest); err != nil {
		return err
	}
	mount := ""
	if dv, ok := f.Volumes[dest]; ok {
		mount = dv.Mount
	}
	f.Volumes[dest] = &FakeVolume{Snapshots: history.History{sv.Snapshots[i]}, Mount: mount}
	f.Ops = append(f.Ops, fmt.Sprintf("full %s@%s -> %s", src, snap, dest))
	return nil
}

func (f *Fake) IncrementalTransfer(ctx context.Context, src, from, to, dest string) error {
	if err := f.check("incremental", src, from, to, dest); err != nil {
		return err
	}
	sv, err := f.volume(src)
	if err != nil {
		return err
	}
	i, j := sv.Snapshots.IndexOfName(from), sv.Snapshots.IndexOfName(to)
	if i < 0 || j < 0 || j <= i {
		return fmt.Errorf("invalid increment %s@%s..%s", src, from, to)
	}
	dv, err := f.volume(dest)
	if err != nil {
		return err
	}
	head, ok := dv.Snapshots.Head()
	if !ok || head.ContentID != sv.Snapshots[i].ContentID {
		return fmt.Errorf("receive %s: most recent snapshot does not match incremental source", dest)
	}
	if dv.Modified {
		return fmt.Errorf("receive %s: destination has been modified since most recent snapshot", dest)
	}
	dv.Snapshots = append(dv.Snapshots, sv.Snapshots[j])
	f.Ops = append(f.Ops, fmt.Sprintf("incremental %s@%s..%s -> %s", src, from, to, dest))
	return nil
}

func (f *Fake) SetReadOnly(ctx context.Context, volume string, on bool) error {
	if err := f.check("readonly", volume); err != nil {
		return err
	}
	v, err := f.volume(volume)
	if err != nil {
		return err
	}
	v.ReadOnly = on
	f.Ops = append(f.Ops, fmt.Sprintf("readonly %s=%t", volume, on))
	return nil
}

func (f *Fake) Rollback(ctx context.Context, volume, snap string) error {
	if err := f.check("rollback", volume, snap); err != nil {
		return err
	}
	v, err := f.volume(volume)
	if err != nil {
		return err
	}
	head, ok := v.Snapshots.Head()
	if !ok || head.Name != snap {
		return fmt.Errorf("rollback %s@%s: not the most recent snapshot", volume, snap)
	}
	v.Modified = false
	f.Ops = append(f.Ops, fmt.Sprintf("rollback %s@%s", volume, snap))
	return nil
}

func (f *Fake) Diff(ctx context.Context, volume, from, to string) ([]Change, error) {
	if err := f.check("diff", volume, from, to); err != nil {
		return nil, err
	}
	v, err := f.volume(volume)
	if err != nil {
		return nil, err
	}
	if v.Snapshots.IndexOfName(from) < 0 {
		return nil, &NotFoundError{Resource: "snapshot", Name: volume + "@" + from}
	}
	return f.Changes[volume], nil
}

func (f *Fake) MountPoints(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.Volumes))
	for name, v := range f.Volumes {
		if v.Mount != "" {
			out[name] = v.Mount
		}
	}
	return out, nil
}

type ConflictError struct{ Resource, Name string }

func (e *ConflictError) Error() string { return e.Resource + " conflict: " + e.Name }

type NotFoundError struct{ Resource, Name string }

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }
