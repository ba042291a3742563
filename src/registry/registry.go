// Package registry holds the persisted mapping from source volumes to their
// remotes, plus the bridge table used to import external snapshots.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RemoteLink names a destination volume of a source. It is stored as a
// two element JSON array: ["name", "dest"].
type RemoteLink struct {
	Name string
	Dest string
}

func (l RemoteLink) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{l.Name, l.Dest})
}

func (l *RemoteLink) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("remote entry must be [name, dest], got %d elements", len(pair))
	}
	l.Name, l.Dest = pair[0], pair[1]
	return nil
}

// Config is the whole persisted document. Top-level keys other than
// backupMap and bridgeMap are carried through untouched.
type Config struct {
	BackupMap map[string][]RemoteLink
	// BridgeMap maps bridge source URIs (see package target) to the volume
	// that receives their snapshots.
	BridgeMap map[string]string
	// LVMMap is the older table of logical volume paths to volumes. It is
	// read and written back as is; Bridges folds it into the bridge set.
	LVMMap map[string]string

	extra map[string]json.RawMessage
}

// New returns an empty config.
func New() *Config {
	return &Config{BackupMap: map[string][]RemoteLink{}, BridgeMap: map[string]string{}}
}

func (c *Config) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(c.extra)+2)
	for k, v := range c.extra {
		doc[k] = v
	}
	bm := c.BackupMap
	if bm == nil {
		bm = map[string][]RemoteLink{}
	}
	raw, err := json.Marshal(bm)
	if err != nil {
		return nil, err
	}
	doc["backupMap"] = raw
	if len(c.BridgeMap) > 0 {
		raw, err := json.Marshal(c.BridgeMap)
		if err != nil {
			return nil, err
		}
		doc["bridgeMap"] = raw
	}
	if len(c.LVMMap) > 0 {
		raw, err := json.Marshal(c.LVMMap)
		if err != nil {
			return nil, err
		}
		doc["lvmMap"] = raw
	}
	return json.Marshal(doc)
}

func (c *Config) UnmarshalJSON(b []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*c = *New()
	if raw, ok := doc["backupMap"]; ok {
		if err := json.Unmarshal(raw, &c.BackupMap); err != nil {
			return fmt.Errorf("backupMap: %w", err)
		}
		if c.BackupMap == nil {
			c.BackupMap = map[string][]RemoteLink{}
		}
		delete(doc, "backupMap")
	}
	if raw, ok := doc["bridgeMap"]; ok {
		if err := json.Unmarshal(raw, &c.BridgeMap); err != nil {
			return fmt.Errorf("bridgeMap: %w", err)
		}
		if c.BridgeMap == nil {
			c.BridgeMap = map[string]string{}
		}
		delete(doc, "bridgeMap")
	}
	if raw, ok := doc["lvmMap"]; ok {
		if err := json.Unmarshal(raw, &c.LVMMap); err != nil {
			return fmt.Errorf("lvmMap: %w", err)
		}
		delete(doc, "lvmMap")
	}
	if len(doc) > 0 {
		c.extra = doc
	}
	return nil
}

// Bridges returns every bridge source URI with its volume: BridgeMap plus
// each LVMMap path as an lvm: source. BridgeMap wins on conflict.
func (c *Config) Bridges() map[string]string {
	out := make(map[string]string, len(c.BridgeMap)+len(c.LVMMap))
	for path, vol := range c.LVMMap {
		out["lvm:"+path] = vol
	}
	for k, vol := range c.BridgeMap {
		out[k] = vol
	}
	return out
}

// Sources returns the registered source volumes in lexical order.
func (c *Config) Sources() []string {
	out := make([]string, 0, len(c.BackupMap))
	for src := range c.BackupMap {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// IsRegistered reports whether src has been initialised.
func (c *Config) IsRegistered(src string) bool {
	_, ok := c.BackupMap[src]
	return ok
}

// Init registers src with no remotes.
func (c *Config) Init(src string) error {
	if remotes, ok := c.BackupMap[src]; ok {
		return &AlreadyRegisteredError{Volume: src, Remotes: remotes}
	}
	c.BackupMap[src] = []RemoteLink{}
	return nil
}

// Remotes returns the remotes of a registered source.
func (c *Config) Remotes(src string) ([]RemoteLink, error) {
	remotes, ok := c.BackupMap[src]
	if !ok {
		return nil, &NotRegisteredError{Volume: src}
	}
	return remotes, nil
}

// Remote looks up a remote by name.
func (c *Config) Remote(src, name string) (RemoteLink, error) {
	remotes, err := c.Remotes(src)
	if err != nil {
		return RemoteLink{}, err
	}
	for _, l := range remotes {
		if l.Name == name {
			return l, nil
		}
	}
	return RemoteLink{}, &RemoteNotFoundError{Volume: src, Remote: name}
}

// AddRemote appends a remote, registering src when needed. Remote names
// are unique within a source.
func (c *Config) AddRemote(src, name, dest string) error {
	for _, l := range c.BackupMap[src] {
		if l.Name == name {
			return &DuplicateRemoteError{Volume: src, Remote: name, Dest: l.Dest}
		}
	}
	c.BackupMap[src] = append(c.BackupMap[src], RemoteLink{Name: name, Dest: dest})
	return nil
}

// RemoveRemote deletes the named remote and returns it.
func (c *Config) RemoveRemote(src, name string) (RemoteLink, error) {
	remotes, err := c.Remotes(src)
	if err != nil {
		return RemoteLink{}, err
	}
	for i, l := range remotes {
		if l.Name == name {
			c.BackupMap[src] = append(remotes[:i:i], remotes[i+1:]...)
			return l, nil
		}
	}
	return RemoteLink{}, &RemoteNotFoundError{Volume: src, Remote: name}
}

// IsRemoteDest reports whether dest is a remote of src.
func (c *Config) IsRemoteDest(src, dest string) bool {
	for _, l := range c.BackupMap[src] {
		if l.Dest == dest {
			return true
		}
	}
	return false
}

type NotRegisteredError struct{ Volume string }

func (e *NotRegisteredError) Error() string {
	return e.Volume + " is not initialized in the zgit backup map"
}

type AlreadyRegisteredError struct {
	Volume  string
	Remotes []RemoteLink
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("%s already initialized for zgit (%d remotes)", e.Volume, len(e.Remotes))
}

type RemoteNotFoundError struct{ Volume, Remote string }

func (e *RemoteNotFoundError) Error() string {
	return fmt.Sprintf("no remote named %s for %s", e.Remote, e.Volume)
}

type DuplicateRemoteError struct{ Volume, Remote, Dest string }

func (e *DuplicateRemoteError) Error() string {
	return fmt.Sprintf("%s already has a remote named %s (%s)", e.Volume, e.Remote, e.Dest)
}
