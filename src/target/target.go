package target

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Target represents a parsed bridge source URI.
// Examples: lvm:/dev/vg0/home, incus:default/pool1/data, incus:pool1/data
type Target struct {
	// Raw is the original input string.
	Raw string
	// Scheme is the source kind ("lvm" or "incus").
	Scheme string
	// Value is the scheme-specific value.
	Value string

	// DevicePath is set when Scheme == "lvm" and holds the cleaned logical
	// volume path.
	DevicePath string

	// Project, Pool and Volume are set when Scheme == "incus".
	Project string
	Pool    string
	Volume  string
}

// DefaultIncusProject is used when an incus target omits the project.
const DefaultIncusProject = "default"

// SupportedSchemes lists the schemes the parser accepts.
var SupportedSchemes = map[string]struct{}{
	"lvm":   {},
	"incus": {},
}

// Parse parses a source URI like "lvm:/dev/vg/lv" into a Target structure.
func Parse(raw string) (Target, error) {
	t := Target{Raw: raw}
	s := strings.TrimSpace(raw)
	if s == "" {
		return t, fmt.Errorf("bridge source must not be empty; expected format 'lvm:/dev/vg/lv' or 'incus:pool/volume'")
	}
	// Expect <scheme>:<value>
	i := strings.Index(s, ":")
	if i <= 0 || i == len(s)-1 {
		return t, fmt.Errorf("invalid bridge source %q; expected format '<scheme>:<value>' (e.g., 'lvm:/dev/vg/lv')", raw)
	}
	scheme := strings.ToLower(strings.TrimSpace(s[:i]))
	val := strings.TrimSpace(s[i+1:])
	if _, ok := SupportedSchemes[scheme]; !ok {
		return t, fmt.Errorf("unsupported bridge scheme %q", scheme)
	}
	t.Scheme = scheme
	t.Value = val

	switch scheme {
	case "lvm":
		if val == "" {
			return t, fmt.Errorf("lvm source path must not be empty")
		}
		clean := filepath.Clean(val)
		if !filepath.IsAbs(clean) {
			return t, fmt.Errorf("lvm source must be an absolute device path: %q", val)
		}
		t.DevicePath = clean
		t.Value = clean
	case "incus":
		parts := strings.Split(val, "/")
		switch len(parts) {
		case 2:
			t.Project, t.Pool, t.Volume = DefaultIncusProject, parts[0], parts[1]
		case 3:
			t.Project, t.Pool, t.Volume = parts[0], parts[1], parts[2]
		default:
			return t, fmt.Errorf("invalid incus source %q; expected [PROJECT/]POOL/VOLUME", val)
		}
		for _, p := range parts {
			if p == "" {
				return t, fmt.Errorf("invalid incus source %q; empty component", val)
			}
		}
		t.Value = t.Project + "/" + t.Pool + "/" + t.Volume
	}
	return t, nil
}

// IsSupported returns true if the scheme is recognized.
func IsSupported(scheme string) bool {
	_, ok := SupportedSchemes[strings.ToLower(scheme)]
	return ok
}

// String returns a canonical string form of the target.
func (t Target) String() string {
	if t.Scheme != "" {
		return fmt.Sprintf("%s:%s", t.Scheme, t.Value)
	}
	return t.Raw
}
