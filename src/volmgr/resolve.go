package volmgr

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveVolume returns the volume whose mount point is the longest prefix
// of path. Prefixes only match on path component boundaries.
func ResolveVolume(mounts map[string]string, path string) (string, error) {
	type mount struct{ name, point string }
	list := make([]mount, 0, len(mounts))
	for name, point := range mounts {
		if !filepath.IsAbs(point) {
			// none, legacy, -
			continue
		}
		list = append(list, mount{name: name, point: filepath.Clean(point)})
	}
	sort.Slice(list, func(i, j int) bool {
		if len(list[i].point) != len(list[j].point) {
			return len(list[i].point) > len(list[j].point)
		}
		return list[i].name < list[j].name
	})
	clean := filepath.Clean(path)
	for _, m := range list {
		if clean == m.point || m.point == "/" || strings.HasPrefix(clean, m.point+"/") {
			return m.name, nil
		}
	}
	return "", &NoVolumeError{Path: path}
}

// ResolveVolumeForPath queries the inspector's mount table and resolves path.
func ResolveVolumeForPath(ctx context.Context, in Inspector, path string) (string, error) {
	mounts, err := in.MountPoints(ctx)
	if err != nil {
		return "", err
	}
	return ResolveVolume(mounts, path)
}
