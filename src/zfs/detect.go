package zfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RequiredVersion is the oldest OpenZFS release with `zfs version`.
const RequiredVersion = "0.8.0"

// BinaryInfo describes a detected zfs userland and kernel module.
type BinaryInfo struct {
	Path          string
	Version       string
	KernelVersion string
}

var (
	userRegexp = regexp.MustCompile(`^zfs-([0-9]+\.[0-9]+\.[0-9]+(?:-rc[0-9]+)?)`)
	kmodRegexp = regexp.MustCompile(`^zfs-kmod-([0-9]+\.[0-9]+\.[0-9]+(?:-rc[0-9]+)?)`)
)

// Detect locates binary on PATH and asks it for its version.
func Detect(ctx context.Context, binary string) (BinaryInfo, error) {
	if binary == "" {
		binary = "zfs"
	}
	exe, err := exec.LookPath(binary)
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("zfs binary not found on PATH: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	out, err := exec.CommandContext(ctx, exe, "version").Output()
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("zfs: version command failed: %w", err)
	}
	info, err := ParseVersion(strings.NewReader(string(out)))
	if err != nil {
		return BinaryInfo{}, err
	}
	info.Path = exe
	return info, nil
}

// ParseVersion reads `zfs version` output.
func ParseVersion(r io.Reader) (BinaryInfo, error) {
	var info BinaryInfo
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if m := kmodRegexp.FindStringSubmatch(line); len(m) == 2 {
			info.KernelVersion = m[1]
			continue
		}
		if m := userRegexp.FindStringSubmatch(line); len(m) == 2 {
			info.Version = m[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return info, fmt.Errorf("zfs: read version output: %w", err)
	}
	if info.Version == "" {
		return info, errors.New("zfs: could not parse version output")
	}
	return info, nil
}

// IsCompatible reports whether version is at least RequiredVersion.
func IsCompatible(version string) bool {
	left, ok := parseSemVersion(version)
	if !ok {
		return false
	}
	right, _ := parseSemVersion(RequiredVersion)
	return compareSemVersion(left, right) >= 0
}

type semVersion struct {
	major, minor, patch int
	pre                 string
}

func parseSemVersion(s string) (semVersion, bool) {
	core, pre, _ := strings.Cut(strings.TrimSpace(s), "-")
	nums := strings.Split(core, ".")
	if len(nums) != 3 {
		return semVersion{}, false
	}
	var v [3]int
	for i, n := range nums {
		x, err := strconv.Atoi(n)
		if err != nil {
			return semVersion{}, false
		}
		v[i] = x
	}
	return semVersion{major: v[0], minor: v[1], patch: v[2], pre: pre}, true
}

func compareSemVersion(a, b semVersion) int {
	for _, d := range [][2]int{{a.major, b.major}, {a.minor, b.minor}, {a.patch, b.patch}} {
		if d[0] != d[1] {
			if d[0] > d[1] {
				return 1
			}
			return -1
		}
	}
	switch {
	case a.pre == b.pre:
		return 0
	case a.pre == "":
		return 1
	case b.pre == "":
		return -1
	}
	return strings.Compare(a.pre, b.pre)
}
