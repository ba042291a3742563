package zfs_test

import (
	"strings"
	"testing"

	"zgit/src/zfs"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		kmod    string
		wantErr bool
	}{
		{
			name:  "userland and kernel",
			input: "zfs-2.2.2-0ubuntu9\nzfs-kmod-2.2.2-0ubuntu9\n",
			want:  "2.2.2",
			kmod:  "2.2.2",
		},
		{
			name:  "release candidate",
			input: "zfs-2.3.0-rc3\nzfs-kmod-2.2.6-1\n",
			want:  "2.3.0-rc3",
			kmod:  "2.2.6",
		},
		{
			name:    "kernel only",
			input:   "zfs-kmod-2.2.2\n",
			wantErr: true,
		},
		{
			name:    "no match",
			input:   "unrecognized command 'version'\n",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := zfs.ParseVersion(strings.NewReader(tc.input))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Version != tc.want || got.KernelVersion != tc.kmod {
				t.Fatalf("expected %q/%q, got %q/%q", tc.want, tc.kmod, got.Version, got.KernelVersion)
			}
		})
	}
}

func TestIsCompatible(t *testing.T) {
	if !zfs.IsCompatible("0.8.0") {
		t.Fatalf("expected 0.8.0 to be compatible")
	}
	if !zfs.IsCompatible("2.2.2") {
		t.Fatalf("expected newer version to be compatible")
	}
	if zfs.IsCompatible("0.7.13") {
		t.Fatalf("expected older version to be incompatible")
	}
	if zfs.IsCompatible("0.8.0-rc1") {
		t.Fatalf("expected a release candidate of the minimum to be incompatible")
	}
	if zfs.IsCompatible("") {
		t.Fatalf("expected empty version to be incompatible")
	}
}
