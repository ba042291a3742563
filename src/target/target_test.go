package target_test

import (
	"testing"

	"zgit/src/target"
)

func TestParse_LVM_OK(t *testing.T) {
	got, err := target.Parse("lvm:/dev/vg0/home/")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Scheme != "lvm" || got.DevicePath != "/dev/vg0/home" {
		t.Fatalf("got %+v", got)
	}
	if got.String() != "lvm:/dev/vg0/home" {
		t.Fatalf("String() = %q", got.String())
	}
}

func TestParse_Incus_DefaultProject(t *testing.T) {
	got, err := target.Parse("incus:pool1/data")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Project != "default" || got.Pool != "pool1" || got.Volume != "data" {
		t.Fatalf("got %+v", got)
	}
	if got.String() != "incus:default/pool1/data" {
		t.Fatalf("String() = %q", got.String())
	}
}

func TestParse_Incus_Project(t *testing.T) {
	got, err := target.Parse("INCUS:web/pool1/data")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Scheme != "incus" || got.Project != "web" {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"/dev/vg0/home",
		"dir:/mnt",
		"lvm:relative/lv",
		"lvm:",
		"incus:data",
		"incus:a/b/c/d",
		"incus:pool1/",
	} {
		if _, err := target.Parse(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !target.IsSupported("LVM") || target.IsSupported("restic") {
		t.Fatalf("IsSupported")
	}
}
