package zfs

import (
	"testing"
	"time"
)

func TestParseHistories(t *testing.T) {
	names := "tank\ntank/a\ntank/empty\n"
	snaps := "tank/a@2401010000\t111\t1704067200\tfirst commit\n" +
		"tank/a@2401020000\t222\t1704153600\t-\n"
	hs, err := parseHistories(names, snaps)
	if err != nil {
		t.Fatalf("parseHistories: %v", err)
	}
	if len(hs) != 3 || len(hs["tank/empty"]) != 0 || len(hs["tank"]) != 0 {
		t.Fatalf("volumes = %v", hs)
	}
	a := hs["tank/a"]
	if len(a) != 2 || a[0].ContentID != "111" || a[1].Name != "2401020000" {
		t.Fatalf("tank/a = %+v", a)
	}
	if a[0].Message != "first commit" || a[1].Message != "" {
		t.Fatalf("messages = %q %q", a[0].Message, a[1].Message)
	}
	if !a[0].Created.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("created = %v", a[0].Created)
	}
}

func TestParseHistories_Malformed(t *testing.T) {
	for _, snaps := range []string{
		"tank/a@s1\t111\n",
		"tank/a\t111\t1704067200\t-\n",
		"tank/a@s1\t111\tyesterday\t-\n",
	} {
		if _, err := parseHistories("tank/a\n", snaps); err == nil {
			t.Fatalf("expected error for %q", snaps)
		}
	}
}

func TestSnapshotName(t *testing.T) {
	if got, err := snapshotName("tank/a", "s1"); err != nil || got != "tank/a@s1" {
		t.Fatalf("snapshotName = %q %v", got, err)
	}
	for _, c := range [][2]string{{"-rf", "s1"}, {"tank/a", "x@y"}, {"tank/a", "a/b"}, {"tank/a", ""}, {"", "s1"}} {
		if _, err := snapshotName(c[0], c[1]); err == nil {
			t.Fatalf("expected %q@%q to be rejected", c[0], c[1])
		}
	}
}
