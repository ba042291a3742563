package history_test

import (
	"errors"
	"fmt"
	"testing"

	"zgit/src/history"
)

// hist builds a history whose snapshot names are s1..sN with the given
// content-ids.
func hist(ids ...string) history.History {
	h := make(history.History, len(ids))
	for i, id := range ids {
		h[i] = history.Snapshot{Name: fmt.Sprintf("s%d", i+1), ContentID: id}
	}
	return h
}

func TestCompare_Ahead(t *testing.T) {
	hs := history.Histories{"tank/a": hist("g1", "g2"), "backup/a": hist("g1")}
	c, err := history.Compare("tank/a", "backup/a", hs)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c.Outcome != history.Ahead || c.Start != 1 {
		t.Fatalf("got %v start=%d, want ahead start=1", c.Outcome, c.Start)
	}
	p, err := history.NewPlan(c, hs["tank/a"], 0)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if p.Root != nil || len(p.Increments) != 1 || p.Increments[0].From.Name != "s1" || p.Increments[0].To.Name != "s2" {
		t.Fatalf("unexpected plan: %+v", p)
	}
}

func TestCompare_Diverged(t *testing.T) {
	hs := history.Histories{
		"tank/a":   hist("g1", "g2"),
		"backup/a": {{Name: "s1", ContentID: "g1"}, {Name: "d2", ContentID: "g9"}},
	}
	for _, pair := range [][2]string{{"tank/a", "backup/a"}, {"backup/a", "tank/a"}} {
		c, err := history.Compare(pair[0], pair[1], hs)
		if err != nil {
			t.Fatalf("Compare: %v", err)
		}
		if c.Outcome != history.Diverged {
			t.Fatalf("%s -> %s: got %v, want diverged", pair[0], pair[1], c.Outcome)
		}
		if _, err := history.NewPlan(c, hs[pair[0]], 0); err == nil {
			t.Fatalf("expected NewPlan to refuse a diverged comparison")
		}
	}
}

func TestCompare_UpToDate(t *testing.T) {
	hs := history.Histories{"tank/a": hist("g1", "g2"), "backup/a": hist("g1", "g2")}
	c, err := history.Compare("tank/a", "backup/a", hs)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c.Outcome != history.UpToDate {
		t.Fatalf("got %v, want up-to-date", c.Outcome)
	}
	p, _ := history.NewPlan(c, hs["tank/a"], 0)
	if !p.Empty() {
		t.Fatalf("expected empty plan, got %+v", p)
	}
}

func TestCompare_DestMissing(t *testing.T) {
	hs := history.Histories{"tank/a": hist("g1", "g2", "g3"), "backup/empty": {}}
	c, err := history.Compare("tank/a", "backup/a", hs)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c.Outcome != history.DestMissing || c.DestExists {
		t.Fatalf("absent dest: got %v exists=%v", c.Outcome, c.DestExists)
	}
	c, err = history.Compare("tank/a", "backup/empty", hs)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if c.Outcome != history.DestMissing || !c.DestExists {
		t.Fatalf("empty dest: got %v exists=%v", c.Outcome, c.DestExists)
	}
}

func TestCompare_UnknownSource(t *testing.T) {
	_, err := history.Compare("tank/nope", "backup/a", history.Histories{})
	var uv *history.UnknownVolumeError
	if !errors.As(err, &uv) || uv.Volume != "tank/nope" {
		t.Fatalf("expected UnknownVolumeError, got %v", err)
	}
}

func TestCompare_EmptySourceDiverges(t *testing.T) {
	hs := history.Histories{"tank/a": {}, "backup/a": hist("g1")}
	c, _ := history.Compare("tank/a", "backup/a", hs)
	if c.Outcome != history.Diverged {
		t.Fatalf("got %v, want diverged", c.Outcome)
	}
}

func TestNewPlan_RootIndex(t *testing.T) {
	src := hist("g1", "g2", "g3", "g4")
	c := history.Comparison{Source: "tank/a", Dest: "backup/a", Outcome: history.DestMissing}
	cases := []struct {
		index       int
		root        string
		nIncrements int
	}{
		{0, "s1", 3},
		{-2, "s3", 1},
		{-1, "s4", 0},
		{-10, "s1", 3},
		{10, "s4", 0},
	}
	for _, tc := range cases {
		p, err := history.NewPlan(c, src, tc.index)
		if err != nil {
			t.Fatalf("index %d: %v", tc.index, err)
		}
		if p.Root == nil || p.Root.Name != tc.root || len(p.Increments) != tc.nIncrements {
			t.Fatalf("index %d: root=%v increments=%d", tc.index, p.Root, len(p.Increments))
		}
		if tc.nIncrements > 0 && p.Increments[0].From.Name != tc.root {
			t.Fatalf("index %d: first increment starts at %s", tc.index, p.Increments[0].From.Name)
		}
	}
}

func TestNewPlan_EmptySource(t *testing.T) {
	c := history.Comparison{Source: "tank/a", Dest: "backup/a", Outcome: history.DestMissing}
	if _, err := history.NewPlan(c, nil, 0); err == nil {
		t.Fatalf("expected error planning from an empty source")
	}
}
