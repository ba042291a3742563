package mapper_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"zgit/src/history"
	"zgit/src/mapper"
	"zgit/src/registry"
)

func hist(ids ...string) history.History {
	h := make(history.History, len(ids))
	for i, id := range ids {
		h[i] = history.Snapshot{Name: fmt.Sprintf("s%d", i+1), ContentID: id}
	}
	return h
}

func TestDiscover_UnregisteredPair(t *testing.T) {
	hs := history.Histories{
		"tank/a":   hist("g1", "g2", "g3"),
		"backup/a": hist("g1"),
		"tank/b":   hist("h1"),
	}
	rels := mapper.Discover(hs, registry.New(), []string{"tank"})
	if len(rels) != 1 {
		t.Fatalf("expected 1 relationship, got %+v", rels)
	}
	rel := rels[0]
	if rel.A != "tank/a" || rel.B != "backup/a" || rel.Registered {
		t.Fatalf("unexpected relationship %+v", rel)
	}
	d := mapper.CountDivergence(rel.A, rel.B, hs)
	if d.AAhead != 2 || d.BAhead != 0 || d.InSync() {
		t.Fatalf("divergence = %+v", d)
	}
}

func TestDiscover_RegisteredAndRanking(t *testing.T) {
	hs := history.Histories{
		"tank/a":   hist("g1", "g2"),
		"backup/a": hist("g1", "g2"),
		"tank/b":   hist("h1"),
		"backup/b": hist("h1"),
	}
	reg := registry.New()
	if err := reg.Init("tank/b"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := reg.AddRemote("tank/b", "backup", "backup/b"); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	rels := mapper.Discover(hs, reg, nil)
	if len(rels) != 2 {
		t.Fatalf("got %+v", rels)
	}
	// more shared commits rank first; lexical reference without a priority.
	if rels[0].A != "backup/a" || len(rels[0].Shared) != 2 {
		t.Fatalf("first relationship %+v", rels[0])
	}
	if rels[1].A != "tank/b" || rels[1].B != "backup/b" || !rels[1].Registered {
		t.Fatalf("second relationship %+v", rels[1])
	}
}

func TestReference_Precedence(t *testing.T) {
	vols := []string{"backup/a", "tank/a", "alpha/a"}
	if got := mapper.Reference(vols, nil, nil); got != "alpha/a" {
		t.Fatalf("lexical: got %s", got)
	}
	reg := registry.New()
	_ = reg.Init("tank/a")
	if got := mapper.Reference(vols, reg, nil); got != "tank/a" {
		t.Fatalf("registered: got %s", got)
	}
	if got := mapper.Reference(vols, reg, []string{"backup"}); got != "backup/a" {
		t.Fatalf("priority: got %s", got)
	}
}

func TestCountDivergence_Unrelated(t *testing.T) {
	hs := history.Histories{"a": hist("g1"), "b": hist("h1")}
	if d := mapper.CountDivergence("a", "b", hs); d.Related || d.InSync() {
		t.Fatalf("unrelated volumes reported %+v", d)
	}
}

func Test_DivergenceProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("in sync iff heads match", prop.ForAll(
		func(shared, aExtra, bExtra int) bool {
			var a, b []string
			for i := 0; i < shared; i++ {
				a = append(a, fmt.Sprintf("g%d", i))
			}
			b = append(b, a...)
			for i := 0; i < aExtra; i++ {
				a = append(a, fmt.Sprintf("a%d", i))
			}
			for i := 0; i < bExtra; i++ {
				b = append(b, fmt.Sprintf("b%d", i))
			}
			hs := history.Histories{"x": hist(a...), "y": hist(b...)}
			d := mapper.CountDivergence("x", "y", hs)
			ha, _ := hs["x"].Head()
			hb, _ := hs["y"].Head()
			return d.InSync() == (ha.ContentID == hb.ContentID) && d.AAhead == aExtra && d.BAhead == bExtra
		},
		gen.IntRange(1, 8), gen.IntRange(0, 5), gen.IntRange(0, 5),
	))

	properties.Property("discovery is deterministic", prop.ForAll(
		func(n int) bool {
			hs := history.Histories{}
			for i := 0; i < n; i++ {
				hs[fmt.Sprintf("p%d/v", i%3)] = hist(fmt.Sprintf("g%d", i%2), fmt.Sprintf("h%d", i))
			}
			first := mapper.Discover(hs, nil, nil)
			for k := 0; k < 3; k++ {
				again := mapper.Discover(hs, nil, nil)
				if len(again) != len(first) {
					return false
				}
				for i := range again {
					if again[i].A != first[i].A || again[i].B != first[i].B || len(again[i].Shared) != len(first[i].Shared) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
