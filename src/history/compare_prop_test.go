package history_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"zgit/src/history"
)

// linear builds a source of n snapshots and a destination holding its first
// k, followed by a foreign snapshot when fork is set.
func linear(n, k int, fork bool) history.Histories {
	var src, dest history.History
	for i := 0; i < n; i++ {
		src = append(src, history.Snapshot{Name: fmt.Sprintf("s%d", i), ContentID: fmt.Sprintf("g%d", i)})
	}
	if k > n {
		k = n
	}
	dest = append(dest, src[:k]...)
	if fork {
		dest = append(dest, history.Snapshot{Name: "fork", ContentID: "foreign"})
	}
	return history.Histories{"src": src, "dest": dest}
}

func Test_CompareProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("UpToDate iff heads share a content-id", prop.ForAll(
		func(n, k int, fork bool) bool {
			hs := linear(n, k, fork)
			c, err := history.Compare("src", "dest", hs)
			if err != nil {
				return false
			}
			sh, _ := hs["src"].Head()
			dh, ok := hs["dest"].Head()
			same := ok && sh.ContentID == dh.ContentID
			return (c.Outcome == history.UpToDate) == same
		},
		gen.IntRange(1, 12), gen.IntRange(0, 12), gen.Bool(),
	))

	properties.Property("an empty or absent destination is DestMissing, never Diverged", prop.ForAll(
		func(n int, absent bool) bool {
			hs := linear(n, 0, false)
			if absent {
				delete(hs, "dest")
			}
			c, err := history.Compare("src", "dest", hs)
			return err == nil && c.Outcome == history.DestMissing && c.DestExists == !absent
		},
		gen.IntRange(1, 12), gen.Bool(),
	))

	properties.Property("executing a plan yields the source history", prop.ForAll(
		func(n, k int) bool {
			hs := linear(n, k, false)
			c, err := history.Compare("src", "dest", hs)
			if err != nil {
				return false
			}
			p, err := history.NewPlan(c, hs["src"], 0)
			if err != nil {
				return false
			}
			dest := hs["dest"]
			if p.Root != nil {
				dest = history.History{*p.Root}
			}
			for _, inc := range p.Increments {
				head, _ := dest.Head()
				if head.ContentID != inc.From.ContentID {
					return false
				}
				dest = append(dest, inc.To)
			}
			if len(dest) != n {
				return false
			}
			for i := range dest {
				if dest[i].ContentID != hs["src"][i].ContentID {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12), gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
