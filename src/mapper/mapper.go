// Package mapper discovers volumes that share snapshot history, whether or
// not they are registered as remotes of each other.
package mapper

import (
	"sort"

	"zgit/src/history"
	"zgit/src/registry"
)

// Relationship is a pair of volumes and the content-ids they share. A is
// the reference volume chosen for every shared content-id.
type Relationship struct {
	A, B   string
	Shared []string
	// Registered reports whether B is already a remote of A.
	Registered bool
}

// Discover inverts every history's content-ids and pairs each non-reference
// owner with the reference owner. order lists pool (root component) names
// to prefer as reference. The result is ranked by descending shared count,
// ties broken by (A, B).
func Discover(hs history.Histories, reg *registry.Config, order []string) []Relationship {
	owners := map[string][]string{}
	for _, name := range hs.Names() {
		for _, s := range hs[name] {
			owners[s.ContentID] = appendUnique(owners[s.ContentID], name)
		}
	}

	type pair struct{ a, b string }
	shared := map[pair][]string{}
	ids := make([]string, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		vols := owners[id]
		if len(vols) < 2 {
			continue
		}
		ref := Reference(vols, reg, order)
		for _, v := range vols {
			if v != ref {
				p := pair{ref, v}
				shared[p] = append(shared[p], id)
			}
		}
	}

	out := make([]Relationship, 0, len(shared))
	for p, ids := range shared {
		out = append(out, Relationship{A: p.a, B: p.b, Shared: ids, Registered: reg != nil && reg.IsRemoteDest(p.a, p.b)})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Shared) != len(out[j].Shared) {
			return len(out[i].Shared) > len(out[j].Shared)
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Reference picks the canonical volume among vols: best priority rank of
// the root component first, then registered sources, then lexical order.
func Reference(vols []string, reg *registry.Config, order []string) string {
	rank := func(v string) int {
		root := history.Root(v)
		for i, o := range order {
			if o != "" && o == root {
				return i
			}
		}
		return len(order)
	}
	registered := func(v string) bool { return reg != nil && reg.IsRegistered(v) }
	best := ""
	for _, v := range vols {
		if best == "" {
			best = v
			continue
		}
		rv, rb := rank(v), rank(best)
		switch {
		case rv != rb:
			if rv < rb {
				best = v
			}
		case registered(v) != registered(best):
			if registered(v) {
				best = v
			}
		case v < best:
			best = v
		}
	}
	return best
}

// Divergence counts snapshots each side has after their newest shared one.
type Divergence struct {
	AAhead, BAhead int
	// Related is false when no content-id is shared; the counts are then
	// meaningless.
	Related bool
}

// InSync reports whether both sides are at the same shared snapshot.
func (d Divergence) InSync() bool { return d.Related && d.AAhead == 0 && d.BAhead == 0 }

// CountDivergence walks a from newest to oldest looking for the first
// content-id also present in b.
func CountDivergence(a, b string, hs history.Histories) Divergence {
	as, bs := hs[a], hs[b]
	bIdx := bs.ContentIndex()
	for i := len(as) - 1; i >= 0; i-- {
		if j, ok := bIdx[as[i].ContentID]; ok {
			return Divergence{AAhead: len(as) - i - 1, BAhead: len(bs) - j - 1, Related: true}
		}
	}
	return Divergence{}
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
