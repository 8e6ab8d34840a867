package graph

import (
	"sort"
)

// UnionFind is a disjoint-set forest with path compression and union by rank.
// It is not safe for concurrent use; View builds one and keeps only the
// resulting labels.
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind creates n singleton sets.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent, rank: make([]int, n)}
}

// Find returns the representative of i's set, or -1 when i is out of range.
func (uf *UnionFind) Find(i int) int {
	if i < 0 || i >= len(uf.parent) {
		return -1
	}
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets of i and j.
func (uf *UnionFind) Union(i, j int) {
	ri, rj := uf.Find(i), uf.Find(j)
	if ri == -1 || rj == -1 || ri == rj {
		return
	}
	switch {
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
}

// Connected reports whether i and j share a set.
func (uf *UnionFind) Connected(i, j int) bool {
	ri := uf.Find(i)
	return ri != -1 && ri == uf.Find(j)
}

func sortBySizeDesc(groups [][]*Node) {
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0].ID < groups[j][0].ID
	})
}
