package algorithm

import (
	"github.com/osstelecom/topoweak/pkg/graph"
)

// naiveCounter counts the source's active connections whose far side can
// still get to the target without coming back through the source. Routes
// found this way may share nodes further down, so it overestimates
// independence on meshed topologies.
func naiveCounter(v *graph.View) PathCounter {
	return func(s, t, limit int) (int, error) {
		if limit <= 0 || s == t || !v.SameComponent(s, t) {
			return 0, nil
		}
		count := 0
		for _, a := range v.Out[s] {
			if count >= limit {
				break
			}
			if a.To == t || (v.Active[a.To] && reachesAvoiding(v, a.To, t, s)) {
				count++
			}
		}
		return count, nil
	}
}

func reachesAvoiding(v *graph.View, from, to, avoid int) bool {
	visited := map[int]bool{from: true, avoid: true}
	queue := []int{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, a := range v.Out[cur] {
			if a.To == to {
				return true
			}
			if visited[a.To] || !v.Active[a.To] {
				continue
			}
			visited[a.To] = true
			queue = append(queue, a.To)
		}
	}
	return false
}
