package hashgraph

// Key is the cache key of a binary ancestry relation
type Key struct {
	x, y string
}

// TreKey is the cache key of the strongly-see relation, which also depends on
// the number of participants
type TreKey struct {
	x, y string
	n    int
}

// SuperMajority returns ceil(2n/3), the number of participants forming a
// Byzantine quorum.
func SuperMajority(n int) int {
	return (2*n + 2) / 3
}

// CanSee reports whether y is an ancestor of x, following self-parent and
// other-parent edges breadth-first. Every event can see itself; a genesis
// event can see nothing else.
func CanSee(idx *EventIndex, x, y string) bool {
	if x == y {
		return true
	}

	key := Key{x, y}
	if c, ok := idx.canSeeCache.Get(key); ok {
		return c.(bool)
	}

	res := canSee(idx, x, y)
	idx.canSeeCache.Add(key, res)

	return res
}

func canSee(idx *EventIndex, x, y string) bool {
	if !idx.Contains(x) || !idx.Contains(y) {
		return false
	}

	seen := map[string]bool{x: true}
	queue := []string{x}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]

		if h == y {
			return true
		}

		ev, ok := idx.Get(h)
		if !ok {
			continue
		}

		for _, p := range idx.parents(ev) {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}

	return false
}

// CanStronglySee visits the ancestors of x breadth-first, starting with x
// itself and enqueuing self-parents before other-parents, until the visited
// events cover n distinct creators or there is nothing left to visit. x
// strongly sees y if at least SuperMajority(n) of the visited events can see y.
func CanStronglySee(idx *EventIndex, x, y string, n int) bool {
	key := TreKey{x, y, n}
	if c, ok := idx.stronglySeeCache.Get(key); ok {
		return c.(bool)
	}

	res := canStronglySee(idx, x, y, n)
	idx.stronglySeeCache.Add(key, res)

	return res
}

func canStronglySee(idx *EventIndex, x, y string, n int) bool {
	visited := stronglySeeFrontier(idx, x, n)

	count := 0
	for _, v := range visited {
		if CanSee(idx, v, y) {
			count++
		}
	}

	return count >= SuperMajority(n)
}

// stronglySeeFrontier returns, in visiting order, the ancestors of x that
// CanStronglySee counts.
func stronglySeeFrontier(idx *EventIndex, x string, n int) []string {
	if !idx.Contains(x) {
		return nil
	}

	seen := map[string]bool{x: true}
	creators := make(map[string]bool)
	queue := []string{x}
	visited := []string{}

	for len(queue) > 0 && len(creators) < n {
		h := queue[0]
		queue = queue[1:]

		ev, ok := idx.Get(h)
		if !ok {
			continue
		}

		visited = append(visited, h)
		creators[ev.Creator()] = true

		for _, p := range idx.parents(ev) {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}

	return visited
}
