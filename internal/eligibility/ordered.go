package eligibility

// orderedGroups is a multimap that remembers first-seen key order.
type orderedGroups[T any] struct {
	keys   []string
	groups map[string][]T
}

func newOrderedGroups[T any]() *orderedGroups[T] {
	return &orderedGroups[T]{groups: make(map[string][]T)}
}

func (g *orderedGroups[T]) add(key string, v T) {
	if _, ok := g.groups[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.groups[key] = append(g.groups[key], v)
}

func (g *orderedGroups[T]) each(fn func(key string, items []T)) {
	for _, k := range g.keys {
		fn(k, g.groups[k])
	}
}

func (g *orderedGroups[T]) len() int { return len(g.keys) }
