package agents

// Pool is slab storage with stable slot indices. Removing an entry frees
// its slot for reuse without shifting any other entry, so indices held by
// spatial indexes and encounters stay valid mid-iteration.
type Pool[T any] struct {
	items []T
	live  []bool
	free  []int
	n     int
}

// Add stores v in the lowest free slot, or a new one, and returns it.
// Slot choice depends only on which slots are free, so a restored pool
// hands out the same slots as the one it was saved from. Pointers from
// Get are invalidated by Add; hold slot indices across ticks.
func (p *Pool[T]) Add(v T) int {
	if k := len(p.free); k > 0 {
		j := 0
		for n := 1; n < k; n++ {
			if p.free[n] < p.free[j] {
				j = n
			}
		}
		i := p.free[j]
		p.free[j] = p.free[k-1]
		p.free = p.free[:k-1]
		p.items[i] = v
		p.live[i] = true
		p.n++
		return i
	}
	p.items = append(p.items, v)
	p.live = append(p.live, true)
	p.n++
	return len(p.items) - 1
}

// Remove frees slot i. It reports false for an empty or unknown slot.
func (p *Pool[T]) Remove(i int) bool {
	if i < 0 || i >= len(p.items) || !p.live[i] {
		return false
	}
	var zero T
	p.items[i] = zero
	p.live[i] = false
	p.free = append(p.free, i)
	p.n--
	return true
}

// Get returns the entry in slot i, or nil.
func (p *Pool[T]) Get(i int) *T {
	if i < 0 || i >= len(p.items) || !p.live[i] {
		return nil
	}
	return &p.items[i]
}

// Each visits live entries in slot order. fn may Remove entries,
// including the one being visited, but must not Add.
func (p *Pool[T]) Each(fn func(i int, v *T)) {
	for i := range p.items {
		if p.live[i] {
			fn(i, &p.items[i])
		}
	}
}

// Len returns the number of live entries.
func (p *Pool[T]) Len() int { return p.n }

// Slots returns the slab size including free slots.
func (p *Pool[T]) Slots() int { return len(p.items) }

// Place stores v in slot i, growing the slab as needed. Used when
// restoring a snapshot so saved indices survive.
func (p *Pool[T]) Place(i int, v T) {
	for len(p.items) <= i {
		var zero T
		p.items = append(p.items, zero)
		p.live = append(p.live, false)
	}
	if !p.live[i] {
		p.n++
	}
	p.items[i] = v
	p.live[i] = true
}

// Reserve grows the slab to at least n slots without adding entries.
func (p *Pool[T]) Reserve(n int) {
	for len(p.items) < n {
		var zero T
		p.items = append(p.items, zero)
		p.live = append(p.live, false)
	}
}

// Compact rebuilds the free list after a series of Place calls.
func (p *Pool[T]) Compact() {
	p.free = p.free[:0]
	for i := len(p.live) - 1; i >= 0; i-- {
		if !p.live[i] {
			p.free = append(p.free, i)
		}
	}
}
