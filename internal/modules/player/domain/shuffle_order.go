package domain

// ShuffleOrder maps perceived positions to logical indices.
// An empty order means the queue is not shuffled and both index spaces coincide.
type ShuffleOrder []int

// Active reports whether the order holds a permutation.
func (o ShuffleOrder) Active() bool {
	return len(o) > 0
}

// Logical converts a perceived position to a logical index.
func (o ShuffleOrder) Logical(perceived int) int {
	if !o.Active() {
		return perceived
	}
	return o[perceived]
}

// Perceived converts a logical index to its perceived position, or -1 if absent.
func (o ShuffleOrder) Perceived(logical int) int {
	if !o.Active() {
		return logical
	}
	for pos, idx := range o {
		if idx == logical {
			return pos
		}
	}
	return -1
}

// IsPermutationOf reports whether the order contains every index in [0, n) exactly once.
func (o ShuffleOrder) IsPermutationOf(n int) bool {
	if len(o) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range o {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// without returns a copy with the entry at perceived position pos removed and every
// logical index greater than the removed one shifted down by one.
func (o ShuffleOrder) without(pos int) ShuffleOrder {
	removed := o[pos]
	out := make(ShuffleOrder, 0, len(o)-1)
	for i, idx := range o {
		if i == pos {
			continue
		}
		if idx > removed {
			idx--
		}
		out = append(out, idx)
	}
	return out
}

// insertAt returns a copy with logical placed at perceived position pos.
func (o ShuffleOrder) insertAt(pos, logical int) ShuffleOrder {
	out := make(ShuffleOrder, 0, len(o)+1)
	out = append(out, o[:pos]...)
	out = append(out, logical)
	return append(out, o[pos:]...)
}
