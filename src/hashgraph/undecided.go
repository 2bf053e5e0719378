package hashgraph

// UndecidedSet holds the hashes of the events that have not reached consensus
// yet, in insertion order. The ConsensusEngine carries it from one pass to the
// next.
type UndecidedSet struct {
	hashes []string
	member map[string]bool
}

// NewUndecidedSet creates an empty set
func NewUndecidedSet() *UndecidedSet {
	return &UndecidedSet{
		member: make(map[string]bool),
	}
}

// Add appends a hash unless it is already present
func (u *UndecidedSet) Add(hash string) {
	if u.member[hash] {
		return
	}
	u.member[hash] = true
	u.hashes = append(u.hashes, hash)
}

// Remove drops the given hashes, keeping the order of the others
func (u *UndecidedSet) Remove(hashes []string) {
	if len(hashes) == 0 {
		return
	}

	for _, h := range hashes {
		delete(u.member, h)
	}

	kept := make([]string, 0, len(u.member))
	for _, h := range u.hashes {
		if u.member[h] {
			kept = append(kept, h)
		}
	}
	u.hashes = kept
}

// Contains reports whether hash is in the set
func (u *UndecidedSet) Contains(hash string) bool {
	return u.member[hash]
}

// Hashes returns a copy of the hashes in insertion order
func (u *UndecidedSet) Hashes() []string {
	res := make([]string, len(u.hashes))
	copy(res, u.hashes)
	return res
}

// Len returns the number of undecided events
func (u *UndecidedSet) Len() int {
	return len(u.hashes)
}
