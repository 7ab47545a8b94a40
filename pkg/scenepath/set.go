package scenepath

// Set is an unordered collection of paths.
type Set map[Path]struct{}

// NewSet returns a set holding paths.
func NewSet(paths ...Path) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was absent.
func (s Set) Add(p Path) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Remove deletes p and reports whether it was present.
func (s Set) Remove(p Path) bool {
	if _, ok := s[p]; !ok {
		return false
	}
	delete(s, p)
	return true
}

// Contains reports whether p is in the set.
func (s Set) Contains(p Path) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of paths.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members ordered by Less.
func (s Set) Sorted() []Path {
	out := make([]Path, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	Sort(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}
