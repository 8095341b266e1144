package option

// Set is an ordered collection of named options.
// Iteration follows insertion order so listings and the commands sent to an
// engine are deterministic.
type Set struct {
	names []string
	byKey map[string]Option
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{byKey: make(map[string]Option)}
}

// Len returns the number of options.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Put inserts or replaces an option. Replacing keeps the existing position.
func (s *Set) Put(name string, opt Option) {
	if s.byKey == nil {
		s.byKey = make(map[string]Option)
	}
	if _, exists := s.byKey[name]; !exists {
		s.names = append(s.names, name)
	}
	s.byKey[name] = opt
}

// Get returns the option with the given name.
func (s *Set) Get(name string) (Option, bool) {
	if s == nil {
		return nil, false
	}
	opt, ok := s.byKey[name]
	return opt, ok
}

// Delete removes an option. It reports whether the option existed.
func (s *Set) Delete(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.byKey[name]; !ok {
		return false
	}
	delete(s.byKey, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the option names in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Each calls fn for every option in order until fn returns false.
func (s *Set) Each(fn func(name string, opt Option) bool) {
	if s == nil {
		return
	}
	for _, n := range s.names {
		if !fn(n, s.byKey[n]) {
			return
		}
	}
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	out := NewSet()
	s.Each(func(name string, opt Option) bool {
		out.Put(name, opt.Clone())
		return true
	})
	return out
}

// MergeFrom returns a new set holding every option of s (the fresh discovery)
// with values carried over from prev where the names match. Options present
// only in prev are dropped.
func (s *Set) MergeFrom(prev *Set) *Set {
	out := NewSet()
	s.Each(func(name string, fresh Option) bool {
		old, _ := prev.Get(name)
		out.Put(name, Merge(old, fresh))
		return true
	})
	return out
}

// Patch returns a copy of s in which every option of fresh is added or, when
// the name already exists, merged in place. Options absent from fresh are kept.
func (s *Set) Patch(fresh *Set) *Set {
	out := s.Clone()
	fresh.Each(func(name string, opt Option) bool {
		old, _ := s.Get(name)
		out.Put(name, Merge(old, opt))
		return true
	})
	return out
}
