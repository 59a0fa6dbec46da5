package appbase

// scope owns a group of backend handles and releases them in reverse order of
// acquisition. App keeps one scope per resource category so categories are
// torn down frames first and device last.
type scope struct {
	name    string
	entries []owned
}

type owned struct {
	name    string
	release func()
}

func (s *scope) own(name string, release func()) {
	s.entries = append(s.entries, owned{name: name, release: release})
}

// releaseAll runs every release in reverse order and empties the scope, so a
// second call does nothing.
func (s *scope) releaseAll() {
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		Logger().Debug("release", "scope", s.name, "handle", e.name)
		e.release()
	}
	s.entries = nil
}

func (s *scope) len() int { return len(s.entries) }
