package form

import "badgereq/badge"

// Store holds the entries accepted in one session, in insertion order.
// Entries are only appended or cleared as a whole.
type Store struct {
	entries []badge.Entry
}

func (s *Store) Append(entry badge.Entry) {
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of the accepted entries.
func (s *Store) Entries() []badge.Entry {
	return append([]badge.Entry(nil), s.entries...)
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) Clear() {
	s.entries = nil
}

// IsDuplicate reports whether candidate duplicates any stored entry.
func (s *Store) IsDuplicate(candidate badge.Entry) bool {
	for _, existing := range s.entries {
		if existing.DuplicateOf(candidate) {
			return true
		}
	}
	return false
}
