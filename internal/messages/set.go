package messages

import "github.com/leonardcser/wiki-fetch/internal/mediawiki"

// Set is a fetched batch, addressable by message name or by position.
type Set struct {
	names   []string
	texts   []string
	byName  map[string]string
	missing []string
}

// newSet pairs the requested names with the API's answers by position, and
// also indexes each answer under the name the API reported.
func newSet(names []string, msgs []mediawiki.Message) *Set {
	s := &Set{byName: make(map[string]string, len(msgs))}
	for i, m := range msgs {
		name := m.Name
		if i < len(names) {
			name = names[i]
		}
		s.names = append(s.names, name)
		s.texts = append(s.texts, m.Content)
		s.byName[name] = m.Content
		if m.Name != "" {
			s.byName[m.Name] = m.Content
		}
		if m.Missing {
			s.missing = append(s.missing, name)
		}
	}
	return s
}

// Get returns the text of the named message, or "" when it was not fetched.
func (s *Set) Get(name string) string { return s.byName[name] }

// At returns the i-th message text in request order.
func (s *Set) At(i int) string {
	if i < 0 || i >= len(s.texts) {
		return ""
	}
	return s.texts[i]
}

// Text returns the first message, the whole answer for a single-name fetch.
func (s *Set) Text() string { return s.At(0) }

// Len reports how many messages came back.
func (s *Set) Len() int { return len(s.texts) }

// Names lists the message names in request order.
func (s *Set) Names() []string { return append([]string(nil), s.names...) }

// Missing lists the names the site does not define.
func (s *Set) Missing() []string { return append([]string(nil), s.missing...) }

// Map returns name → text for every message.
func (s *Set) Map() map[string]string {
	out := make(map[string]string, len(s.names))
	for i, n := range s.names {
		out[n] = s.texts[i]
	}
	return out
}
