package domain

// PatternList is one allow or block list keyed by pattern text. Iteration
// follows insertion order, which is the order of the list file.
type PatternList struct {
	Kind    ListKind
	order   []string
	entries map[string]*PatternEntry
}

func NewPatternList(kind ListKind) *PatternList {
	return &PatternList{
		Kind:    kind,
		entries: map[string]*PatternEntry{},
	}
}

func (l *PatternList) Len() int {
	if l == nil {
		return 0
	}

	return len(l.order)
}

func (l *PatternList) Get(pattern string) (*PatternEntry, bool) {
	if l == nil {
		return nil, false
	}

	entry, ok := l.entries[pattern]
	return entry, ok
}

// Put inserts or replaces an entry. A replaced entry keeps its position.
func (l *PatternList) Put(entry *PatternEntry) {
	if _, ok := l.entries[entry.Pattern]; !ok {
		l.order = append(l.order, entry.Pattern)
	}
	l.entries[entry.Pattern] = entry
}

func (l *PatternList) Delete(pattern string) bool {
	if _, ok := l.entries[pattern]; !ok {
		return false
	}

	delete(l.entries, pattern)
	for i, key := range l.order {
		if key == pattern {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	return true
}

func (l *PatternList) Entries() []*PatternEntry {
	if l == nil {
		return nil
	}

	entries := make([]*PatternEntry, 0, len(l.order))
	for _, key := range l.order {
		entries = append(entries, l.entries[key])
	}

	return entries
}

// Find returns the first entry matching candidate without touching history.
func (l *PatternList) Find(candidate string) (*PatternEntry, bool) {
	for _, entry := range l.Entries() {
		if entry.Matches(candidate) {
			return entry, true
		}
	}

	return nil, false
}

// MatchOne records a hit on the first entry matching candidate.
func (l *PatternList) MatchOne(candidate string, at Timestamp) (*PatternEntry, bool) {
	entry, ok := l.Find(candidate)
	if !ok {
		return nil, false
	}

	entry.LastMatched = at
	entry.MatchCount++

	return entry, true
}

// MatchBoth tries the number first and the name only when the number missed.
func (l *PatternList) MatchBoth(number, name string, at Timestamp) (*PatternEntry, bool) {
	if entry, ok := l.MatchOne(number, at); ok {
		return entry, true
	}

	return l.MatchOne(name, at)
}

// FindBoth is MatchBoth without recording the hit.
func (l *PatternList) FindBoth(number, name string) (*PatternEntry, bool) {
	if entry, ok := l.Find(number); ok {
		return entry, true
	}

	return l.Find(name)
}
