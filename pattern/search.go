package pattern

// Located is a match found at Start within a larger input. The groups of Match
// are relative to Start.
type Located struct {
	Start int
	Match Match
}

// Group returns the i-th capture with offsets relative to the searched input.
func (l Located) Group(i int) (MatchGroup, bool) {
	g, ok := l.Match.Group(i)
	if !ok {
		return MatchGroup{}, false
	}
	return g.shift(l.Start), true
}

// Bytes returns the text of group i within in, the input that was searched.
func (l Located) Bytes(in []byte, i int) []byte {
	g, ok := l.Group(i)
	if !ok {
		return nil
	}
	return in[g.Begin:g.End]
}

// Find returns the leftmost position at which p matches a non-empty prefix of
// the remaining input.
func (p *Pattern) Find(in []byte) (Located, bool) {
	for i := 0; i < len(in); i++ {
		m := p.Match(in[i:])
		if m.Ok() {
			return Located{Start: i, Match: m}, true
		}
	}
	return Located{}, false
}

// FindAll appends up to maxCount non-overlapping matches to dst, scanning left
// to right. A negative maxCount finds all matches. No allocation happens
// when dst has enough capacity.
func (p *Pattern) FindAll(in []byte, maxCount int, dst []Located) []Located {
	found := 0
	for i := 0; i < len(in); {
		if maxCount >= 0 && found >= maxCount {
			break
		}
		m := p.Match(in[i:])
		if !m.Ok() {
			i++
			continue
		}
		dst = append(dst, Located{Start: i, Match: m})
		found++
		i += m.Consumed
	}
	return dst
}
