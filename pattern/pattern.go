package pattern

import "fmt"

const (
	// MaxMembers bounds the number of sub-patterns of a Concatenation.
	MaxMembers = 16
	// MaxClassSize bounds the number of bytes listed by a character class.
	MaxClassSize = 256
)

// Wildcard matches any single byte.
type Wildcard struct{}

func (Wildcard) Match(in []byte) Match {
	if len(in) == 0 {
		return Empty
	}
	return single()
}

// Character matches one exact byte.
type Character struct {
	Char byte
}

func (c Character) Match(in []byte) Match {
	if len(in) == 0 || in[0] != c.Char {
		return Empty
	}
	return single()
}

// CharacterClass matches one byte out of a fixed set.
type CharacterClass struct {
	set   [MaxClassSize]byte
	count int
}

// NewCharacterClass panics unless 0 < len(set) <= MaxClassSize.
func NewCharacterClass(set ...byte) CharacterClass {
	if len(set) == 0 || len(set) > MaxClassSize {
		panic(fmt.Sprintf("character class needs 1 to %d bytes, got %d", MaxClassSize, len(set)))
	}
	var c CharacterClass
	c.count = copy(c.set[:], set)
	return c
}

func (c *CharacterClass) Match(in []byte) Match {
	if len(in) == 0 || !contains(&c.set, c.count, in[0]) {
		return Empty
	}
	return single()
}

// InvertedCharacterClass matches one byte that is not in a fixed set. An empty
// set excludes nothing.
type InvertedCharacterClass struct {
	set   [MaxClassSize]byte
	count int
}

// NewInvertedCharacterClass panics if len(set) > MaxClassSize.
func NewInvertedCharacterClass(set ...byte) InvertedCharacterClass {
	if len(set) > MaxClassSize {
		panic(fmt.Sprintf("inverted character class holds at most %d bytes, got %d", MaxClassSize, len(set)))
	}
	var c InvertedCharacterClass
	c.count = copy(c.set[:], set)
	return c
}

func (c *InvertedCharacterClass) Match(in []byte) Match {
	if len(in) == 0 || contains(&c.set, c.count, in[0]) {
		return Empty
	}
	return single()
}

func contains(set *[MaxClassSize]byte, count int, b byte) bool {
	for i := 0; i < count; i++ {
		if set[i] == b {
			return true
		}
	}
	return false
}

// Concatenation matches its members strictly left to right. It fails as soon
// as one member fails and never backtracks.
type Concatenation struct {
	members [MaxMembers]*Pattern
	count   int
}

// NewConcatenation panics unless 0 < len(members) <= MaxMembers and every
// member is non-nil. The members are borrowed.
func NewConcatenation(members ...*Pattern) Concatenation {
	if len(members) == 0 || len(members) > MaxMembers {
		panic(fmt.Sprintf("concatenation needs 1 to %d members, got %d", MaxMembers, len(members)))
	}
	var c Concatenation
	for i, m := range members {
		if m == nil {
			panic(fmt.Sprintf("concatenation member %d is nil", i))
		}
		c.members[i] = m
	}
	c.count = len(members)
	return c
}

func (c *Concatenation) Match(in []byte) Match {
	m, _, _ := c.match(in)
	return m
}

func (c *Concatenation) match(in []byte) (Match, bool, bool) {
	out := Match{GroupsMatched: 1}
	total := 0
	for i := 0; i < c.count; i++ {
		sub, ok, captured := c.members[i].match(in[total:])
		if !ok {
			return Empty, false, false
		}
		// a member's group 0 is only worth keeping when it is a capture
		first := 1
		if captured {
			first = 0
		}
		for j := first; j < sub.GroupsMatched; j++ {
			out.push(sub.Groups[j].shift(total))
		}
		total += sub.Consumed
	}
	if total == 0 {
		// every member was optional and absent
		return Empty, true, false
	}
	out.Consumed = total
	out.Groups[0] = MatchGroup{Begin: 0, End: total}
	return out, true, false
}

// Group captures the whole span of its sub-pattern and re-exposes the
// sub-pattern's own captures after it.
type Group struct {
	sub *Pattern
}

func NewGroup(sub *Pattern) Group {
	if sub == nil {
		panic("group sub-pattern is nil")
	}
	return Group{sub: sub}
}

func (g Group) Match(in []byte) Match {
	m, _, _ := g.match(in)
	return m
}

func (g Group) match(in []byte) (Match, bool, bool) {
	sub, _, captured := g.sub.match(in)
	if sub.Consumed == 0 {
		return Empty, false, false
	}
	out := Match{Consumed: sub.Consumed}
	out.push(MatchGroup{Begin: 0, End: sub.Consumed})
	// the sub-pattern's group 0 spans the same bytes as ours unless it is
	// a capture of its own
	first := 1
	if captured {
		first = 0
	}
	for j := first; j < sub.GroupsMatched; j++ {
		out.push(sub.Groups[j])
	}
	return out, true, true
}

// Optional matches its sub-pattern zero or one time. It never fails.
type Optional struct {
	sub *Pattern
}

func NewOptional(sub *Pattern) Optional {
	if sub == nil {
		panic("optional sub-pattern is nil")
	}
	return Optional{sub: sub}
}

func (o Optional) Match(in []byte) Match {
	m, _, _ := o.match(in)
	return m
}

func (o Optional) match(in []byte) (Match, bool, bool) {
	m, ok, captured := o.sub.match(in)
	if !ok || m.Consumed == 0 {
		return Empty, true, false
	}
	return m, true, captured
}

// Pattern is a closed union over the matcher variants. Composite variants
// borrow their sub-patterns, so a Pattern must outlive every Pattern built
// on top of it. A Pattern is immutable and safe for concurrent use.
type Pattern struct {
	state any
}

func Any() Pattern {
	return Pattern{state: Wildcard{}}
}

func Char(c byte) Pattern {
	return Pattern{state: Character{Char: c}}
}

func Class(set ...byte) Pattern {
	c := NewCharacterClass(set...)
	return Pattern{state: &c}
}

func NotClass(set ...byte) Pattern {
	c := NewInvertedCharacterClass(set...)
	return Pattern{state: &c}
}

func Concat(members ...*Pattern) Pattern {
	c := NewConcatenation(members...)
	return Pattern{state: &c}
}

func Capture(sub *Pattern) Pattern {
	return Pattern{state: NewGroup(sub)}
}

func Maybe(sub *Pattern) Pattern {
	return Pattern{state: NewOptional(sub)}
}

// Match matches p against the start of in.
func (p *Pattern) Match(in []byte) Match {
	m, _, _ := p.match(in)
	return m
}

// match reports the match, whether p failed, and whether group 0 of the
// result is a capture introduced by a Group rather than an implicit span.
func (p *Pattern) match(in []byte) (Match, bool, bool) {
	switch s := p.state.(type) {
	case Wildcard:
		m := s.Match(in)
		return m, m.Ok(), false
	case Character:
		m := s.Match(in)
		return m, m.Ok(), false
	case *CharacterClass:
		m := s.Match(in)
		return m, m.Ok(), false
	case *InvertedCharacterClass:
		m := s.Match(in)
		return m, m.Ok(), false
	case *Concatenation:
		return s.match(in)
	case Group:
		return s.match(in)
	case Optional:
		return s.match(in)
	default:
		panic("unexpected `state` type")
	}
}
