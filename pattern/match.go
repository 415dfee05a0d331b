package pattern

import "fmt"

// MaxGroups is the number of capture groups a Match can hold, shared by every
// pattern in a tree. Group 0 is always the overall span.
const MaxGroups = 16

// MatchGroup is the half-open byte range [Begin, End) of a capture, relative to
// the input passed to Match.
type MatchGroup struct {
	Begin int
	End   int
}

func NewMatchGroup(begin, end int) MatchGroup {
	if begin < 0 || begin > end {
		panic(fmt.Sprintf("invalid match group [%d, %d)", begin, end))
	}
	return MatchGroup{Begin: begin, End: end}
}

func (g MatchGroup) Len() int {
	return g.End - g.Begin
}

func (g MatchGroup) shift(off int) MatchGroup {
	return MatchGroup{Begin: g.Begin + off, End: g.End + off}
}

// Match is the result of a single matching attempt. Only the first
// GroupsMatched entries of Groups are meaningful.
type Match struct {
	Consumed      int
	GroupsMatched int
	Groups        [MaxGroups]MatchGroup
}

// Empty is the failed match: nothing consumed, no groups.
var Empty = Match{}

// NewMatch builds a successful match. groupsMatched == 0 must coincide with
// consumed == 0, and group 0 must span the whole match.
func NewMatch(consumed, groupsMatched int, groups [MaxGroups]MatchGroup) Match {
	if consumed < 0 {
		panic(fmt.Sprintf("negative bytes consumed %d", consumed))
	}
	if groupsMatched < 0 || groupsMatched > MaxGroups {
		panic(fmt.Sprintf("groups matched %d out of range [0, %d]", groupsMatched, MaxGroups))
	}
	if (groupsMatched == 0) != (consumed == 0) {
		panic(fmt.Sprintf("inconsistent match: consumed %d bytes with %d groups", consumed, groupsMatched))
	}
	if groupsMatched > 0 && groups[0] != (MatchGroup{Begin: 0, End: consumed}) {
		panic(fmt.Sprintf("group 0 %v does not span the %d consumed bytes", groups[0], consumed))
	}
	return Match{Consumed: consumed, GroupsMatched: groupsMatched, Groups: groups}
}

// single is the shape every one-byte matcher reports on success.
func single() Match {
	m := Match{Consumed: 1, GroupsMatched: 1}
	m.Groups[0] = MatchGroup{Begin: 0, End: 1}
	return m
}

func (m Match) Ok() bool {
	return m.GroupsMatched > 0
}

// Group returns the i-th capture and whether it was matched.
func (m Match) Group(i int) (MatchGroup, bool) {
	if i < 0 || i >= m.GroupsMatched {
		return MatchGroup{}, false
	}
	return m.Groups[i], true
}

// Slice returns the bytes of group i within in, which must be the input the
// match was produced from. Unmatched groups yield nil.
func (m Match) Slice(in []byte, i int) []byte {
	g, ok := m.Group(i)
	if !ok {
		return nil
	}
	return in[g.Begin:g.End]
}

// Spans returns the matched groups as a slice view.
func (m *Match) Spans() []MatchGroup {
	return m.Groups[:m.GroupsMatched]
}

// push appends g, panicking when the tree produces more groups than MaxGroups.
func (m *Match) push(g MatchGroup) {
	if m.GroupsMatched >= MaxGroups {
		panic(fmt.Sprintf("pattern produced more than %d groups", MaxGroups))
	}
	m.Groups[m.GroupsMatched] = g
	m.GroupsMatched++
}
