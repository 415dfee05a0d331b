package pattern

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr(p Pattern) *Pattern {
	return &p
}

func groupStrings(in []byte, m Match) []string {
	var out []string
	for i := 0; i < m.GroupsMatched; i++ {
		out = append(out, string(m.Slice(in, i)))
	}
	return out
}

// (a(b))c
func nestedGroups() *Pattern {
	a := Char('a')
	b := Char('b')
	c := Char('c')
	innerGroup := Capture(&b)
	innerConcat := Concat(&a, &innerGroup)
	outerGroup := Capture(&innerConcat)
	return ptr(Concat(&outerGroup, &c))
}

func matchTests() map[string]struct {
	givenPattern *Pattern
	givenInput   string
	wantConsumed int
	wantGroups   []string
} {
	return map[string]struct {
		givenPattern *Pattern
		givenInput   string
		wantConsumed int
		wantGroups   []string
	}{
		"wildcard on empty input": {
			givenPattern: ptr(Any()),
			givenInput:   "",
		},
		"wildcard": {
			givenPattern: ptr(Any()),
			givenInput:   "xyz",
			wantConsumed: 1,
			wantGroups:   []string{"x"},
		},
		"wildcard on any byte": {
			givenPattern: ptr(Any()),
			givenInput:   "\x00",
			wantConsumed: 1,
			wantGroups:   []string{"\x00"},
		},
		"character on empty input": {
			givenPattern: ptr(Char('c')),
			givenInput:   "",
		},
		"character": {
			givenPattern: ptr(Char('a')),
			givenInput:   "abc",
			wantConsumed: 1,
			wantGroups:   []string{"a"},
		},
		"character mismatch": {
			givenPattern: ptr(Char('a')),
			givenInput:   "bc",
		},
		"class": {
			givenPattern: ptr(Class('a', 'b', 'c')),
			givenInput:   "banana",
			wantConsumed: 1,
			wantGroups:   []string{"b"},
		},
		"class mismatch": {
			givenPattern: ptr(Class('a', 'b', 'c')),
			givenInput:   "xyz",
		},
		"class with duplicates": {
			givenPattern: ptr(Class('a', 'a')),
			givenInput:   "a",
			wantConsumed: 1,
			wantGroups:   []string{"a"},
		},
		"class on empty input": {
			givenPattern: ptr(Class('a')),
			givenInput:   "",
		},
		"inverted class with empty set": {
			givenPattern: ptr(NotClass()),
			givenInput:   "x",
			wantConsumed: 1,
			wantGroups:   []string{"x"},
		},
		"inverted class excluded byte": {
			givenPattern: ptr(NotClass('x', 'y')),
			givenInput:   "yes",
		},
		"inverted class other byte": {
			givenPattern: ptr(NotClass('x', 'y')),
			givenInput:   "no",
			wantConsumed: 1,
			wantGroups:   []string{"n"},
		},
		"inverted class on empty input": {
			givenPattern: ptr(NotClass()),
			givenInput:   "",
		},
		"concatenation": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Char('b')))),
			givenInput:   "abc",
			wantConsumed: 2,
			wantGroups:   []string{"ab"},
		},
		"concatenation never matches partially": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Char('b')))),
			givenInput:   "axc",
		},
		"concatenation on short input": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Char('b')))),
			givenInput:   "a",
		},
		"concatenation of one": {
			givenPattern: ptr(Concat(ptr(Char('a')))),
			givenInput:   "a",
			wantConsumed: 1,
			wantGroups:   []string{"a"},
		},
		"group": {
			givenPattern: ptr(Capture(ptr(Char('a')))),
			givenInput:   "abc",
			wantConsumed: 1,
			wantGroups:   []string{"a"},
		},
		"group mismatch": {
			givenPattern: ptr(Capture(ptr(Char('a')))),
			givenInput:   "cba",
		},
		"nested groups": {
			givenPattern: nestedGroups(),
			givenInput:   "abc",
			wantConsumed: 3,
			wantGroups:   []string{"abc", "ab", "b"},
		},
		"group of group": {
			givenPattern: ptr(Capture(ptr(Capture(ptr(Char('a')))))),
			givenInput:   "a",
			wantConsumed: 1,
			wantGroups:   []string{"a", "a"},
		},
		"group inside concatenation": {
			givenPattern: ptr(Concat(ptr(Char('x')), ptr(Capture(ptr(Any()))), ptr(Char('z')))),
			givenInput:   "xyz",
			wantConsumed: 3,
			wantGroups:   []string{"xyz", "y"},
		},
		"concatenation inside concatenation": {
			givenPattern: ptr(Concat(ptr(Concat(ptr(Char('a')), ptr(Capture(ptr(Char('b')))))), ptr(Char('c')))),
			givenInput:   "abc",
			wantConsumed: 3,
			wantGroups:   []string{"abc", "b"},
		},
		"optional absent": {
			givenPattern: ptr(Maybe(ptr(Char('x')))),
			givenInput:   "abc",
		},
		"optional present": {
			givenPattern: ptr(Maybe(ptr(Char('a')))),
			givenInput:   "abc",
			wantConsumed: 1,
			wantGroups:   []string{"a"},
		},
		"optional absent inside concatenation": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Maybe(ptr(Char('x')))), ptr(Char('b')))),
			givenInput:   "abc",
			wantConsumed: 2,
			wantGroups:   []string{"ab"},
		},
		"optional group present inside concatenation": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Maybe(ptr(Capture(ptr(Char('b')))))), ptr(Char('c')))),
			givenInput:   "abc",
			wantConsumed: 3,
			wantGroups:   []string{"abc", "b"},
		},
		"optional group absent inside concatenation": {
			givenPattern: ptr(Concat(ptr(Char('a')), ptr(Maybe(ptr(Capture(ptr(Char('b')))))), ptr(Char('c')))),
			givenInput:   "ac",
			wantConsumed: 2,
			wantGroups:   []string{"ac"},
		},
		"optional is greedy and does not backtrack": {
			givenPattern: ptr(Concat(ptr(Maybe(ptr(Char('a')))), ptr(Char('a')))),
			givenInput:   "a",
		},
		"concatenation of absent optionals": {
			givenPattern: ptr(Concat(ptr(Maybe(ptr(Char('x')))), ptr(Maybe(ptr(Char('y')))))),
			givenInput:   "abc",
		},
		"optional concatenation partially present": {
			givenPattern: ptr(Maybe(ptr(Concat(ptr(Char('a')), ptr(Char('x')))))),
			givenInput:   "abc",
		},
		"group over absent optional": {
			givenPattern: ptr(Capture(ptr(Maybe(ptr(Char('x')))))),
			givenInput:   "abc",
		},
	}
}

func TestMatch(t *testing.T) {
	for name, tt := range matchTests() {
		t.Run(name, func(t *testing.T) {
			// when
			in := []byte(tt.givenInput)
			got := tt.givenPattern.Match(in)

			// then
			if got.Consumed != tt.wantConsumed {
				t.Errorf("consumed %d, want %d", got.Consumed, tt.wantConsumed)
			}
			if d := cmp.Diff(tt.wantGroups, groupStrings(in, got)); d != "" {
				t.Errorf("got diff (-want +got):\n%s", d)
			}
		})
	}
}

func TestMatchInvariants(t *testing.T) {
	for name, tt := range matchTests() {
		t.Run(name, func(t *testing.T) {
			in := []byte(tt.givenInput)
			got := tt.givenPattern.Match(in)

			if (got.Consumed == 0) != (got.GroupsMatched == 0) {
				t.Errorf("consumed %d bytes with %d groups", got.Consumed, got.GroupsMatched)
			}
			if got.Ok() && got.Groups[0] != (MatchGroup{Begin: 0, End: got.Consumed}) {
				t.Errorf("group 0 is %v, want [0, %d)", got.Groups[0], got.Consumed)
			}
			for i, g := range got.Spans() {
				if g.Begin > g.End || g.End > got.Consumed {
					t.Errorf("group %d %v is outside of the match", i, g)
				}
			}

			// matching is pure
			if d := cmp.Diff(got, tt.givenPattern.Match(in)); d != "" {
				t.Errorf("second match differs (-first +second):\n%s", d)
			}
		})
	}
}

func TestSingleByteVariantsConsumeAtMostOne(t *testing.T) {
	patterns := map[string]Pattern{
		"wildcard":       Any(),
		"character":      Char('a'),
		"class":          Class('a', 'b'),
		"inverted class": NotClass('z'),
	}
	inputs := []string{"", "a", "aa", "ab", "zzz", "b\x00"}

	for name, p := range patterns {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				if got := p.Match([]byte(in)); got.Consumed > 1 {
					t.Errorf("%q: consumed %d", in, got.Consumed)
				}
			}
		})
	}
}

// the variants can be used on their own, without the Pattern union
func TestVariants(t *testing.T) {
	in := []byte("abc")
	class := NewCharacterClass('c', 'b', 'a')
	inverted := NewInvertedCharacterClass('a')
	a := Char('a')
	b := Char('b')
	concat := NewConcatenation(&a, &b)

	got := []int{
		Wildcard{}.Match(in).Consumed,
		Character{Char: 'a'}.Match(in).Consumed,
		class.Match(in).Consumed,
		inverted.Match(in).Consumed,
		concat.Match(in).Consumed,
		NewGroup(&a).Match(in).GroupsMatched,
		NewOptional(&b).Match(in).GroupsMatched,
	}
	want := []int{1, 1, 1, 0, 2, 1, 0}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("got diff (-want +got):\n%s", d)
	}
}

func TestMatchGroup(t *testing.T) {
	g := NewMatchGroup(2, 5)
	if g.Len() != 3 {
		t.Errorf("len %d, want 3", g.Len())
	}
	if NewMatchGroup(4, 4).Len() != 0 {
		t.Errorf("empty group has non-zero length")
	}
}

func TestMatchAccessors(t *testing.T) {
	in := []byte("abc")
	m := nestedGroups().Match(in)

	if g, ok := m.Group(2); !ok || g != (MatchGroup{Begin: 1, End: 2}) {
		t.Errorf("group 2 is %v, %v", g, ok)
	}
	if _, ok := m.Group(3); ok {
		t.Errorf("group 3 should not be matched")
	}
	if _, ok := m.Group(-1); ok {
		t.Errorf("group -1 should not be matched")
	}
	if got := m.Slice(in, 5); got != nil {
		t.Errorf("unmatched group slice is %q", got)
	}
	if Empty.Ok() {
		t.Errorf("empty match is ok")
	}
}

func TestNewMatch(t *testing.T) {
	var groups [MaxGroups]MatchGroup
	groups[0] = MatchGroup{Begin: 0, End: 2}
	m := NewMatch(2, 1, groups)
	if d := cmp.Diff(Match{Consumed: 2, GroupsMatched: 1, Groups: groups}, m); d != "" {
		t.Errorf("got diff (-want +got):\n%s", d)
	}
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic")
		}
	}()
	f()
}

func TestConstructionPreconditions(t *testing.T) {
	tooMany := make([]*Pattern, MaxMembers+1)
	for i := range tooMany {
		tooMany[i] = ptr(Any())
	}

	tests := map[string]func(){
		"inverted match group":    func() { NewMatchGroup(2, 1) },
		"negative match group":    func() { NewMatchGroup(-1, 1) },
		"match without groups":    func() { NewMatch(1, 0, [MaxGroups]MatchGroup{}) },
		"groups without match":    func() { NewMatch(0, 1, [MaxGroups]MatchGroup{}) },
		"too many groups":         func() { NewMatch(1, MaxGroups+1, [MaxGroups]MatchGroup{}) },
		"negative consumed":       func() { NewMatch(-3, 1, [MaxGroups]MatchGroup{{Begin: 0, End: -3}}) },
		"group 0 not the span":    func() { NewMatch(2, 1, [MaxGroups]MatchGroup{{Begin: 0, End: 1}}) },
		"empty class":             func() { NewCharacterClass() },
		"oversized class":         func() { NewCharacterClass(make([]byte, MaxClassSize+1)...) },
		"oversized inverted":      func() { NewInvertedCharacterClass(make([]byte, MaxClassSize+1)...) },
		"empty concatenation":     func() { NewConcatenation() },
		"oversized concatenation": func() { NewConcatenation(tooMany...) },
		"nil member":              func() { NewConcatenation(ptr(Any()), nil) },
		"nil group":               func() { NewGroup(nil) },
		"nil optional":            func() { NewOptional(nil) },
		"zero pattern":            func() { (&Pattern{}).Match([]byte("a")) },
	}

	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			mustPanic(t, f)
		})
	}
}

func TestGroupOverflowPanics(t *testing.T) {
	members := make([]*Pattern, MaxMembers)
	for i := range members {
		members[i] = ptr(Capture(ptr(Any())))
	}
	p := Concat(members...)

	mustPanic(t, func() { p.Match([]byte("abcdefghijklmnopq")) })
}

func TestMatchDoesNotAllocate(t *testing.T) {
	in := []byte("abcabc")
	p := nestedGroups()
	q := ptr(Concat(ptr(Class('x', 'a')), ptr(Maybe(ptr(NotClass('c')))), ptr(Capture(ptr(Any())))))
	dst := make([]Located, 0, 8)

	allocs := testing.AllocsPerRun(100, func() {
		p.Match(in)
		q.Match(in)
		dst = p.FindAll(in, -1, dst[:0])
	})
	if allocs != 0 {
		t.Errorf("matching allocated %v times per run", allocs)
	}
}

func TestConcurrentMatch(t *testing.T) {
	p := nestedGroups()
	in := []byte("abc")
	want := p.Match(in)

	var wg sync.WaitGroup
	results := make([]Match, 16)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.Match(in)
		}()
	}
	wg.Wait()

	for i, got := range results {
		if d := cmp.Diff(want, got); d != "" {
			t.Errorf("goroutine %d got diff (-want +got):\n%s", i, d)
		}
	}
}
