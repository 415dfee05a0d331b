package pattern

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupported   = errors.New("unsupported operator")
	ErrTooManyGroups = fmt.Errorf("more than %d capture groups", MaxGroups-1)
)

type ParseError struct {
	Pos   int
	Msg   string
	Inner error
}

func (e *ParseError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("parser error at %d: %s: %v", e.Pos, e.Msg, e.Inner)
	}
	return fmt.Sprintf("parser error at %d: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Inner
}

func newParserError(i int, str string, inner error) *ParseError {
	return &ParseError{Pos: i, Msg: str, Inner: inner}
}

// Program is a compiled pattern expression. It owns every node of its pattern
// tree; the composite nodes borrow pointers into that storage.
type Program struct {
	expr   string
	root   *Pattern
	groups int
}

// Compile parses expr into a pattern tree. The notation is a small subset of
// POSIX ERE: literal bytes, '.', '\' escapes and perl sets (\d \D \w \W \s \S),
// bracket expressions with ranges and POSIX sets, '(...)' groups and the '?'
// quantifier. Repetition beyond '?', alternation and anchors are rejected.
//
// Groups are numbered in order of discovery within a single match, so a group
// under an unmatched '?' takes no slot. A group must consume at least one
// byte, so groups whose contents are all optional, like "(a?)", are rejected.
// So is "[^]", which excludes nothing.
func Compile(expr string) (*Program, error) {
	p := &parser{re: expr}
	seq, j, err := p.parseSequence(0)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", expr, err)
	}
	if j < len(expr) {
		return nil, fmt.Errorf("failed to compile %q: %w", expr, newParserError(j, "unmatched ')'", nil))
	}
	if len(seq.children) == 0 {
		return nil, fmt.Errorf("failed to compile %q: %w", expr, newParserError(0, "empty expression", nil))
	}

	var a arena
	// the root is always a concatenation so that group 0 is the overall span
	// and the first '(' is group 1
	root := a.emitSequence(seq.children, true)
	return &Program{expr: expr, root: root, groups: p.groups + 1}, nil
}

func MustCompile(expr string) *Program {
	prog, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return prog
}

func (p *Program) Root() *Pattern {
	return p.root
}

// Groups returns the number of capture groups the expression declares,
// including group 0.
func (p *Program) Groups() int {
	return p.groups
}

func (p *Program) String() string {
	return p.expr
}

func (p *Program) Match(in []byte) Match {
	return p.root.Match(in)
}

func (p *Program) Find(in []byte) (Located, bool) {
	return p.root.Find(in)
}

func (p *Program) FindAll(in []byte, maxCount int, dst []Located) []Located {
	return p.root.FindAll(in, maxCount, dst)
}

type astKind int

const (
	astAny astKind = iota
	astChar
	astClass
	astNotClass
	astSequence
	astGroup
	astOptional
)

type astNode struct {
	kind     astKind
	char     byte
	set      []byte
	children []*astNode
}

type parser struct {
	re     string
	groups int
}

// parseSequence consumes items up to a ')' or the end of the expression.
func (p *parser) parseSequence(i int) (*astNode, int, error) {
	seq := &astNode{kind: astSequence}
	j := i
	for j < len(p.re) && p.re[j] != ')' {
		item, next, err := p.parseItem(j)
		if err != nil {
			return nil, 0, err
		}
		seq.children = append(seq.children, item)
		j = next
	}
	return seq, j, nil
}

// atom followed by an optional '?'
func (p *parser) parseItem(i int) (*astNode, int, error) {
	atom, j, err := p.parseAtom(i)
	if err != nil {
		return nil, 0, err
	}
	if j < len(p.re) && p.re[j] == '?' {
		atom = &astNode{kind: astOptional, children: []*astNode{atom}}
		j++
	}
	return atom, j, nil
}

func (p *parser) parseAtom(i int) (*astNode, int, error) {
	switch c := p.re[i]; c {
	case '(':
		return p.parseGroup(i)
	case '[':
		return p.parseBracket(i)
	case '\\':
		return p.parseEscape(i)
	case '.':
		return &astNode{kind: astAny}, i + 1, nil
	case '?':
		return nil, 0, newParserError(i, "nothing to make optional", nil)
	case '*', '+', '{', '}', '|':
		return nil, 0, newParserError(i, fmt.Sprintf("'%c'", c), ErrUnsupported)
	case '^', '$':
		return nil, 0, newParserError(i, fmt.Sprintf("anchor '%c'", c), ErrUnsupported)
	case ']':
		return nil, 0, newParserError(i, "unmatched ']'", nil)
	default:
		return &astNode{kind: astChar, char: c}, i + 1, nil
	}
}

// (...)
func (p *parser) parseGroup(i int) (*astNode, int, error) {
	p.groups++
	if p.groups >= MaxGroups {
		return nil, 0, newParserError(i, "too many groups", ErrTooManyGroups)
	}

	// pop off '('
	seq, j, err := p.parseSequence(i + 1)
	if err != nil {
		return nil, 0, err
	}
	if j >= len(p.re) {
		return nil, 0, newParserError(j, "did not find closing ')'", nil)
	}
	if len(seq.children) == 0 {
		return nil, 0, newParserError(i, "empty group", nil)
	}
	if allOptional(seq.children) {
		return nil, 0, newParserError(i, "group can match nothing", nil)
	}

	// pop off ')'
	return &astNode{kind: astGroup, children: []*astNode{seq}}, j + 1, nil
}

func allOptional(children []*astNode) bool {
	for _, c := range children {
		if c.kind != astOptional {
			return false
		}
	}
	return true
}

// \d, \n, \. ...
func (p *parser) parseEscape(i int) (*astNode, int, error) {
	if i+1 >= len(p.re) {
		return nil, 0, newParserError(i, "unexpected EOS", nil)
	}

	if set, negate, ok := perlCharSet(p.re[i+1]); ok {
		kind := astClass
		if negate {
			kind = astNotClass
		}
		return &astNode{kind: kind, set: set.bytes()}, i + 2, nil
	}
	return &astNode{kind: astChar, char: escapedChar(p.re[i+1])}, i + 2, nil
}

// [...] and [^...]
// '\' escapes inside of brackets, so '^', '-', ']' and '\' have to be escaped
// to be taken literally
func (p *parser) parseBracket(i int) (*astNode, int, error) {
	// pop off '['
	j := i + 1

	negate := j < len(p.re) && p.re[j] == '^'
	if negate {
		j++
	}

	var set byteSet
	for j < len(p.re) && p.re[j] != ']' {
		switch {
		case p.re[j] == '[':
			rs, cons := posixCharSet(p.re[j:])
			if cons == 0 {
				return nil, 0, newParserError(j, "invalid POSIX character set", nil)
			}
			set.union(rs)
			j += cons
		case p.re[j] == '\\':
			if j+1 >= len(p.re) {
				return nil, 0, newParserError(j, "unexpected EOS", nil)
			}
			if ps, neg, ok := perlCharSet(p.re[j+1]); ok {
				if neg {
					ps = ps.complement()
				}
				set.union(ps)
			} else {
				c := escapedChar(p.re[j+1])
				set.addRange(c, c)
			}
			j += 2
		case j+2 < len(p.re) && p.re[j+1] == '-' && p.re[j+2] != ']':
			from, to := p.re[j], p.re[j+2]
			if from > to {
				return nil, 0, newParserError(j, fmt.Sprintf("invalid range %c-%c", from, to), nil)
			}
			set.addRange(from, to)
			j += 3
		default:
			set.addRange(p.re[j], p.re[j])
			j++
		}
	}

	if j >= len(p.re) {
		return nil, 0, newParserError(j, "did not find closing ']'", nil)
	}

	// pop off ]
	j++

	if set.empty() {
		return nil, 0, newParserError(i, "empty bracket expression", nil)
	}
	if negate {
		return &astNode{kind: astNotClass, set: set.bytes()}, j, nil
	}
	return &astNode{kind: astClass, set: set.bytes()}, j, nil
}

type byteSet [256]bool

func (s *byteSet) addRange(from, to byte) {
	for c := int(from); c <= int(to); c++ {
		s[c] = true
	}
}

func (s *byteSet) union(o byteSet) {
	for c, in := range o {
		if in {
			s[c] = true
		}
	}
}

func (s byteSet) complement() byteSet {
	for c := range s {
		s[c] = !s[c]
	}
	return s
}

func (s *byteSet) empty() bool {
	for _, in := range s {
		if in {
			return false
		}
	}
	return true
}

func (s *byteSet) bytes() []byte {
	var out []byte
	for c, in := range s {
		if in {
			out = append(out, byte(c))
		}
	}
	return out
}

func rangesSet(ranges ...[2]byte) byteSet {
	var s byteSet
	for _, r := range ranges {
		s.addRange(r[0], r[1])
	}
	return s
}

var (
	wordSet  = rangesSet([2]byte{'a', 'z'}, [2]byte{'A', 'Z'}, [2]byte{'0', '9'}, [2]byte{'_', '_'})
	digitSet = rangesSet([2]byte{'0', '9'})
	spaceSet = rangesSet([2]byte{' ', ' '}, [2]byte{'\t', '\r'})
)

var posixSets = map[string]byteSet{
	"[:word:]":   wordSet,
	"[:alnum:]":  rangesSet([2]byte{'a', 'z'}, [2]byte{'A', 'Z'}, [2]byte{'0', '9'}),
	"[:alpha:]":  rangesSet([2]byte{'a', 'z'}, [2]byte{'A', 'Z'}),
	"[:ascii:]":  rangesSet([2]byte{0x0, 0x7f}),
	"[:blank:]":  rangesSet([2]byte{' ', ' '}, [2]byte{'\t', '\t'}),
	"[:cntrl:]":  rangesSet([2]byte{0x0, 0x1f}, [2]byte{0x7f, 0x7f}),
	"[:digit:]":  digitSet,
	"[:graph:]":  rangesSet([2]byte{0x21, 0x7e}),
	"[:lower:]":  rangesSet([2]byte{'a', 'z'}),
	"[:print:]":  rangesSet([2]byte{0x20, 0x7e}),
	"[:punct:]":  rangesSet([2]byte{'!', '/'}, [2]byte{':', '@'}, [2]byte{'[', '`'}, [2]byte{'{', '~'}),
	"[:space:]":  spaceSet,
	"[:upper:]":  rangesSet([2]byte{'A', 'Z'}),
	"[:xdigit:]": rangesSet([2]byte{'A', 'F'}, [2]byte{'a', 'f'}, [2]byte{'0', '9'}),
}

// posixCharSet parses a set like [:digit:] at the start of re and reports how
// many bytes it spans, 0 if there is none.
func posixCharSet(re string) (byteSet, int) {
	end := strings.Index(re, ":]")
	if !strings.HasPrefix(re, "[:") || end == -1 {
		return byteSet{}, 0
	}
	set, ok := posixSets[re[:end+2]]
	if !ok {
		return byteSet{}, 0
	}
	return set, end + 2
}

// supported: \w, \W, \d, \D, \s, \S
func perlCharSet(c byte) (set byteSet, negate bool, ok bool) {
	switch c {
	case 'w', 'W':
		return wordSet, c == 'W', true
	case 'd', 'D':
		return digitSet, c == 'D', true
	case 's', 'S':
		return spaceSet, c == 'S', true
	}
	return byteSet{}, false, false
}

// parse an ASCII escape sequence from c if there is one (e.g. '\t', '\n', ...)
// if c isn't an ASCII escape sequence, return c
// should be called if the character preceding c in the input string is '\'
func escapedChar(c byte) byte {
	switch c {
	case 'a':
		return '\a'
	case 'e':
		return 0x1b
	case 'f':
		return '\f'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'v':
		return '\v'
	}
	return c
}

const arenaBlockSize = 32

// arena hands out pattern nodes from fixed-size blocks. A full block is never
// grown, so pointers into it stay valid.
type arena struct {
	block []Pattern
}

func (a *arena) new(p Pattern) *Pattern {
	if len(a.block) == cap(a.block) {
		a.block = make([]Pattern, 0, arenaBlockSize)
	}
	a.block = append(a.block, p)
	return &a.block[len(a.block)-1]
}

func (a *arena) emit(n *astNode) *Pattern {
	switch n.kind {
	case astAny:
		return a.new(Any())
	case astChar:
		return a.new(Char(n.char))
	case astClass:
		return a.new(Class(n.set...))
	case astNotClass:
		return a.new(NotClass(n.set...))
	case astSequence:
		return a.emitSequence(n.children, false)
	case astGroup:
		return a.new(Capture(a.emit(n.children[0])))
	case astOptional:
		return a.new(Maybe(a.emit(n.children[0])))
	default:
		panic("unexpected ast kind")
	}
}

// emitSequence builds a concatenation of children, nesting concatenations
// when there are more than MaxMembers. A lone child is returned as is unless
// forceConcat is set.
func (a *arena) emitSequence(children []*astNode, forceConcat bool) *Pattern {
	if len(children) == 1 && !forceConcat {
		return a.emit(children[0])
	}

	members := make([]*Pattern, len(children))
	for i, c := range children {
		members[i] = a.emit(c)
	}
	for len(members) > MaxMembers {
		var chunked []*Pattern
		for start := 0; start < len(members); start += MaxMembers {
			end := min(start+MaxMembers, len(members))
			if end-start == 1 {
				chunked = append(chunked, members[start])
				continue
			}
			chunked = append(chunked, a.new(Concat(members[start:end]...)))
		}
		members = chunked
	}
	return a.new(Concat(members...))
}
