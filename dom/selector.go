package dom

import "fmt"

// Selector is a compiled selector expression, reusable across queries.
//
// The supported grammar covers the selectors components mount against:
// tag names, "*", "#id", ".class", "[attr]", "[attr=value]" with
// optional quotes, compounds of those, the descendant and ">" child
// combinators, and comma-separated lists. Matching never crosses an
// isolation boundary.
type Selector struct {
	expr string
	sels []complexSelector
}

type complexSelector struct {
	parts []compound
	// combs[i] joins parts[i] to parts[i+1]: ' ' descendant, '>' child.
	combs []byte
}

type compound struct {
	tag     string // "" matches any element
	ids     []string
	classes []string
	attrs   []attrCheck
}

type attrCheck struct {
	key    string
	val    string
	hasVal bool
}

// CompileSelector parses a selector expression.
func CompileSelector(expr string) (*Selector, error) {
	p := &selParser{expr: expr}
	p.skipSpace()
	if p.eof() {
		return nil, NewSelectorError(expr, "empty selector")
	}
	s := &Selector{expr: expr}
	for {
		cs, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		s.sels = append(s.sels, cs)
		p.skipSpace()
		if p.eof() {
			return s, nil
		}
		if p.peek() != ',' {
			return nil, p.errUnexpected()
		}
		p.pos++
		p.skipSpace()
		if p.eof() {
			return nil, NewSelectorError(expr, "selector expected after comma")
		}
	}
}

// MustSelector is CompileSelector for expressions known at compile
// time; it panics on error.
func MustSelector(expr string) *Selector {
	s, err := CompileSelector(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the source expression.
func (s *Selector) String() string { return s.expr }

// Matches reports whether the element matches the selector.
func (s *Selector) Matches(n *Node) bool {
	if n == nil || n.kind != KindElement {
		return false
	}
	for _, cs := range s.sels {
		if matchComplex(cs, n) {
			return true
		}
	}
	return false
}

// First returns the first matching element among scope's descendants in
// tree order, or nil. The scope node itself is not considered.
func (s *Selector) First(scope *Node) *Node {
	var found *Node
	var walk func(*Node) bool
	walk = func(n *Node) bool {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if s.Matches(c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(scope)
	return found
}

// All returns every matching element among scope's descendants in tree
// order.
func (s *Selector) All(scope *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if s.Matches(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(scope)
	return out
}

// QuerySelector returns the first descendant matching the expression,
// in tree order, or nil without error when nothing matches.
func (n *Node) QuerySelector(expr string) (*Node, error) {
	s, err := CompileSelector(expr)
	if err != nil {
		return nil, err
	}
	return s.First(n), nil
}

// QuerySelectorAll returns all descendants matching the expression in
// tree order.
func (n *Node) QuerySelectorAll(expr string) ([]*Node, error) {
	s, err := CompileSelector(expr)
	if err != nil {
		return nil, err
	}
	return s.All(n), nil
}

// Matches reports whether the node itself matches the expression.
func (n *Node) Matches(expr string) (bool, error) {
	s, err := CompileSelector(expr)
	if err != nil {
		return false, err
	}
	return s.Matches(n), nil
}

// Closest returns the nearest inclusive ancestor matching the
// expression, staying within the node's own tree, or nil.
func (n *Node) Closest(expr string) (*Node, error) {
	s, err := CompileSelector(expr)
	if err != nil {
		return nil, err
	}
	for cur := n; cur != nil; cur = cur.parent {
		if s.Matches(cur) {
			return cur, nil
		}
	}
	return nil, nil
}

func matchComplex(cs complexSelector, n *Node) bool {
	last := len(cs.parts) - 1
	if !matchCompound(cs.parts[last], n) {
		return false
	}
	return matchLeft(cs, last-1, n.parent)
}

// matchLeft matches parts[i] against ancestors of the node that
// satisfied parts[i+1], honoring the combinator between them. The climb
// may pass above the query scope; ancestors outside it still count.
func matchLeft(cs complexSelector, i int, n *Node) bool {
	if i < 0 {
		return true
	}
	if cs.combs[i] == '>' {
		if n == nil || n.kind != KindElement {
			return false
		}
		return matchCompound(cs.parts[i], n) && matchLeft(cs, i-1, n.parent)
	}
	for cur := n; cur != nil; cur = cur.parent {
		if cur.kind == KindElement && matchCompound(cs.parts[i], cur) && matchLeft(cs, i-1, cur.parent) {
			return true
		}
	}
	return false
}

func matchCompound(c compound, n *Node) bool {
	if c.tag != "" && n.data != c.tag {
		return false
	}
	for _, id := range c.ids {
		if n.ID() != id {
			return false
		}
	}
	for _, cls := range c.classes {
		if !n.HasClass(cls) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := n.Attr(a.key)
		if !ok {
			return false
		}
		if a.hasVal && v != a.val {
			return false
		}
	}
	return true
}

type selParser struct {
	expr string
	pos  int
}

func (p *selParser) eof() bool  { return p.pos >= len(p.expr) }
func (p *selParser) peek() byte { return p.expr[p.pos] }

// skipSpace consumes whitespace and reports whether any was consumed.
func (p *selParser) skipSpace() bool {
	start := p.pos
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r', '\f':
			p.pos++
		default:
			return p.pos > start
		}
	}
	return p.pos > start
}

func (p *selParser) errUnexpected() error {
	return NewSelectorError(p.expr, fmt.Sprintf("unexpected character %q at offset %d", p.peek(), p.pos))
}

func (p *selParser) parseComplex() (complexSelector, error) {
	var cs complexSelector
	c, err := p.parseCompound()
	if err != nil {
		return cs, err
	}
	cs.parts = append(cs.parts, c)
	for {
		ws := p.skipSpace()
		if p.eof() || p.peek() == ',' {
			return cs, nil
		}
		comb := byte(' ')
		if p.peek() == '>' {
			p.pos++
			p.skipSpace()
			comb = '>'
		} else if !ws {
			return cs, p.errUnexpected()
		}
		next, err := p.parseCompound()
		if err != nil {
			return cs, err
		}
		cs.combs = append(cs.combs, comb)
		cs.parts = append(cs.parts, next)
	}
}

func (p *selParser) parseCompound() (compound, error) {
	var c compound
	seen := false
	if !p.eof() {
		if p.peek() == '*' {
			p.pos++
			seen = true
		} else if isIdentByte(p.peek()) {
			c.tag = lowerASCII(p.parseIdent())
			seen = true
		}
	}
	for !p.eof() {
		switch p.peek() {
		case '#':
			p.pos++
			id := p.parseIdent()
			if id == "" {
				return c, NewSelectorError(p.expr, fmt.Sprintf("empty id at offset %d", p.pos))
			}
			c.ids = append(c.ids, id)
		case '.':
			p.pos++
			cls := p.parseIdent()
			if cls == "" {
				return c, NewSelectorError(p.expr, fmt.Sprintf("empty class at offset %d", p.pos))
			}
			c.classes = append(c.classes, cls)
		case '[':
			a, err := p.parseAttr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		default:
			if !seen {
				return c, p.errUnexpected()
			}
			return c, nil
		}
		seen = true
	}
	if !seen {
		return c, NewSelectorError(p.expr, "expected a selector")
	}
	return c, nil
}

func (p *selParser) parseAttr() (attrCheck, error) {
	var a attrCheck
	p.pos++ // '['
	p.skipSpace()
	a.key = lowerASCII(p.parseIdent())
	if a.key == "" {
		return a, NewSelectorError(p.expr, fmt.Sprintf("empty attribute name at offset %d", p.pos))
	}
	p.skipSpace()
	if p.eof() {
		return a, NewSelectorError(p.expr, "unterminated attribute selector")
	}
	switch p.peek() {
	case ']':
		p.pos++
		return a, nil
	case '=':
		p.pos++
		p.skipSpace()
		val, err := p.parseAttrValue()
		if err != nil {
			return a, err
		}
		a.val, a.hasVal = val, true
		p.skipSpace()
		if p.eof() || p.peek() != ']' {
			return a, NewSelectorError(p.expr, "unterminated attribute selector")
		}
		p.pos++
		return a, nil
	default:
		return a, p.errUnexpected()
	}
}

func (p *selParser) parseAttrValue() (string, error) {
	if p.eof() {
		return "", NewSelectorError(p.expr, "missing attribute value")
	}
	q := p.peek()
	if q == '"' || q == '\'' {
		p.pos++
		start := p.pos
		for !p.eof() {
			if p.peek() == q {
				val := p.expr[start:p.pos]
				p.pos++
				return val, nil
			}
			p.pos++
		}
		return "", NewSelectorError(p.expr, "unterminated string")
	}
	val := p.parseIdent()
	if val == "" {
		return "", NewSelectorError(p.expr, "missing attribute value")
	}
	return val, nil
}

func (p *selParser) parseIdent() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.peek()) {
		p.pos++
	}
	return p.expr[start:p.pos]
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' ||
		b >= '0' && b <= '9' || b == '-' || b == '_'
}

func lowerASCII(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b >= 'A' && b <= 'Z' {
			out[i] = b + 'a' - 'A'
		}
	}
	return string(out)
}
