package pep508

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	version "github.com/aquasecurity/go-pep440-version"
)

var (
	// ErrUndefinedVariable is returned when a marker references a variable
	// the environment does not define.
	ErrUndefinedVariable = errors.New("undefined environment variable")

	// ErrUndefinedComparison is returned when an operator cannot be applied
	// to its operands, e.g. "~=" against a non-version string.
	ErrUndefinedComparison = errors.New("undefined comparison")
)

// Op is a marker comparison operator.
type Op string

const (
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
	OpGreaterEqual Op = ">="
	OpGreater      Op = ">"
	OpCompatible   Op = "~="
	OpArbitrary    Op = "==="
	OpIn           Op = "in"
	OpNotIn        Op = "not in"
)

// Marker is a parsed environment marker. The zero value is not usable;
// obtain one from [ParseMarker].
type Marker struct {
	root node
}

// ParseMarker parses a marker expression such as
// `python_version < "3.11" and platform_system != "Windows"`.
func ParseMarker(s string) (*Marker, error) {
	p := &markerParser{lex: newLexer(s)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokEOF {
		return nil, p.errorf("empty marker")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s", p.tok)
	}
	return &Marker{root: root}, nil
}

// Evaluate reports whether the marker holds in env. Every comparison is
// evaluated, so an undefined variable is reported even when the other side
// of an "or" would already decide the result.
func (m *Marker) Evaluate(env Environment) (bool, error) {
	return m.root.eval(env)
}

// String returns the canonical form of the marker.
func (m *Marker) String() string {
	return m.root.String()
}

// Variables lists the environment variables the marker reads, in order of
// first appearance.
func (m *Marker) Variables() []string {
	var out []string
	seen := map[string]bool{}
	m.root.walk(func(c *comparison) {
		for _, v := range []operand{c.lhs, c.rhs} {
			if v.variable && !seen[v.value] {
				seen[v.value] = true
				out = append(out, v.value)
			}
		}
	})
	return out
}

type node interface {
	eval(Environment) (bool, error)
	walk(func(*comparison))
	String() string
}

type boolOp struct {
	or          bool
	left, right node
}

func (b *boolOp) eval(env Environment) (bool, error) {
	l, err := b.left.eval(env)
	if err != nil {
		return false, err
	}
	r, err := b.right.eval(env)
	if err != nil {
		return false, err
	}
	if b.or {
		return l || r, nil
	}
	return l && r, nil
}

func (b *boolOp) walk(fn func(*comparison)) {
	b.left.walk(fn)
	b.right.walk(fn)
}

func (b *boolOp) String() string {
	kw := "and"
	if b.or {
		kw = "or"
	}
	return b.left.String() + " " + kw + " " + b.right.String()
}

type group struct{ inner node }

func (g *group) eval(env Environment) (bool, error) { return g.inner.eval(env) }
func (g *group) walk(fn func(*comparison))         { g.inner.walk(fn) }
func (g *group) String() string                    { return "(" + g.inner.String() + ")" }

type operand struct {
	value    string
	variable bool
}

func (o operand) resolve(env Environment) (string, error) {
	if !o.variable {
		return o.value, nil
	}
	v, ok := env.Lookup(o.value)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndefinedVariable, o.value)
	}
	return v, nil
}

func (o operand) String() string {
	if o.variable {
		return o.value
	}
	if strings.Contains(o.value, `"`) {
		return "'" + o.value + "'"
	}
	return `"` + o.value + `"`
}

type comparison struct {
	lhs, rhs operand
	op       Op
}

func (c *comparison) walk(fn func(*comparison)) { fn(c) }

func (c *comparison) String() string {
	return c.lhs.String() + " " + string(c.op) + " " + c.rhs.String()
}

func (c *comparison) eval(env Environment) (bool, error) {
	lhs, err := c.lhs.resolve(env)
	if err != nil {
		return false, err
	}
	rhs, err := c.rhs.resolve(env)
	if err != nil {
		return false, err
	}
	if c.readsExtra() {
		lhs, rhs = normalizeExtra(lhs), normalizeExtra(rhs)
	}
	return compare(lhs, c.op, rhs)
}

func (c *comparison) readsExtra() bool {
	return (c.lhs.variable && c.lhs.value == Extra) || (c.rhs.variable && c.rhs.value == Extra)
}

var extraSepRE = regexp.MustCompile(`[-_.]+`)

// normalizeExtra applies PEP 685 name normalization to extra names.
func normalizeExtra(s string) string {
	return strings.ToLower(extraSepRE.ReplaceAllString(s, "-"))
}

// compare applies op to two resolved values. Version operators compare as
// PEP 440 versions when both sides parse; otherwise they fall back to plain
// string comparison.
func compare(lhs string, op Op, rhs string) (bool, error) {
	if op == OpArbitrary {
		return strings.EqualFold(lhs, rhs), nil
	}
	if ok, handled := compareVersions(lhs, op, rhs); handled {
		return ok, nil
	}
	switch op {
	case OpIn:
		return strings.Contains(rhs, lhs), nil
	case OpNotIn:
		return !strings.Contains(rhs, lhs), nil
	case OpEqual:
		return lhs == rhs, nil
	case OpNotEqual:
		return lhs != rhs, nil
	case OpLess:
		return lhs < rhs, nil
	case OpLessEqual:
		return lhs <= rhs, nil
	case OpGreater:
		return lhs > rhs, nil
	case OpGreaterEqual:
		return lhs >= rhs, nil
	}
	return false, fmt.Errorf("%w: %q %s %q", ErrUndefinedComparison, lhs, op, rhs)
}

func compareVersions(lhs string, op Op, rhs string) (result, handled bool) {
	if op == OpIn || op == OpNotIn {
		return false, false
	}
	specs, err := version.NewSpecifiers(string(op)+rhs, version.WithPreRelease(true))
	if err != nil {
		return false, false
	}
	v, err := version.Parse(lhs)
	if err != nil {
		return false, false
	}
	return specs.Check(v), true
}

// =============================================================================
// Parser
// =============================================================================

type markerParser struct {
	lex *lexer
	tok token
}

func (p *markerParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *markerParser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.lex.src, Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *markerParser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolOp{or: true, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = &boolOp{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (node, error) {
	if p.tok.kind != tokLParen {
		return p.parseComparison()
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokRParen {
		return nil, p.errorf("expected ')', got %s", p.tok)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &group{inner: inner}, nil
}

func (p *markerParser) parseComparison() (node, error) {
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &comparison{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	t := p.tok
	switch t.kind {
	case tokString:
		return operand{value: t.text}, p.advance()
	case tokIdent:
		name, ok := CanonicalVariable(t.text)
		if !ok {
			return operand{}, p.errorf("unknown marker variable %q", t.text)
		}
		return operand{value: name, variable: true}, p.advance()
	}
	return operand{}, p.errorf("expected variable or quoted string, got %s", t)
}

func (p *markerParser) parseOp() (Op, error) {
	switch p.tok.kind {
	case tokOp:
		op := Op(p.tok.text)
		return op, p.advance()
	case tokIn:
		return OpIn, p.advance()
	case tokNot:
		if err := p.advance(); err != nil {
			return "", err
		}
		if p.tok.kind != tokIn {
			return "", p.errorf("expected 'in' after 'not', got %s", p.tok)
		}
		return OpNotIn, p.advance()
	}
	return "", p.errorf("expected comparison operator, got %s", p.tok)
}
