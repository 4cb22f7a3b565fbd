// Package arith evaluates the small calculator language accepted by the chat
// assistant: decimal numbers, + - * / ^, parentheses and sqrt(...).
//
// Expressions are parsed, never executed as code. Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | "(" expr ")" | "sqrt" "(" expr ")"
package arith

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrSyntax reports input that is not a valid expression.
	ErrSyntax = errors.New("arith: syntax error")
	// ErrNotFinite reports an expression whose value is infinite or NaN.
	ErrNotFinite = errors.New("arith: result is not finite")
)

var (
	allowedPattern = regexp.MustCompile(`^[\d\s+\-*/().^a-z]+$`)
	digitPattern   = regexp.MustCompile(`\d`)
)

// Accepts reports whether s passes the calculator pre-filter: only digits,
// whitespace, operators, parentheses, dots and lower-case letters, with at
// least one digit.
func Accepts(s string) bool {
	return allowedPattern.MatchString(s) && digitPattern.MatchString(s)
}

// Eval evaluates s and returns a finite result.
func Eval(s string) (float64, error) {
	toks, err := lex(s)
	if err != nil {
		return 0, err
	}
	p := &parser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokEOF {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.peek().text, p.peek().pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// Format renders v the way the assistant prints results: integers without a
// fractional part, everything else in shortest round-trip form.
func Format(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNum
	tokOp
	tokLParen
	tokRParen
	tokIdent
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

func lex(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case isDigit(c) || c == '.':
			start := i
			for i < len(s) && isDigit(s[i]) {
				i++
			}
			if i < len(s) && s[i] == '.' {
				i++
				for i < len(s) && isDigit(s[i]) {
					i++
				}
			}
			text := s[start:i]
			if text == "." {
				return nil, fmt.Errorf("%w: lone '.' at %d", ErrSyntax, start)
			}
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrSyntax, text)
			}
			toks = append(toks, token{kind: tokNum, text: text, num: n, pos: start})
		case strings.IndexByte("+-*/^", c) >= 0:
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c >= 'a' && c <= 'z':
			start := i
			for i < len(s) && s[i] >= 'a' && s[i] <= 'z' {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: s[start:i], pos: start})
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, c, i)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(s)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(ops string) bool {
	t := p.peek()
	return t.kind == tokOp && strings.Contains(ops, t.text)
}

func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for p.isOp("+-") {
		op := p.next().text
		rhs, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
	return v, nil
}

func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for p.isOp("*/") {
		op := p.next().text
		rhs, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == "*" {
			v *= rhs
		} else {
			v /= rhs
		}
	}
	return v, nil
}

func (p *parser) unary() (float64, error) {
	if p.isOp("+-") {
		op := p.next().text
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *parser) primary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return t.num, nil
	case tokLParen:
		return p.group()
	case tokIdent:
		if t.text != "sqrt" {
			return 0, fmt.Errorf("%w: unknown identifier %q", ErrSyntax, t.text)
		}
		if p.next().kind != tokLParen {
			return 0, fmt.Errorf("%w: sqrt requires parentheses", ErrSyntax)
		}
		v, err := p.group()
		if err != nil {
			return 0, err
		}
		return math.Sqrt(v), nil
	case tokEOF:
		return 0, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	default:
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, t.text, t.pos)
	}
}

// group parses the remainder of a parenthesised expression; the opening
// parenthesis has already been consumed.
func (p *parser) group() (float64, error) {
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.next().kind != tokRParen {
		return 0, fmt.Errorf("%w: missing ')'", ErrSyntax)
	}
	return v, nil
}
