// Package expr validates and evaluates player-submitted arithmetic
// expressions. Submissions arrive over the wire from untrusted clients, so
// evaluation is a dedicated tokenizer + recursive descent parser restricted
// to digits, the four binary operators and parentheses. Nothing here ever
// executes the submitted text.
package expr

import (
	"math"
	"slices"
	"strconv"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/errors"
)

const (
	// Target is the value every round is solved towards.
	Target = 24

	// TargetTolerance bounds |result - Target| for a solve. The solvability
	// search uses the same constant, so a puzzle it accepts is always
	// winnable by an equivalent player expression.
	TargetTolerance = 1e-4

	// ZeroEpsilon guards divisions. Divisors closer to zero than this are
	// rejected everywhere, evaluator and solvability search alike.
	ZeroEpsilon = 1e-6
)

// SolvesTarget reports whether v counts as 24 under the shared tolerance.
func SolvesTarget(v float64) bool {
	return math.Abs(v-Target) <= TargetTolerance
}

// NearZero reports whether v is too close to zero to divide by.
func NearZero(v float64) bool {
	return math.Abs(v) < ZeroEpsilon
}

// Validate checks a submitted expression against the round's numbers.
// All failure modes return CodeInvalidArgument; callers surface them to the
// submitter as a single "invalid solution" signal.
//
// The checks, in order:
//  1. grammar: only digits, + - * /, parentheses and whitespace
//  2. usage: the integer literals must match the puzzle as a multiset
//  3. syntax: the expression must parse as well-formed arithmetic
//  4. evaluation: standard precedence, division by ~zero rejected
//  5. goal: the result must be within TargetTolerance of 24
func Validate(numbers domain.Puzzle, expression string) error {
	toks, err := tokenize(expression)
	if err != nil {
		return err
	}

	if err := checkUsage(numbers, toks); err != nil {
		return err
	}

	v, err := (&parser{toks: toks}).eval()
	if err != nil {
		return err
	}

	if !SolvesTarget(v) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("expression evaluates to %v, not %d", v, Target))
	}

	return nil
}

// Evaluate parses and evaluates an expression without checking it against a
// puzzle. Exposed for tooling and tests.
func Evaluate(expression string) (float64, error) {
	toks, err := tokenize(expression)
	if err != nil {
		return 0, err
	}

	return (&parser{toks: toks}).eval()
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOperator
	tokLeftParen
	tokRightParen
)

type token struct {
	kind tokenKind
	op   byte
	num  float64
	lit  int
}

func tokenize(s string) ([]token, error) {
	var toks []token

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c >= '0' && c <= '9':
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(s[i:j])
			if err != nil {
				return nil, errors.New(errors.CodeInvalidArgument,
					errors.WithMessagef("bad number literal %q", s[i:j]),
					errors.WithCause(err))
			}
			toks = append(toks, token{kind: tokNumber, num: float64(n), lit: n})
			i = j

		case c == '+' || c == '-' || c == '*' || c == '/':
			toks = append(toks, token{kind: tokOperator, op: c})
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLeftParen})
			i++

		case c == ')':
			toks = append(toks, token{kind: tokRightParen})
			i++

		default:
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("illegal character %q in expression", c))
		}
	}

	if len(toks) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("empty expression"))
	}

	return toks, nil
}

// checkUsage enforces that the literals of the expression are exactly the
// puzzle's numbers, duplicates counted. Puzzle [1,1,2,3] requires literals
// {1,1,2,3}; {1,2,2,3} is rejected no matter what it evaluates to.
func checkUsage(numbers domain.Puzzle, toks []token) error {
	var used []int
	for _, t := range toks {
		if t.kind == tokNumber {
			used = append(used, t.lit)
		}
	}

	if len(used) != domain.PuzzleSize {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("expression uses %d numbers, want %d", len(used), domain.PuzzleSize))
	}

	want := slices.Clone(numbers[:])
	slices.Sort(want)
	slices.Sort(used)

	if !slices.Equal(used, want) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("expression numbers %v do not match the puzzle %v", used, want))
	}

	return nil
}

// parser is a recursive descent evaluator over the token stream:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "(" expr ")"
//
// Same-precedence operators associate left. Unary operators are not part of
// the grammar; every + - * / is binary.
type parser struct {
	toks []token
	pos  int
}

func (p *parser) eval() (float64, error) {
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}

	if p.pos != len(p.toks) {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unexpected trailing tokens in expression"))
	}

	return v, nil
}

func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.acceptOperator('+', '-')
		if !ok {
			return v, nil
		}

		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}

		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.acceptOperator('*', '/')
		if !ok {
			return v, nil
		}

		rhs, err := p.parseFactor()
		if err != nil {
			return 0, err
		}

		if op == '*' {
			v *= rhs
			continue
		}

		if NearZero(rhs) {
			return 0, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("division by zero"))
		}
		v /= rhs
	}
}

func (p *parser) parseFactor() (float64, error) {
	if p.pos >= len(p.toks) {
		return 0, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("unexpected end of expression"))
	}

	t := p.toks[p.pos]
	switch t.kind {
	case tokNumber:
		p.pos++
		return t.num, nil

	case tokLeftParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokRightParen {
			return 0, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("missing closing parenthesis"))
		}
		p.pos++
		return v, nil
	}

	return 0, errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("unexpected token at position %d", p.pos))
}

func (p *parser) acceptOperator(ops ...byte) (byte, bool) {
	if p.pos >= len(p.toks) {
		return 0, false
	}

	t := p.toks[p.pos]
	if t.kind != tokOperator {
		return 0, false
	}

	for _, op := range ops {
		if t.op == op {
			p.pos++
			return op, true
		}
	}

	return 0, false
}
