package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// Eval evaluates this leaf against rec, raising AttributeUnavailable if
// rec doesn't carry the attribute at all (a hard failure, not a silent
// non-match).
func (m *MatchExpr) Eval(rec Record) (bool, error) {
	if !rec.HasAttribute(m.Attr) {
		return false, ierr.ErrAttributeUnavailable
	}
	value := rec.GetAttribute(m.Attr)

	switch m.Op {
	case OpEQ:
		return compareEquality(value, m.Literal, true), nil
	case OpNE:
		return compareEquality(value, m.Literal, false), nil
	case OpRegexMatch, OpRegexNoMatch:
		re, err := m.regex()
		if err != nil {
			return false, err
		}
		matched := re.MatchString(value)
		if m.Op == OpRegexNoMatch {
			return !matched, nil
		}
		return matched, nil
	case OpLT, OpGT, OpLE, OpGE:
		return compareNumeric(value, m.Literal, m.Op)
	case OpContains, OpContainsNot:
		contains := tokenContains(value, unquote(m.Literal))
		if m.Op == OpContainsNot {
			return !contains, nil
		}
		return contains, nil
	case OpBetween:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return false, ierr.ErrAttributeUnavailable
		}
		lo, hi := m.betweenLo, m.betweenHi
		if lo > hi {
			lo, hi = hi, lo
		}
		return n >= lo && n <= hi, nil
	default:
		return false, ierr.New(ierr.KindFilterEval, "unhandled operator")
	}
}

func (m *MatchExpr) regex() (*regexp.Regexp, error) {
	if m.compiledRegex != nil {
		return m.compiledRegex, nil
	}
	re, err := regexp.Compile("(?i)" + unquote(m.Literal))
	if err != nil {
		return nil, ierr.ErrInvalidRegex.WithCause(err)
	}
	m.compiledRegex = re
	return re, nil
}

// compareEquality compares attribute and literal numerically when both
// parse as integers, falling back to a string comparison otherwise.
func compareEquality(attr, literal string, wantEqual bool) bool {
	lit := unquote(literal)
	if an, aerr := strconv.Atoi(strings.TrimSpace(attr)); aerr == nil {
		if ln, lerr := strconv.Atoi(strings.TrimSpace(lit)); lerr == nil {
			eq := an == ln
			if wantEqual {
				return eq
			}
			return !eq
		}
	}
	eq := attr == lit
	if wantEqual {
		return eq
	}
	return !eq
}

func compareNumeric(attr, literal string, op MatchOp) (bool, error) {
	an, aerr := strconv.ParseFloat(strings.TrimSpace(attr), 64)
	if aerr != nil {
		return false, ierr.ErrAttributeUnavailable
	}
	ln, lerr := strconv.ParseFloat(strings.TrimSpace(unquote(literal)), 64)
	if lerr != nil {
		return false, ierr.ErrAttributeUnavailable
	}

	switch op {
	case OpLT:
		return an < ln, nil
	case OpGT:
		return an > ln, nil
	case OpLE:
		return an <= ln, nil
	case OpGE:
		return an >= ln, nil
	default:
		return false, ierr.New(ierr.KindFilterEval, "unhandled numeric operator")
	}
}

func tokenContains(value, token string) bool {
	for _, tok := range strings.Fields(value) {
		if tok == token {
			return true
		}
	}
	return false
}

// unquote is a defensive no-op for literal text coming out of the lexer
// (string tokens are already dequoted there); kept so callers don't need
// to know which token kind a literal came from.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
