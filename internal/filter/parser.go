package filter

import (
	"strconv"
	"strings"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// Parse compiles a filter expression string into an Expr tree.
func Parse(src string) (Expr, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, &ierr.ParseError{Offset: p.cur().offset, Kind: ierr.TrailingInput}
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// parseExpr implements Expr := (MatchExpr | BlockExpr) { LogOp (MatchExpr
// | BlockExpr) }, pivoting the tree left-associatively on each LogOp.
func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	for p.cur().kind == tokLogOp {
		op := p.advance()
		logicOp := LogicAnd
		if op.text == "or" {
			logicOp = LogicOr
		}

		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}

		left = &LogicExpr{Op: logicOp, Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseOperand() (Expr, error) {
	if p.cur().kind == tokOpenBlock {
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokCloseBlock {
			return nil, &ierr.ParseError{Offset: p.cur().offset, Kind: ierr.ExpectedCloseBlock}
		}
		p.advance()
		return inner, nil
	}
	return p.parseMatchExpr()
}

func (p *parser) parseMatchExpr() (Expr, error) {
	if p.cur().kind != tokIdent {
		return nil, &ierr.ParseError{Offset: p.cur().offset, Kind: ierr.ExpectedIdent}
	}
	ident := p.advance()

	if p.cur().kind != tokOp {
		return nil, &ierr.ParseError{Offset: p.cur().offset, Kind: ierr.ExpectedOp}
	}
	opTok := p.advance()
	op, err := matchOpFromText(opTok.text)
	if err != nil {
		return nil, &ierr.ParseError{Offset: opTok.offset, Kind: ierr.ExpectedOp}
	}

	litTok := p.cur()
	if litTok.kind != tokString && litTok.kind != tokNumber && litTok.kind != tokRange {
		return nil, &ierr.ParseError{Offset: litTok.offset, Kind: ierr.ExpectedLiteral}
	}
	p.advance()

	m := &MatchExpr{Attr: ident.text, Op: op, Literal: litTok.text}

	if op == OpBetween {
		lo, hi, err := parseRange(litTok.text)
		if err != nil {
			return nil, &ierr.ParseError{Offset: litTok.offset, Kind: ierr.ExpectedLiteral}
		}
		m.betweenLo, m.betweenHi = lo, hi
	}

	return m, nil
}

func matchOpFromText(text string) (MatchOp, error) {
	switch text {
	case "==", "=":
		return OpEQ, nil
	case "!=":
		return OpNE, nil
	case "=~":
		return OpRegexMatch, nil
	case "!~":
		return OpRegexNoMatch, nil
	case "<":
		return OpLT, nil
	case ">":
		return OpGT, nil
	case "<=":
		return OpLE, nil
	case ">=":
		return OpGE, nil
	case "#":
		return OpContains, nil
	case "!#":
		return OpContainsNot, nil
	case "between":
		return OpBetween, nil
	default:
		return 0, ierr.New(ierr.KindFilterParse, "unknown operator "+strconv.Quote(text))
	}
}

func parseRange(text string) (int, int, error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return 0, 0, ierr.New(ierr.KindFilterParse, "range literal missing ':'")
	}
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}
