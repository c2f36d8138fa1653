package filter

// Matcher wraps a compiled Expr so it satisfies parser.IgnoreMatcher
// without parser needing to import this package's Record/Expr types
// directly, keeping ignore-rule compilation decoupled from acquisition.
type Matcher struct {
	Expr Expr
}

// Matches adapts rec (expected to be a Record) to Expr.Eval.
func (m Matcher) Matches(rec interface{}) (bool, error) {
	r, ok := rec.(Record)
	if !ok {
		return false, nil
	}
	return m.Expr.Eval(r)
}
