package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

func TestParseAndEvalEquality(t *testing.T) {
	expr, err := Parse(`title == "hello"`)
	require.NoError(t, err)

	ok, err := expr.Eval(MapRecord{"title": "hello"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = expr.Eval(MapRecord{"title": "world"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadCountScenario(t *testing.T) {
	expr, err := Parse(`unread_count != "0"`)
	require.NoError(t, err)

	records := []MapRecord{
		{"unread_count": "0"},
		{"unread_count": "0"},
		{"unread_count": "1"},
	}

	var matched int
	for _, r := range records {
		ok, err := expr.Eval(r)
		require.NoError(t, err)
		if ok {
			matched++
		}
	}
	assert.Equal(t, 1, matched)
}

func TestInvertedBetweenRange(t *testing.T) {
	expr, err := Parse(`AAAA between 12346:12344`)
	require.NoError(t, err)

	ok, err := expr.Eval(MapRecord{"AAAA": "12345"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContainsWholeToken(t *testing.T) {
	record := MapRecord{"tags": "foo bar baz quux"}

	exprFoo, err := Parse(`tags # "foo"`)
	require.NoError(t, err)
	ok, err := exprFoo.Eval(record)
	require.NoError(t, err)
	assert.True(t, ok)

	exprFooBar, err := Parse(`tags # "foo bar"`)
	require.NoError(t, err)
	ok, err = exprFooBar.Eval(record)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttributeUnavailableHardFail(t *testing.T) {
	expr, err := Parse(`missing == "x"`)
	require.NoError(t, err)

	_, err = expr.Eval(MapRecord{"title": "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrAttributeUnavailable)
}

func TestLogicShortCircuit(t *testing.T) {
	expr, err := Parse(`title == "x" and missing == "y"`)
	require.NoError(t, err)

	// Left is false, so And short-circuits before touching "missing".
	ok, err := expr.Eval(MapRecord{"title": "z"})
	require.NoError(t, err)
	assert.False(t, ok)

	expr2, err := Parse(`title == "x" or missing == "y"`)
	require.NoError(t, err)

	ok, err = expr2.Eval(MapRecord{"title": "x"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParenGrouping(t *testing.T) {
	expr, err := Parse(`(title == "a" or title == "b") and author == "me"`)
	require.NoError(t, err)

	ok, err := expr.Eval(MapRecord{"title": "b", "author": "me"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = expr.Eval(MapRecord{"title": "c", "author": "me"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidRegex(t *testing.T) {
	expr, err := Parse(`title =~ "("`)
	require.NoError(t, err)

	_, err = expr.Eval(MapRecord{"title": "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ierr.ErrInvalidRegex)
}

func TestParseErrorOffsets(t *testing.T) {
	_, err := Parse(`title ==`)
	require.Error(t, err)
	var perr *ierr.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ierr.ExpectedLiteral, perr.Kind)
}

func TestRegexMatchCaseInsensitive(t *testing.T) {
	expr, err := Parse(`title =~ "HELLO"`)
	require.NoError(t, err)

	ok, err := expr.Eval(MapRecord{"title": "say hello world"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStringRoundTrip(t *testing.T) {
	expr, err := Parse(`title == "a" and author == "b"`)
	require.NoError(t, err)
	assert.Contains(t, expr.String(), "and")
}
