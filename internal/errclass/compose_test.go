package errclass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(result bool, calls *int) Predicate[string] {
	return func(context.Context, string) (bool, error) {
		*calls++
		return result, nil
	}
}

func TestAnd_ShortCircuitsOnFirstFalse(t *testing.T) {
	var first, second int
	p := And(counting(false, &first), counting(true, &second))

	ok, err := p(context.Background(), "err")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "second predicate must not run after a false one")
}

func TestAnd_AllTrue(t *testing.T) {
	var a, b, c int
	ok, err := And(counting(true, &a), counting(true, &b), counting(true, &c))(context.Background(), "err")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 1, 1}, []int{a, b, c})
}

func TestOr_ShortCircuitsOnFirstTrue(t *testing.T) {
	var first, second int
	p := Or(counting(true, &first), counting(false, &second))

	ok, err := p(context.Background(), "err")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second, "second predicate must not run after a true one")
}

func TestOr_NoneTrue(t *testing.T) {
	var a, b int
	ok, err := Or(counting(false, &a), counting(false, &b))(context.Background(), "err")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestCombinators_EmptyInput(t *testing.T) {
	ok, err := And[string]()(context.Background(), "err")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Or[string]()(context.Background(), "err")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCombinators_PropagatePredicateError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(context.Context, string) (bool, error) { return false, boom }
	var after int

	_, err := And(failing, counting(true, &after))(context.Background(), "err")
	assert.ErrorIs(t, err, boom)

	_, err = Or(failing, counting(true, &after))(context.Background(), "err")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, after)
}

func TestClassify_FirstMatchWins(t *testing.T) {
	var aCalls, bCalls int
	filters := Filters[Kind, string]{
		{Kind: "A", Match: counting(true, &aCalls)},
		{Kind: "B", Match: counting(true, &bCalls)},
	}

	kind, ok, err := Classify(context.Background(), filters, "err")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Kind("A"), kind)
	assert.Equal(t, 0, bCalls)
}

func TestClassify_DeclaredOrder(t *testing.T) {
	var order []Kind
	record := func(k Kind, result bool) Predicate[string] {
		return func(context.Context, string) (bool, error) {
			order = append(order, k)
			return result, nil
		}
	}
	filters := Filters[Kind, string]{
		{Kind: "C", Match: record("C", false)},
		{Kind: "A", Match: record("A", false)},
		{Kind: "B", Match: record("B", true)},
	}

	kind, ok, err := Classify(context.Background(), filters, "err")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Kind("B"), kind)
	assert.Equal(t, []Kind{"C", "A", "B"}, order)
}

func TestClassify_Unclassified(t *testing.T) {
	var calls int
	filters := Filters[Kind, string]{{Kind: "A", Match: counting(false, &calls)}}

	kind, ok, err := Classify(context.Background(), filters, "err")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, KindUnclassified, kind)

	kind, ok, err = Classify(context.Background(), Filters[Kind, string]{}, "err")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, KindUnclassified, kind)
}

func TestClassify_PredicateErrorAborts(t *testing.T) {
	boom := errors.New("balance read failed")
	var later int
	filters := Filters[Kind, string]{
		{Kind: "A", Match: func(context.Context, string) (bool, error) { return false, boom }},
		{Kind: "B", Match: counting(true, &later)},
	}

	_, ok, err := Classify(context.Background(), filters, "err")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Equal(t, 0, later)
}
