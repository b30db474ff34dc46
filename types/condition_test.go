package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexedConditionConstructors(t *testing.T) {
	c := require.New(t)

	arg, _ := NewNumberValue("42")

	constructors := map[ConditionType]func(AttributeValue) (IndexedCondition, error){
		ConditionTypeEqual:          Eq,
		ConditionTypeLess:           Lt,
		ConditionTypeLessOrEqual:    Le,
		ConditionTypeGreater:        Gt,
		ConditionTypeGreaterOrEqual: Ge,
	}

	for typ, build := range constructors {
		cond, err := build(arg)
		c.NoError(err)
		c.Equal(typ, cond.Type())
		c.Equal(arg, cond.Arg())
	}
}

func TestIndexedConditionRejectsInvalidCombinations(t *testing.T) {
	c := require.New(t)

	_, err := NewIndexedCondition(ConditionTypeExists, NewStringValue("x"))
	c.True(IsValidation(err))

	_, err = NewIndexedCondition("between", NewStringValue("x"))
	c.True(IsValidation(err))

	set, _ := NewStringSetValue("a", "b")
	_, err = Eq(set)
	c.True(IsValidation(err))

	_, err = Eq(AttributeValue{})
	c.True(IsValidation(err))
}

func TestIndexedConditionMatch(t *testing.T) {
	c := require.New(t)

	five, _ := NewNumberValue("5")
	three, _ := NewNumberValue("3")

	cases := []struct {
		build    func(AttributeValue) (IndexedCondition, error)
		value    AttributeValue
		expected bool
	}{
		{Eq, five, true},
		{Eq, three, false},
		{Lt, three, true},
		{Le, five, true},
		{Gt, three, false},
		{Ge, five, true},
	}

	for _, tc := range cases {
		cond, err := tc.build(five)
		c.NoError(err)

		matched, err := cond.Match(tc.value)
		c.NoError(err)
		c.Equal(tc.expected, matched, "%s %s", cond.Type(), tc.value)
	}

	cond, _ := Eq(five)
	_, err := cond.Match(NewStringValue("5"))
	c.True(IsValidation(err))
}

func TestExpectedConditions(t *testing.T) {
	c := require.New(t)

	exists := Exists()
	c.Equal(ConditionTypeExists, exists.Type())
	c.True(exists.ShouldExist())

	notExists := NotExists()
	c.Equal(ConditionTypeExists, notExists.Type())
	c.False(notExists.ShouldExist())
	c.NotEqual(exists, notExists)

	eq, err := ExpectEq(NewStringValue("fire"))
	c.NoError(err)
	c.Equal(ConditionTypeEqual, eq.Type())
	c.Equal(NewStringValue("fire"), eq.Value())

	_, err = ExpectEq(AttributeValue{})
	c.True(IsValidation(err))

	_, err = newExpectedCondition(ConditionTypeLess, NewStringValue("fire"), true)
	c.True(IsValidation(err))
}

func TestMatchExpected(t *testing.T) {
	c := require.New(t)

	item := Item{"type": NewStringValue("fire")}
	eq, _ := ExpectEq(NewStringValue("fire"))
	other, _ := ExpectEq(NewStringValue("water"))

	c.True(MatchExpected(item, map[string]ExpectedCondition{"type": eq, "owner": NotExists()}))
	c.False(MatchExpected(item, map[string]ExpectedCondition{"type": other}))
	c.False(MatchExpected(item, map[string]ExpectedCondition{"type": NotExists()}))
	c.True(MatchExpected(nil, map[string]ExpectedCondition{"type": NotExists()}))
	c.False(MatchExpected(nil, map[string]ExpectedCondition{"type": Exists()}))
	c.True(MatchExpected(nil, nil))
}
