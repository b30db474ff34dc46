package types

// ConditionType is the predicate applied by a condition.
type ConditionType string

const (
	// ConditionTypeEqual matches values equal to the argument
	ConditionTypeEqual ConditionType = "equal"
	// ConditionTypeLess matches values lower than the argument
	ConditionTypeLess ConditionType = "less"
	// ConditionTypeLessOrEqual matches values lower or equal than the argument
	ConditionTypeLessOrEqual ConditionType = "less_or_equal"
	// ConditionTypeGreater matches values greater than the argument
	ConditionTypeGreater ConditionType = "greater"
	// ConditionTypeGreaterOrEqual matches values greater or equal than the argument
	ConditionTypeGreaterOrEqual ConditionType = "greater_or_equal"
	// ConditionTypeExists checks the presence (or absence) of an attribute
	ConditionTypeExists ConditionType = "exists"
)

var (
	// range and equality filtering on indexed attributes
	indexedConditionTypes = map[ConditionType]bool{
		ConditionTypeEqual:          true,
		ConditionTypeLess:           true,
		ConditionTypeLessOrEqual:    true,
		ConditionTypeGreater:        true,
		ConditionTypeGreaterOrEqual: true,
	}

	// optimistic concurrency clauses on writes
	expectedConditionTypes = map[ConditionType]bool{
		ConditionTypeEqual:  true,
		ConditionTypeExists: true,
	}
)

// IndexedCondition filters rows on an indexed attribute.
type IndexedCondition struct {
	typ ConditionType
	arg AttributeValue
}

// NewIndexedCondition validates typ against the conditions allowed on
// indexed attributes. The argument must be a scalar.
func NewIndexedCondition(typ ConditionType, arg AttributeValue) (IndexedCondition, error) {
	if !indexedConditionTypes[typ] {
		return IndexedCondition{}, NewValidationError("condition type %q isn't allowed for indexed conditions", typ)
	}

	if arg.IsZero() || arg.Type().IsSet() {
		return IndexedCondition{}, NewValidationError("indexed condition %q requires a scalar argument", typ)
	}

	return IndexedCondition{typ: typ, arg: arg}, nil
}

// Eq builds an equality condition
func Eq(arg AttributeValue) (IndexedCondition, error) {
	return NewIndexedCondition(ConditionTypeEqual, arg)
}

// Lt builds a lower-than condition
func Lt(arg AttributeValue) (IndexedCondition, error) {
	return NewIndexedCondition(ConditionTypeLess, arg)
}

// Le builds a lower-or-equal condition
func Le(arg AttributeValue) (IndexedCondition, error) {
	return NewIndexedCondition(ConditionTypeLessOrEqual, arg)
}

// Gt builds a greater-than condition
func Gt(arg AttributeValue) (IndexedCondition, error) {
	return NewIndexedCondition(ConditionTypeGreater, arg)
}

// Ge builds a greater-or-equal condition
func Ge(arg AttributeValue) (IndexedCondition, error) {
	return NewIndexedCondition(ConditionTypeGreaterOrEqual, arg)
}

// Type returns the condition type
func (c IndexedCondition) Type() ConditionType { return c.typ }

// Arg returns the condition argument
func (c IndexedCondition) Arg() AttributeValue { return c.arg }

// Match evaluates the condition against a stored value.
func (c IndexedCondition) Match(value AttributeValue) (bool, error) {
	cmp, err := value.Compare(c.arg)
	if err != nil {
		return false, err
	}

	switch c.typ {
	case ConditionTypeEqual:
		return cmp == 0, nil
	case ConditionTypeLess:
		return cmp < 0, nil
	case ConditionTypeLessOrEqual:
		return cmp <= 0, nil
	case ConditionTypeGreater:
		return cmp > 0, nil
	case ConditionTypeGreaterOrEqual:
		return cmp >= 0, nil
	}

	return false, NewValidationError("condition type %q isn't allowed for indexed conditions", c.typ)
}

// ExpectedCondition gates a write on the current state of an attribute.
// EXISTS conditions carry a boolean argument: true for Exists, false for
// NotExists.
type ExpectedCondition struct {
	typ    ConditionType
	value  AttributeValue
	exists bool
}

func newExpectedCondition(typ ConditionType, value AttributeValue, exists bool) (ExpectedCondition, error) {
	if !expectedConditionTypes[typ] {
		return ExpectedCondition{}, NewValidationError("condition type %q isn't allowed for expected conditions", typ)
	}

	if typ == ConditionTypeEqual && value.IsZero() {
		return ExpectedCondition{}, NewValidationError("expected equality condition requires a value")
	}

	return ExpectedCondition{typ: typ, value: value, exists: exists}, nil
}

// ExpectEq requires the attribute to currently hold value.
func ExpectEq(value AttributeValue) (ExpectedCondition, error) {
	return newExpectedCondition(ConditionTypeEqual, value, true)
}

// Exists requires the attribute to be present.
func Exists() ExpectedCondition {
	return ExpectedCondition{typ: ConditionTypeExists, exists: true}
}

// NotExists requires the attribute to be absent.
func NotExists() ExpectedCondition {
	return ExpectedCondition{typ: ConditionTypeExists, exists: false}
}

// Type returns the condition type
func (c ExpectedCondition) Type() ConditionType { return c.typ }

// Value returns the expected value of an equality condition
func (c ExpectedCondition) Value() AttributeValue { return c.value }

// ShouldExist returns the boolean argument of an EXISTS condition. It is
// always true for equality conditions.
func (c ExpectedCondition) ShouldExist() bool { return c.exists }

// Match evaluates the condition against the current attribute state.
func (c ExpectedCondition) Match(current AttributeValue, present bool) bool {
	if c.typ == ConditionTypeExists {
		return present == c.exists
	}

	return present && current.Equal(c.value)
}

// MatchExpected evaluates every condition against item (nil for a missing row).
func MatchExpected(item Item, expected map[string]ExpectedCondition) bool {
	for name, cond := range expected {
		current, present := item[name]
		if !cond.Match(current, present) {
			return false
		}
	}

	return true
}
