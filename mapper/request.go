package mapper

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/types"
)

var indexedOperators = map[ddbtypes.ComparisonOperator]types.ConditionType{
	ddbtypes.ComparisonOperatorEq: types.ConditionTypeEqual,
	ddbtypes.ComparisonOperatorLt: types.ConditionTypeLess,
	ddbtypes.ComparisonOperatorLe: types.ConditionTypeLessOrEqual,
	ddbtypes.ComparisonOperatorGt: types.ConditionTypeGreater,
	ddbtypes.ComparisonOperatorGe: types.ConditionTypeGreaterOrEqual,
}

var updateActions = map[ddbtypes.AttributeAction]types.UpdateAction{
	"":                            types.UpdateActionPut,
	ddbtypes.AttributeActionPut:    types.UpdateActionPut,
	ddbtypes.AttributeActionDelete: types.UpdateActionDelete,
	ddbtypes.AttributeActionAdd:    types.UpdateActionAdd,
}

// ToIndexedConditions maps legacy KeyConditions
func ToIndexedConditions(input map[string]ddbtypes.Condition) (map[string]types.IndexedCondition, error) {
	output := make(map[string]types.IndexedCondition, len(input))

	for name, cond := range input {
		typ, ok := indexedOperators[cond.ComparisonOperator]
		if !ok {
			return nil, types.NewValidationError("unsupported operator %q on key condition for %s", cond.ComparisonOperator, name)
		}

		if len(cond.AttributeValueList) != 1 {
			return nil, types.NewValidationError("invalid number of argument(s) for the %s ComparisonOperator", cond.ComparisonOperator)
		}

		arg, err := ToAttributeValue(cond.AttributeValueList[0])
		if err != nil {
			return nil, err
		}

		condition, err := types.NewIndexedCondition(typ, arg)
		if err != nil {
			return nil, err
		}

		output[name] = condition
	}

	return output, nil
}

// ToExpectedConditions maps the legacy Expected parameter
func ToExpectedConditions(input map[string]ddbtypes.ExpectedAttributeValue) (map[string]types.ExpectedCondition, error) {
	if len(input) == 0 {
		return nil, nil
	}

	output := make(map[string]types.ExpectedCondition, len(input))

	for name, expected := range input {
		condition, err := toExpectedCondition(name, expected)
		if err != nil {
			return nil, err
		}

		output[name] = condition
	}

	return output, nil
}

func toExpectedCondition(name string, expected ddbtypes.ExpectedAttributeValue) (types.ExpectedCondition, error) {
	switch expected.ComparisonOperator {
	case ddbtypes.ComparisonOperatorNull:
		return types.NotExists(), nil
	case ddbtypes.ComparisonOperatorNotNull:
		return types.Exists(), nil
	case ddbtypes.ComparisonOperatorEq:
		if len(expected.AttributeValueList) != 1 {
			return types.ExpectedCondition{}, types.NewValidationError("invalid number of argument(s) for the EQ ComparisonOperator")
		}

		value, err := ToAttributeValue(expected.AttributeValueList[0])
		if err != nil {
			return types.ExpectedCondition{}, err
		}

		return types.ExpectEq(value)
	case "":
	default:
		return types.ExpectedCondition{}, types.NewValidationError("unsupported operator %q on expected condition for %s", expected.ComparisonOperator, name)
	}

	if expected.Exists != nil && !*expected.Exists {
		if expected.Value != nil {
			return types.ExpectedCondition{}, types.NewValidationError("Cannot expect an attribute to have a specified value while expecting it to not exist")
		}

		return types.NotExists(), nil
	}

	if expected.Value == nil {
		return types.Exists(), nil
	}

	value, err := ToAttributeValue(expected.Value)
	if err != nil {
		return types.ExpectedCondition{}, err
	}

	return types.ExpectEq(value)
}

// ToUpdateActions maps legacy AttributeUpdates
func ToUpdateActions(input map[string]ddbtypes.AttributeValueUpdate) (map[string]types.UpdateItemAction, error) {
	output := make(map[string]types.UpdateItemAction, len(input))

	for name, update := range input {
		action, ok := updateActions[update.Action]
		if !ok {
			return nil, types.NewValidationError("unsupported attribute action %q", update.Action)
		}

		var value types.AttributeValue

		if update.Value != nil {
			v, err := ToAttributeValue(update.Value)
			if err != nil {
				return nil, err
			}

			value = v
		}

		updateAction, err := types.NewUpdateItemAction(action, value)
		if err != nil {
			return nil, err
		}

		output[name] = updateAction
	}

	return output, nil
}

// MapKnownError converts storage errors into the SDK exceptions callers
// check for. Other errors are returned unchanged.
func MapKnownError(err error) error {
	var intErr types.Error

	if !errors.As(err, &intErr) {
		return err
	}

	switch intErr.Code() {
	case types.ErrCodeConditionalCheckFailed:
		return &ddbtypes.ConditionalCheckFailedException{Message: aws.String(intErr.Message())}
	case types.ErrCodeResourceNotFound:
		return &ddbtypes.ResourceNotFoundException{Message: aws.String(intErr.Message())}
	case types.ErrCodeResourceInUse:
		return &ddbtypes.ResourceInUseException{Message: aws.String(intErr.Message())}
	}

	return err
}
