// Package mapper converts between the aws-sdk-go-v2 DynamoDB shapes and the
// storage model. It plays the request parser and response formatter roles of
// the transport layer.
package mapper

import (
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/types"
)

// ToAttributeValue maps a DynamoDB attribute value. Only string, number and
// binary scalars and sets are supported.
func ToAttributeValue(input ddbtypes.AttributeValue) (types.AttributeValue, error) {
	switch v := input.(type) {
	case *ddbtypes.AttributeValueMemberS:
		return types.NewStringValue(v.Value), nil
	case *ddbtypes.AttributeValueMemberN:
		return types.NewNumberValue(v.Value)
	case *ddbtypes.AttributeValueMemberB:
		return types.NewBlobValue(v.Value), nil
	case *ddbtypes.AttributeValueMemberSS:
		return types.NewStringSetValue(v.Value...)
	case *ddbtypes.AttributeValueMemberNS:
		return types.NewNumberSetValue(v.Value...)
	case *ddbtypes.AttributeValueMemberBS:
		return types.NewBlobSetValue(v.Value...)
	case nil:
		return types.AttributeValue{}, types.NewValidationError("Supplied AttributeValue is empty, must contain exactly one of the supported datatypes")
	}

	return types.AttributeValue{}, types.NewValidationError("attribute value of type %T isn't supported", input)
}

// FromAttributeValue maps a model value to its DynamoDB representation.
func FromAttributeValue(v types.AttributeValue) ddbtypes.AttributeValue {
	switch v.Type() {
	case types.TypeString:
		return &ddbtypes.AttributeValueMemberS{Value: v.Value().(string)}
	case types.TypeNumber:
		return &ddbtypes.AttributeValueMemberN{Value: v.Value().(string)}
	case types.TypeBlob:
		return &ddbtypes.AttributeValueMemberB{Value: v.Value().([]byte)}
	case types.TypeStringSet:
		return &ddbtypes.AttributeValueMemberSS{Value: v.Value().([]string)}
	case types.TypeNumberSet:
		return &ddbtypes.AttributeValueMemberNS{Value: v.Value().([]string)}
	case types.TypeBlobSet:
		return &ddbtypes.AttributeValueMemberBS{Value: v.Value().([][]byte)}
	}

	return &ddbtypes.AttributeValueMemberNULL{Value: true}
}

// ToItem maps every attribute of a DynamoDB item.
func ToItem(input map[string]ddbtypes.AttributeValue) (types.Item, error) {
	item := make(types.Item, len(input))

	for name, av := range input {
		v, err := ToAttributeValue(av)
		if err != nil {
			return nil, err
		}

		item[name] = v
	}

	return item, nil
}

// FromItem maps every attribute of a model item.
func FromItem(item types.Item) map[string]ddbtypes.AttributeValue {
	if item == nil {
		return nil
	}

	output := make(map[string]ddbtypes.AttributeValue, len(item))

	for name, v := range item {
		output[name] = FromAttributeValue(v)
	}

	return output
}
