package mapper

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/types"
)

// ToTableSchema maps a CreateTable input. The range keys of local secondary
// indexes become the indexed non key attributes of the table.
func ToTableSchema(input *dynamodb.CreateTableInput) (types.TableSchema, error) {
	if input == nil {
		return types.TableSchema{}, types.NewValidationError("CreateTable input is required")
	}

	if len(input.GlobalSecondaryIndexes) > 0 {
		return types.TableSchema{}, types.NewValidationError("global secondary indexes aren't supported")
	}

	defs, err := toAttributeDefinitions(input.AttributeDefinitions)
	if err != nil {
		return types.TableSchema{}, err
	}

	keys, err := toKeyAttributes(input.KeySchema)
	if err != nil {
		return types.TableSchema{}, err
	}

	indexed := []string{}

	for _, lsi := range input.LocalSecondaryIndexes {
		lsiKeys, err := toKeyAttributes(lsi.KeySchema)
		if err != nil {
			return types.TableSchema{}, err
		}

		if len(lsiKeys) != 2 || lsiKeys[0] != keys[0] {
			return types.TableSchema{}, types.NewValidationError("local secondary index %s must use the table hash key and one range key", aws.ToString(lsi.IndexName))
		}

		indexed = append(indexed, lsiKeys[1])
	}

	return types.NewTableSchema(aws.ToString(input.TableName), defs, keys, indexed)
}

func toAttributeDefinitions(input []ddbtypes.AttributeDefinition) ([]types.AttributeDefinition, error) {
	output := make([]types.AttributeDefinition, 0, len(input))

	for _, def := range input {
		typ, err := types.ParseAttributeType(string(def.AttributeType))
		if err != nil {
			return nil, err
		}

		if typ.IsSet() {
			return nil, types.NewValidationError("attribute %s must be a scalar type", aws.ToString(def.AttributeName))
		}

		definition, err := types.NewAttributeDefinition(aws.ToString(def.AttributeName), typ)
		if err != nil {
			return nil, err
		}

		output = append(output, definition)
	}

	return output, nil
}

// toKeyAttributes orders the key elements with the hash key first
func toKeyAttributes(input []ddbtypes.KeySchemaElement) ([]string, error) {
	hashKey := ""
	rangeKeys := []string{}

	for _, element := range input {
		switch element.KeyType {
		case ddbtypes.KeyTypeHash:
			if hashKey != "" {
				return nil, types.NewValidationError("key schema must have exactly one HASH key")
			}

			hashKey = aws.ToString(element.AttributeName)
		case ddbtypes.KeyTypeRange:
			rangeKeys = append(rangeKeys, aws.ToString(element.AttributeName))
		default:
			return nil, types.NewValidationError("invalid key type %q", element.KeyType)
		}
	}

	if hashKey == "" {
		return nil, types.NewValidationError("key schema must have exactly one HASH key")
	}

	if len(rangeKeys) > 1 {
		return nil, types.NewValidationError("key schema must have at most one RANGE key")
	}

	return append([]string{hashKey}, rangeKeys...), nil
}

// FromTableMeta maps a table description to the SDK shape
func FromTableMeta(meta types.TableMeta) *ddbtypes.TableDescription {
	schema := meta.Schema

	desc := &ddbtypes.TableDescription{
		TableName:        aws.String(schema.TableName()),
		TableStatus:      ddbtypes.TableStatus(meta.Status),
		CreationDateTime: aws.Time(meta.CreationTime),
		ItemCount:        aws.Int64(meta.ItemCount),
		KeySchema:        fromKeyAttributes(schema.HashKey(), schema.RangeKeys()),
	}

	for _, def := range schema.AttributeDefs() {
		desc.AttributeDefinitions = append(desc.AttributeDefinitions, ddbtypes.AttributeDefinition{
			AttributeName: aws.String(def.Name()),
			AttributeType: ddbtypes.ScalarAttributeType(def.Type().Code()),
		})
	}

	for _, name := range schema.IndexedNonKeyAttributes() {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, ddbtypes.LocalSecondaryIndexDescription{
			IndexName:  aws.String(name),
			KeySchema:  fromKeyAttributes(schema.HashKey(), []string{name}),
			Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
		})
	}

	return desc
}

func fromKeyAttributes(hashKey string, rangeKeys []string) []ddbtypes.KeySchemaElement {
	output := []ddbtypes.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: ddbtypes.KeyTypeHash},
	}

	for _, name := range rangeKeys {
		output = append(output, ddbtypes.KeySchemaElement{AttributeName: aws.String(name), KeyType: ddbtypes.KeyTypeRange})
	}

	return output
}
