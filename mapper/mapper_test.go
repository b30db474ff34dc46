package mapper

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/magnetodb/magneto/types"
	"github.com/stretchr/testify/require"
)

func strKey(name, value string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{name: &ddbtypes.AttributeValueMemberS{Value: value}}
}

func TestAttributeValueRoundTrip(t *testing.T) {
	c := require.New(t)

	input := map[string]ddbtypes.AttributeValue{
		"name":  &ddbtypes.AttributeValueMemberS{Value: "Bulbasaur"},
		"lvl":   &ddbtypes.AttributeValueMemberN{Value: "10"},
		"raw":   &ddbtypes.AttributeValueMemberB{Value: []byte("seed")},
		"moves": &ddbtypes.AttributeValueMemberSS{Value: []string{"vine", "tackle"}},
		"stats": &ddbtypes.AttributeValueMemberNS{Value: []string{"2", "1"}},
		"blobs": &ddbtypes.AttributeValueMemberBS{Value: [][]byte{[]byte("b")}},
	}

	item, err := ToItem(input)
	c.NoError(err)
	c.Len(item, 6)
	c.Equal(types.TypeNumber, item["lvl"].Type())

	output := FromItem(item)
	c.Equal(&ddbtypes.AttributeValueMemberSS{Value: []string{"tackle", "vine"}}, output["moves"])
	c.Equal(&ddbtypes.AttributeValueMemberNS{Value: []string{"1", "2"}}, output["stats"])
	c.Equal(&ddbtypes.AttributeValueMemberB{Value: []byte("seed")}, output["raw"])

	_, err = ToAttributeValue(&ddbtypes.AttributeValueMemberBOOL{Value: true})
	c.True(types.IsValidation(err))

	_, err = ToAttributeValue(nil)
	c.True(types.IsValidation(err))

	_, err = ToAttributeValue(&ddbtypes.AttributeValueMemberN{Value: "ten"})
	c.True(types.IsValidation(err))

	c.Nil(FromItem(nil))
}

func TestParseBatchGetRequestItems(t *testing.T) {
	c := require.New(t)

	m := New()

	requests, err := m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{
		"T2": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "y")}, ConsistentRead: aws.Bool(true)},
		"T1": {
			Keys:                     []map[string]ddbtypes.AttributeValue{strKey("k", "b"), strKey("k", "a")},
			ProjectionExpression:     aws.String("#n, k"),
			ExpressionAttributeNames: map[string]string{"#n": "name"},
		},
	})
	c.NoError(err)
	c.Len(requests, 3)

	c.Equal("T1", requests[0].TableName)
	c.Equal("b", requests[0].Key["k"].Value())
	c.Equal([]string{"name", "k"}, requests[0].AttributesToGet)
	c.Equal("a", requests[1].Key["k"].Value())
	c.Equal("T2", requests[2].TableName)
	c.True(requests[2].ConsistentRead)
	c.Nil(requests[2].AttributesToGet)
}

func TestParseBatchGetRequestItemsValidation(t *testing.T) {
	c := require.New(t)

	m := New(WithBatchGetLimit(2))

	_, err := m.ParseBatchGetRequestItems(nil)
	c.True(types.IsValidation(err))

	_, err = m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{"T1": {}})
	c.True(types.IsValidation(err))

	_, err = m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{
		"T1": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "a"), strKey("k", "b"), strKey("k", "c")}},
	})
	c.True(types.IsValidation(err))

	_, err = m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{
		"T1": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "a"), strKey("k", "a")}},
	})
	c.True(types.IsValidation(err))

	_, err = m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{
		"T1": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "a")}, ProjectionExpression: aws.String("#missing")},
	})
	c.True(types.IsValidation(err))

	_, err = m.ParseBatchGetRequestItems(map[string]ddbtypes.KeysAndAttributes{
		"T1": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "a")}, ProjectionExpression: aws.String("k"), AttributesToGet: []string{"k"}},
	})
	c.True(types.IsValidation(err))
}

func TestFormatBatchGetUnprocessedKeepsOriginalKeys(t *testing.T) {
	c := require.New(t)

	m := New()

	original := map[string]ddbtypes.KeysAndAttributes{
		"T1": {Keys: []map[string]ddbtypes.AttributeValue{strKey("k", "a")}},
		"T2": {
			Keys: []map[string]ddbtypes.AttributeValue{
				{"k": &ddbtypes.AttributeValueMemberN{Value: "1.50"}},
				{"k": &ddbtypes.AttributeValueMemberN{Value: "2"}},
			},
			AttributesToGet: []string{"k"},
		},
	}

	requests, err := m.ParseBatchGetRequestItems(original)
	c.NoError(err)

	unprocessed := m.FormatBatchGetUnprocessed(requests[1:2], original)

	expected := map[string]ddbtypes.KeysAndAttributes{
		"T2": {
			Keys:            []map[string]ddbtypes.AttributeValue{{"k": &ddbtypes.AttributeValueMemberN{Value: "1.50"}}},
			AttributesToGet: []string{"k"},
		},
	}

	opts := cmp.AllowUnexported(ddbtypes.KeysAndAttributes{}, ddbtypes.AttributeValueMemberN{})
	if diff := cmp.Diff(expected, unprocessed, opts); diff != "" {
		t.Fatalf("unexpected unprocessed keys (-want +got):\n%s", diff)
	}

	c.Empty(m.FormatBatchGetUnprocessed(nil, original))
}

func TestToTableSchema(t *testing.T) {
	c := require.New(t)

	input := &dynamodb.CreateTableInput{
		TableName: aws.String("pokemons"),
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("lvl"), AttributeType: ddbtypes.ScalarAttributeTypeN},
			{AttributeName: aws.String("name"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: aws.String("lvl"), KeyType: ddbtypes.KeyTypeRange},
			{AttributeName: aws.String("id"), KeyType: ddbtypes.KeyTypeHash},
		},
		LocalSecondaryIndexes: []ddbtypes.LocalSecondaryIndex{
			{
				IndexName: aws.String("by-name"),
				KeySchema: []ddbtypes.KeySchemaElement{
					{AttributeName: aws.String("id"), KeyType: ddbtypes.KeyTypeHash},
					{AttributeName: aws.String("name"), KeyType: ddbtypes.KeyTypeRange},
				},
			},
		},
	}

	schema, err := ToTableSchema(input)
	c.NoError(err)
	c.Equal([]string{"id", "lvl"}, schema.KeyAttributes())
	c.Equal([]string{"name"}, schema.IndexedNonKeyAttributes())

	desc := FromTableMeta(types.TableMeta{Schema: schema, Status: types.TableStatusActive, CreationTime: time.Unix(1, 0), ItemCount: 3})
	c.Equal("pokemons", aws.ToString(desc.TableName))
	c.Equal(ddbtypes.TableStatusActive, desc.TableStatus)
	c.Equal(int64(3), aws.ToInt64(desc.ItemCount))
	c.Len(desc.KeySchema, 2)
	c.Equal(ddbtypes.KeyTypeHash, desc.KeySchema[0].KeyType)
	c.Len(desc.LocalSecondaryIndexes, 1)
	c.Len(desc.AttributeDefinitions, 3)

	input.KeySchema = input.KeySchema[:1]
	_, err = ToTableSchema(input)
	c.True(types.IsValidation(err))

	_, err = ToTableSchema(nil)
	c.True(types.IsValidation(err))
}

func TestToConditionsAndActions(t *testing.T) {
	c := require.New(t)

	conditions, err := ToIndexedConditions(map[string]ddbtypes.Condition{
		"id": {ComparisonOperator: ddbtypes.ComparisonOperatorEq, AttributeValueList: []ddbtypes.AttributeValue{&ddbtypes.AttributeValueMemberS{Value: "001"}}},
		"lvl": {ComparisonOperator: ddbtypes.ComparisonOperatorGe, AttributeValueList: []ddbtypes.AttributeValue{&ddbtypes.AttributeValueMemberN{Value: "5"}}},
	})
	c.NoError(err)
	c.Equal(types.ConditionTypeEqual, conditions["id"].Type())
	c.Equal(types.ConditionTypeGreaterOrEqual, conditions["lvl"].Type())

	_, err = ToIndexedConditions(map[string]ddbtypes.Condition{
		"id": {ComparisonOperator: ddbtypes.ComparisonOperatorBeginsWith, AttributeValueList: []ddbtypes.AttributeValue{&ddbtypes.AttributeValueMemberS{Value: "0"}}},
	})
	c.True(types.IsValidation(err))

	expected, err := ToExpectedConditions(map[string]ddbtypes.ExpectedAttributeValue{
		"id":   {Exists: aws.Bool(false)},
		"name": {Value: &ddbtypes.AttributeValueMemberS{Value: "Bulbasaur"}},
		"lvl":  {ComparisonOperator: ddbtypes.ComparisonOperatorNotNull},
	})
	c.NoError(err)
	c.False(expected["id"].ShouldExist())
	c.Equal(types.ConditionTypeEqual, expected["name"].Type())
	c.True(expected["lvl"].ShouldExist())

	_, err = ToExpectedConditions(map[string]ddbtypes.ExpectedAttributeValue{
		"id": {Exists: aws.Bool(false), Value: &ddbtypes.AttributeValueMemberS{Value: "001"}},
	})
	c.True(types.IsValidation(err))

	actions, err := ToUpdateActions(map[string]ddbtypes.AttributeValueUpdate{
		"name": {Value: &ddbtypes.AttributeValueMemberS{Value: "Ivysaur"}},
		"lvl":  {Action: ddbtypes.AttributeActionAdd, Value: &ddbtypes.AttributeValueMemberN{Value: "1"}},
		"old":  {Action: ddbtypes.AttributeActionDelete},
	})
	c.NoError(err)
	c.Equal(types.UpdateActionPut, actions["name"].Action())
	c.Equal(types.UpdateActionAdd, actions["lvl"].Action())
	c.Equal(types.UpdateActionDelete, actions["old"].Action())

	_, err = ToUpdateActions(map[string]ddbtypes.AttributeValueUpdate{"name": {Action: ddbtypes.AttributeActionPut}})
	c.True(types.IsValidation(err))
}

func TestMapKnownError(t *testing.T) {
	c := require.New(t)

	var conditionalErr *ddbtypes.ConditionalCheckFailedException
	c.True(errors.As(MapKnownError(types.NewConditionalCheckFailedError()), &conditionalErr))

	var notFoundErr *ddbtypes.ResourceNotFoundException
	c.True(errors.As(MapKnownError(types.NewResourceNotFoundError("missing")), &notFoundErr))
	c.Equal("missing", aws.ToString(notFoundErr.Message))

	var inUseErr *ddbtypes.ResourceInUseException
	c.True(errors.As(MapKnownError(types.NewResourceInUseError("in use")), &inUseErr))

	validation := types.NewValidationError("bad")
	c.Equal(validation, MapKnownError(validation))

	plain := errors.New("plain")
	c.Equal(plain, MapKnownError(plain))
}
