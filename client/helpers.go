package client

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/core"
)

// EmulateFailure forces the engine behind client to fail. With
// core.FailureConditionThrottling the batch requests of the given tables, or
// of every table, are returned as unprocessed.
func EmulateFailure(client API, condition core.FailureCondition, tables ...string) {
	c, ok := client.(*Client)
	if !ok {
		panic("EmulateFailure: invalid client type")
	}

	c.engine.EmulateFailure(condition, tables...)
}

// AddTable creates a table with string keys
func AddTable(ctx context.Context, client API, tableName, partitionKey, rangeKey string) error {
	_, err := client.CreateTable(ctx, generateAddTableInput(tableName, partitionKey, rangeKey))

	return err
}

// ClearTable removes all data from a specific table
func ClearTable(client API, tableName string) error {
	c, ok := client.(*Client)
	if !ok {
		panic("ClearTable: invalid client type")
	}

	return c.engine.ClearTable(tableName)
}

func generateAddTableInput(tableName, hashKey, rangeKey string) *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{
				AttributeName: aws.String(hashKey),
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
		KeySchema: []ddbtypes.KeySchemaElement{
			{
				AttributeName: aws.String(hashKey),
				KeyType:       ddbtypes.KeyTypeHash,
			},
		},
		TableName: aws.String(tableName),
	}

	if rangeKey != "" {
		input.AttributeDefinitions = append(input.AttributeDefinitions,
			ddbtypes.AttributeDefinition{
				AttributeName: aws.String(rangeKey),
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			},
		)

		input.KeySchema = append(input.KeySchema,
			ddbtypes.KeySchemaElement{
				AttributeName: aws.String(rangeKey),
				KeyType:       ddbtypes.KeyTypeRange,
			},
		)
	}

	return input
}
