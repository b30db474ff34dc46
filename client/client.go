// Package client exposes the storage engine through the aws-sdk-go-v2
// DynamoDB operation shapes, using the legacy condition parameters.
package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/batchget"
	"github.com/magnetodb/magneto/core"
	"github.com/magnetodb/magneto/mapper"
	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

const (
	batchRequestsLimit       = 25
	unsupportedExpressionMsg = "expression parameters aren't supported, use %s instead"
)

// API is the subset of the DynamoDB client served by Client
type API interface {
	CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, input *dynamodb.ListTablesInput, opts ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, input *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, input *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

// Client serves DynamoDB operations from a storage engine. Every write is
// stamped with the client clock.
type Client struct {
	engine          *core.Engine
	batchGet        *batchget.Orchestrator
	now             func() time.Time
	logger          zerolog.Logger
	batchGetLimit   int
	batchWriteLimit int
}

// Option configures a Client
type Option func(*Client)

// WithClock overrides the clock stamping writes
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBatchGetLimit bounds the keys of a BatchGetItem call
func WithBatchGetLimit(limit int) Option {
	return func(c *Client) {
		c.batchGetLimit = limit
	}
}

// WithBatchWriteLimit bounds the requests of a BatchWriteItem call
func WithBatchWriteLimit(limit int) Option {
	return func(c *Client) {
		c.batchWriteLimit = limit
	}
}

// NewClient creates a Client over engine
func NewClient(engine *core.Engine, opts ...Option) *Client {
	c := &Client{
		engine:          engine,
		now:             time.Now,
		logger:          zerolog.Nop(),
		batchGetLimit:   mapper.DefaultBatchGetLimit,
		batchWriteLimit: batchRequestsLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	m := mapper.New(mapper.WithBatchGetLimit(c.batchGetLimit))
	c.batchGet = batchget.New(engine, m, m, c.logger)
	c.logger = c.logger.With().Str("component", "client").Logger()

	return c
}

// Engine returns the storage engine behind the client
func (c *Client) Engine() *core.Engine {
	return c.engine
}

// CreateTable creates a new table
func (c *Client) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	schema, err := mapper.ToTableSchema(input)
	if err != nil {
		return nil, err
	}

	meta, err := c.engine.CreateTable(ctx, schema)
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.CreateTableOutput{
		TableDescription: mapper.FromTableMeta(meta),
	}, nil
}

// DeleteTable deletes a table
func (c *Client) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	meta, err := c.engine.DeleteTable(ctx, aws.ToString(input.TableName))
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.DeleteTableOutput{
		TableDescription: mapper.FromTableMeta(meta),
	}, nil
}

// DescribeTable returns information about the table
func (c *Client) DescribeTable(ctx context.Context, input *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	meta, err := c.engine.DescribeTable(ctx, aws.ToString(input.TableName))
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.DescribeTableOutput{
		Table: mapper.FromTableMeta(meta),
	}, nil
}

// ListTables returns table names in order
func (c *Client) ListTables(ctx context.Context, input *dynamodb.ListTablesInput, opts ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	limit := int(aws.ToInt32(input.Limit))

	fetch := 0
	if limit > 0 {
		fetch = limit + 1
	}

	names, err := c.engine.ListTables(ctx, aws.ToString(input.ExclusiveStartTableName), fetch)
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	output := &dynamodb.ListTablesOutput{TableNames: names}

	if limit > 0 && len(names) > limit {
		output.TableNames = names[:limit]
		output.LastEvaluatedTableName = aws.String(names[limit-1])
	}

	return output, nil
}

// PutItem writes an item, gated by the legacy Expected conditions
func (c *Client) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if input.ConditionExpression != nil {
		return nil, types.NewValidationError(unsupportedExpressionMsg, "Expected")
	}

	item, err := mapper.ToItem(input.Item)
	if err != nil {
		return nil, err
	}

	expected, err := mapper.ToExpectedConditions(input.Expected)
	if err != nil {
		return nil, err
	}

	req, err := types.NewPutItemRequest(aws.ToString(input.TableName), c.now(), item)
	if err != nil {
		return nil, err
	}

	if _, err := c.engine.PutItem(ctx, req, expected); err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem removes the item with the given key, gated by the legacy
// Expected conditions
func (c *Client) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if input.ConditionExpression != nil {
		return nil, types.NewValidationError(unsupportedExpressionMsg, "Expected")
	}

	tableName := aws.ToString(input.TableName)

	key, err := c.parseKey(ctx, tableName, input.Key)
	if err != nil {
		return nil, err
	}

	expected, err := mapper.ToExpectedConditions(input.Expected)
	if err != nil {
		return nil, err
	}

	req, err := types.NewDeleteItemRequestForKey(tableName, c.now(), key)
	if err != nil {
		return nil, err
	}

	if _, err := c.engine.DeleteItem(ctx, req, expected); err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem applies the legacy AttributeUpdates to one item
func (c *Client) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if input.UpdateExpression != nil || input.ConditionExpression != nil {
		return nil, types.NewValidationError(unsupportedExpressionMsg, "AttributeUpdates and Expected")
	}

	tableName := aws.ToString(input.TableName)

	key, err := c.parseKey(ctx, tableName, input.Key)
	if err != nil {
		return nil, err
	}

	actions, err := mapper.ToUpdateActions(input.AttributeUpdates)
	if err != nil {
		return nil, err
	}

	expected, err := mapper.ToExpectedConditions(input.Expected)
	if err != nil {
		return nil, err
	}

	item, err := c.engine.UpdateItem(ctx, tableName, key, actions, expected, c.now())
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	output := &dynamodb.UpdateItemOutput{}

	switch input.ReturnValues {
	case ddbtypes.ReturnValueNone, "":
	case ddbtypes.ReturnValueAllNew:
		output.Attributes = mapper.FromItem(item)
	case ddbtypes.ReturnValueUpdatedNew:
		names := make([]string, 0, len(actions))
		for name := range actions {
			names = append(names, name)
		}

		output.Attributes = mapper.FromItem(item.Project(names))
	default:
		return nil, types.NewValidationError("ReturnValues %s isn't supported", input.ReturnValues)
	}

	return output, nil
}

// GetItem reads one item by key
func (c *Client) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	key, err := mapper.ToItem(input.Key)
	if err != nil {
		return nil, err
	}

	attributesToGet, err := mapper.ProjectionNames(input.AttributesToGet, input.ProjectionExpression, input.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	item, found, err := c.engine.GetItem(ctx, types.GetItemRequest{
		TableName:       aws.ToString(input.TableName),
		Key:             key,
		AttributesToGet: attributesToGet,
		ConsistentRead:  aws.ToBool(input.ConsistentRead),
	})
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	output := &dynamodb.GetItemOutput{}
	if found {
		output.Item = mapper.FromItem(item)
	}

	return output, nil
}

// Query selects the items matching the legacy KeyConditions, in key order
func (c *Client) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if input.KeyConditionExpression != nil || input.FilterExpression != nil {
		return nil, types.NewValidationError(unsupportedExpressionMsg, "KeyConditions")
	}

	tableName := aws.ToString(input.TableName)

	schema, err := c.tableSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}

	if indexName := aws.ToString(input.IndexName); indexName != "" && !schema.IsIndexed(indexName) {
		return nil, types.NewValidationError("The table does not have the specified index: %s", indexName)
	}

	conditions, err := mapper.ToIndexedConditions(input.KeyConditions)
	if err != nil {
		return nil, err
	}

	attributesToGet, err := mapper.ProjectionNames(input.AttributesToGet, input.ProjectionExpression, input.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	items, err := c.engine.Select(ctx, tableName, conditions, 0)
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	if input.ScanIndexForward != nil && !*input.ScanIndexForward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	items, err = afterKey(schema, items, input.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}

	output := &dynamodb.QueryOutput{}

	if limit := int(aws.ToInt32(input.Limit)); limit > 0 && len(items) > limit {
		items = items[:limit]
		last, _ := schema.KeyOf(items[limit-1])
		output.LastEvaluatedKey = mapper.FromItem(last)
	}

	output.Items = make([]map[string]ddbtypes.AttributeValue, 0, len(items))

	for _, item := range items {
		output.Items = append(output.Items, mapper.FromItem(item.Project(attributesToGet)))
	}

	output.Count = int32(len(output.Items))
	output.ScannedCount = output.Count

	return output, nil
}

// BatchGetItem reads the keys of several tables in one engine call
func (c *Client) BatchGetItem(ctx context.Context, input *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	response, err := c.batchGet.Execute(ctx, input.RequestItems)
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	return &dynamodb.BatchGetItemOutput{
		Responses:       response.Responses,
		UnprocessedKeys: response.UnprocessedKeys,
	}, nil
}

type pendingWrite struct {
	table string
	req   ddbtypes.WriteRequest
}

// BatchWriteItem applies puts and deletes of several tables. Requests the
// engine could not service are returned as UnprocessedItems.
func (c *Client) BatchWriteItem(ctx context.Context, input *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if err := c.validateBatchWriteItemInput(input); err != nil {
		return nil, err
	}

	tableNames := make([]string, 0, len(input.RequestItems))
	for name := range input.RequestItems {
		tableNames = append(tableNames, name)
	}

	sort.Strings(tableNames)

	ts := c.now()
	requests := []types.WriteItemBatchableRequest{}
	pending := map[types.WriteItemBatchableRequest]pendingWrite{}
	invalid := []error{}

	for _, tableName := range tableNames {
		schema, err := c.tableSchema(ctx, tableName)
		if err != nil {
			return nil, err
		}

		keys := []types.Item{}

		for _, writeReq := range input.RequestItems[tableName] {
			req, key, err := toBatchableRequest(schema, ts, writeReq)
			if err != nil {
				invalid = append(invalid, err)
				continue
			}

			if containsKey(keys, key) {
				invalid = append(invalid, types.NewValidationError("Provided list of item keys contains duplicates"))
				continue
			}

			keys = append(keys, key)
			requests = append(requests, req)
			pending[req] = pendingWrite{table: tableName, req: writeReq}
		}
	}

	if err := invalidWritesError(invalid); err != nil {
		return nil, err
	}

	unprocessed, err := c.engine.ExecuteWriteBatch(ctx, requests)
	if err != nil {
		return nil, mapper.MapKnownError(err)
	}

	output := &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]ddbtypes.WriteRequest{},
	}

	for _, req := range unprocessed {
		p := pending[req]
		output.UnprocessedItems[p.table] = append(output.UnprocessedItems[p.table], p.req)
	}

	if len(unprocessed) > 0 {
		c.logger.Warn().Int("unprocessed", len(unprocessed)).Msg("batch write returned unprocessed items")
	}

	return output, nil
}

// toBatchableRequest maps a write request of the table described by schema
// and returns it with the key of the item it writes.
func toBatchableRequest(schema types.TableSchema, ts time.Time, req ddbtypes.WriteRequest) (types.WriteItemBatchableRequest, types.Item, error) {
	if req.PutRequest != nil {
		item, err := mapper.ToItem(req.PutRequest.Item)
		if err != nil {
			return nil, nil, err
		}

		if err := schema.ValidateItem(item); err != nil {
			return nil, nil, err
		}

		put, err := types.NewPutItemRequest(schema.TableName(), ts, item)
		if err != nil {
			return nil, nil, err
		}

		key, _ := schema.KeyOf(item)

		return put, key, nil
	}

	key, err := schemaKey(schema, req.DeleteRequest.Key)
	if err != nil {
		return nil, nil, err
	}

	del, err := types.NewDeleteItemRequestForKey(schema.TableName(), ts, key)
	if err != nil {
		return nil, nil, err
	}

	return del, key, nil
}

func containsKey(keys []types.Item, key types.Item) bool {
	for _, k := range keys {
		if k.Equal(key) {
			return true
		}
	}

	return false
}

// invalidWritesError reports every rejected write request of a batch
func invalidWritesError(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	return types.NewBatchError(types.ErrCodeValidation, fmt.Sprintf("%d write requests are invalid", len(errs)), errs)
}

func validateWriteRequest(req ddbtypes.WriteRequest) error {
	if (req.DeleteRequest == nil) == (req.PutRequest == nil) {
		return types.NewValidationError("Supplied WriteRequest must contain exactly one of PutRequest or DeleteRequest")
	}

	return nil
}

func (c *Client) validateBatchWriteItemInput(input *dynamodb.BatchWriteItemInput) error {
	if len(input.RequestItems) == 0 {
		return types.NewValidationError("1 validation error detected: Value at 'requestItems' failed to satisfy constraint: Member must have length greater than or equal to 1")
	}

	count := 0

	for _, reqs := range input.RequestItems {
		for _, req := range reqs {
			if err := validateWriteRequest(req); err != nil {
				return err
			}

			count++
		}
	}

	if count > c.batchWriteLimit {
		return types.NewValidationError("Too many items requested for the BatchWriteItem call")
	}

	return nil
}

func (c *Client) tableSchema(ctx context.Context, tableName string) (types.TableSchema, error) {
	meta, err := c.engine.DescribeTable(ctx, tableName)
	if err != nil {
		return types.TableSchema{}, mapper.MapKnownError(err)
	}

	return meta.Schema, nil
}

// parseKey maps a key and checks it holds exactly the key attributes of the table
func (c *Client) parseKey(ctx context.Context, tableName string, input map[string]ddbtypes.AttributeValue) (types.Item, error) {
	schema, err := c.tableSchema(ctx, tableName)
	if err != nil {
		return nil, err
	}

	return schemaKey(schema, input)
}

func schemaKey(schema types.TableSchema, input map[string]ddbtypes.AttributeValue) (types.Item, error) {
	key, err := mapper.ToItem(input)
	if err != nil {
		return nil, err
	}

	if _, err := schema.KeyOf(key); err != nil {
		return nil, err
	}

	if len(key) != len(schema.KeyAttributes()) {
		return nil, types.NewValidationError("The provided key element does not match the schema")
	}

	return key, nil
}

// afterKey drops the items up to and including the one with exclusiveStartKey
func afterKey(schema types.TableSchema, items []types.Item, exclusiveStartKey map[string]ddbtypes.AttributeValue) ([]types.Item, error) {
	if len(exclusiveStartKey) == 0 {
		return items, nil
	}

	start, err := mapper.ToItem(exclusiveStartKey)
	if err != nil {
		return nil, err
	}

	for i, item := range items {
		key, err := schema.KeyOf(item)
		if err != nil {
			return nil, err
		}

		if key.Equal(start) {
			return items[i+1:], nil
		}
	}

	return []types.Item{}, nil
}
