package mapper

import (
	"sort"
	"strings"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/magnetodb/magneto/types"
)

// DefaultBatchGetLimit is the maximum number of keys of a BatchGetItem call
const DefaultBatchGetLimit = 100

// Mapper parses batch requests and formats their responses
type Mapper struct {
	batchGetLimit int
}

// Option configures a Mapper
type Option func(*Mapper)

// WithBatchGetLimit overrides the maximum number of keys of a batch get
func WithBatchGetLimit(limit int) Option {
	return func(m *Mapper) {
		if limit > 0 {
			m.batchGetLimit = limit
		}
	}
}

// New creates a Mapper
func New(opts ...Option) *Mapper {
	m := &Mapper{batchGetLimit: DefaultBatchGetLimit}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ParseBatchGetRequestItems turns the request items of a BatchGetItem call
// into get requests. Tables are visited by name and keys in client order.
func (m *Mapper) ParseBatchGetRequestItems(requestItems map[string]ddbtypes.KeysAndAttributes) ([]types.GetItemRequest, error) {
	if len(requestItems) == 0 {
		return nil, types.NewValidationError("1 validation error detected: Value at 'requestItems' failed to satisfy constraint: Member must have length greater than or equal to 1")
	}

	tableNames := make([]string, 0, len(requestItems))
	total := 0

	for name, ka := range requestItems {
		tableNames = append(tableNames, name)
		total += len(ka.Keys)
	}

	if total > m.batchGetLimit {
		return nil, types.NewValidationError("Too many items requested for the BatchGetItem call")
	}

	sort.Strings(tableNames)

	requests := make([]types.GetItemRequest, 0, total)

	for _, tableName := range tableNames {
		tableRequests, err := parseTableKeys(tableName, requestItems[tableName])
		if err != nil {
			return nil, err
		}

		requests = append(requests, tableRequests...)
	}

	return requests, nil
}

func parseTableKeys(tableName string, ka ddbtypes.KeysAndAttributes) ([]types.GetItemRequest, error) {
	if tableName == "" {
		return nil, types.NewValidationError("table name is required")
	}

	if len(ka.Keys) == 0 {
		return nil, types.NewValidationError("1 validation error detected: Value at 'requestItems.%s.member.keys' failed to satisfy constraint: Member must have length greater than or equal to 1", tableName)
	}

	attributesToGet, err := ProjectionNames(ka.AttributesToGet, ka.ProjectionExpression, ka.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}

	consistent := ka.ConsistentRead != nil && *ka.ConsistentRead
	requests := make([]types.GetItemRequest, 0, len(ka.Keys))

	for _, rawKey := range ka.Keys {
		key, err := ToItem(rawKey)
		if err != nil {
			return nil, err
		}

		for _, prev := range requests {
			if prev.Key.Equal(key) {
				return nil, types.NewValidationError("Provided list of item keys contains duplicates")
			}
		}

		requests = append(requests, types.GetItemRequest{
			TableName:       tableName,
			Key:             key,
			AttributesToGet: attributesToGet,
			ConsistentRead:  consistent,
		})
	}

	return requests, nil
}

// ProjectionNames resolves the attributes to return from either the legacy
// AttributesToGet or a projection expression made of top level attribute
// names and placeholders. Nil means every attribute.
func ProjectionNames(attributesToGet []string, projection *string, names map[string]string) ([]string, error) {
	if projection == nil {
		if len(attributesToGet) == 0 {
			return nil, nil
		}

		return append([]string(nil), attributesToGet...), nil
	}

	if len(attributesToGet) > 0 {
		return nil, types.NewValidationError("Can not use both expression and non-expression parameters in the same request: Non-expression parameters: {AttributesToGet} Expression parameters: {ProjectionExpression}")
	}

	output := []string{}

	for _, part := range strings.Split(*projection, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, types.NewValidationError("Invalid ProjectionExpression: %s", *projection)
		}

		if strings.HasPrefix(name, "#") {
			resolved, ok := names[name]
			if !ok {
				return nil, types.NewValidationError("An expression attribute name used in the document path is not defined; attribute name: %s", name)
			}

			name = resolved
		}

		output = append(output, name)
	}

	return output, nil
}

// FormatItemAttributes maps a result item to the response shape
func (m *Mapper) FormatItemAttributes(item types.Item) map[string]ddbtypes.AttributeValue {
	return FromItem(item)
}

// FormatBatchGetUnprocessed groups the unprocessed requests by table. Keys are
// returned as the client sent them, with the table's projection settings.
func (m *Mapper) FormatBatchGetUnprocessed(unprocessed []types.GetItemRequest, requestItems map[string]ddbtypes.KeysAndAttributes) map[string]ddbtypes.KeysAndAttributes {
	output := map[string]ddbtypes.KeysAndAttributes{}

	for _, req := range unprocessed {
		original := requestItems[req.TableName]

		ka, ok := output[req.TableName]
		if !ok {
			ka = ddbtypes.KeysAndAttributes{
				AttributesToGet:          original.AttributesToGet,
				ConsistentRead:           original.ConsistentRead,
				ExpressionAttributeNames: original.ExpressionAttributeNames,
				ProjectionExpression:     original.ProjectionExpression,
			}
		}

		ka.Keys = append(ka.Keys, originalKey(original.Keys, req.Key))
		output[req.TableName] = ka
	}

	return output
}

func originalKey(keys []map[string]ddbtypes.AttributeValue, key types.Item) map[string]ddbtypes.AttributeValue {
	for _, rawKey := range keys {
		candidate, err := ToItem(rawKey)
		if err != nil {
			continue
		}

		if candidate.Equal(key) {
			return rawKey
		}
	}

	return FromItem(key)
}
