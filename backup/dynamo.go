package backup

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

const (
	tableNameAttribute = "table_name"
	idAttribute        = "id"
)

// DynamoAPI is the part of the DynamoDB client used by DynamoRepository
type DynamoAPI interface {
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type record struct {
	TableName     string            `dynamodbav:"table_name"`
	ID            string            `dynamodbav:"id"`
	Name          string            `dynamodbav:"name"`
	Status        string            `dynamodbav:"status"`
	Location      string            `dynamodbav:"location"`
	Strategy      map[string]string `dynamodbav:"strategy,omitempty"`
	StartDateTime time.Time         `dynamodbav:"start_date_time"`
}

func newRecord(meta types.BackupMeta) record {
	return record{
		TableName:     meta.TableName,
		ID:            meta.ID.String(),
		Name:          meta.Name,
		Status:        string(meta.Status),
		Location:      meta.Location,
		Strategy:      meta.Strategy,
		StartDateTime: meta.StartDateTime,
	}
}

func (r record) meta() (types.BackupMeta, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("invalid stored backup id", err)
	}

	return types.BackupMeta{
		ID:            id,
		Name:          r.Name,
		TableName:     r.TableName,
		Status:        types.BackupStatus(r.Status),
		Location:      r.Location,
		Strategy:      r.Strategy,
		StartDateTime: r.StartDateTime,
	}, nil
}

// DynamoRepository stores backups in a DynamoDB table with partition key
// table_name and sort key id. Listing follows the sort key order.
type DynamoRepository struct {
	client    DynamoAPI
	tableName string
	logger    zerolog.Logger
}

// NewDynamoRepository creates a DynamoRepository on tableName
func NewDynamoRepository(client DynamoAPI, tableName string, logger zerolog.Logger) *DynamoRepository {
	return &DynamoRepository{
		client:    client,
		tableName: tableName,
		logger:    logger.With().Str("component", "backup_repository").Str("backup_table", tableName).Logger(),
	}
}

func (r *DynamoRepository) key(tableName string, id uuid.UUID) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		tableNameAttribute: &ddbtypes.AttributeValueMemberS{Value: tableName},
		idAttribute:        &ddbtypes.AttributeValueMemberS{Value: id.String()},
	}
}

// Save stores a new backup. Backup names are unique per table.
func (r *DynamoRepository) Save(ctx context.Context, meta types.BackupMeta) (types.BackupMeta, error) {
	existing, err := r.List(ctx, meta.TableName, uuid.Nil, 0)
	if err != nil {
		return types.BackupMeta{}, err
	}

	for _, backup := range existing {
		if backup.Name == meta.Name {
			return types.BackupMeta{}, types.NewResourceInUseError("backup %s of table %s already exists", meta.Name, meta.TableName)
		}
	}

	item, err := attributevalue.MarshalMap(newRecord(meta))
	if err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("failed to marshal backup", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(idAttribute).AttributeNotExists()).
		Build()
	if err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("failed to build expression", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return types.BackupMeta{}, types.NewResourceInUseError("backup %s already exists", meta.ID)
		}

		return types.BackupMeta{}, types.NewBackendInteractionError("failed to save backup", err)
	}

	r.logger.Debug().Str("table", meta.TableName).Str("backup_id", meta.ID.String()).Msg("backup saved")

	return meta, nil
}

// Get returns one backup
func (r *DynamoRepository) Get(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(tableName, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("failed to get backup", err)
	}

	if len(out.Item) == 0 {
		return types.BackupMeta{}, types.NewResourceNotFoundError("backup %s of table %s not found", id, tableName)
	}

	return unmarshalMeta(out.Item)
}

// Delete removes one backup and returns it in DELETED status
func (r *DynamoRepository) Delete(ctx context.Context, tableName string, id uuid.UUID) (types.BackupMeta, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          r.key(tableName, id),
		ReturnValues: ddbtypes.ReturnValueAllOld,
	})
	if err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("failed to delete backup", err)
	}

	if len(out.Attributes) == 0 {
		return types.BackupMeta{}, types.NewResourceNotFoundError("backup %s of table %s not found", id, tableName)
	}

	meta, err := unmarshalMeta(out.Attributes)
	if err != nil {
		return types.BackupMeta{}, err
	}

	meta.Status = types.BackupStatusDeleted

	r.logger.Debug().Str("table", tableName).Str("backup_id", id.String()).Msg("backup deleted")

	return meta, nil
}

// List queries the backups of a table in id order
func (r *DynamoRepository) List(ctx context.Context, tableName string, exclusiveStartID uuid.UUID, limit int) ([]types.BackupMeta, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(tableNameAttribute).Equal(expression.Value(tableName))).
		Build()
	if err != nil {
		return nil, types.NewBackendInteractionError("failed to build expression", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}

	if exclusiveStartID != uuid.Nil {
		input.ExclusiveStartKey = r.key(tableName, exclusiveStartID)
	}

	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	backups := []types.BackupMeta{}
	paginator := dynamodb.NewQueryPaginator(r.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, types.NewBackendInteractionError("failed to list backups", err)
		}

		for _, item := range page.Items {
			meta, err := unmarshalMeta(item)
			if err != nil {
				return nil, err
			}

			backups = append(backups, meta)

			if limit > 0 && len(backups) == limit {
				return backups, nil
			}
		}
	}

	return backups, nil
}

func unmarshalMeta(item map[string]ddbtypes.AttributeValue) (types.BackupMeta, error) {
	var rec record

	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return types.BackupMeta{}, types.NewBackendInteractionError("failed to unmarshal backup", err)
	}

	return rec.meta()
}
