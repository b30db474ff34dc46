package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/magnetodb/magneto/types"
	"github.com/rs/zerolog"
)

// Engine is an in-memory storage engine. Writes are applied last-writer-wins
// by request timestamp, independent of arrival order.
type Engine struct {
	tables    map[string]*Table
	mu        sync.RWMutex
	logger    zerolog.Logger
	now       func() time.Time
	failure   FailureCondition
	throttled map[string]bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "engine").Logger()
	}
}

// WithClock overrides the clock used for table creation times
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an empty engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tables:    map[string]*Table{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		failure:   FailureConditionNone,
		throttled: map[string]bool{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) getTable(tableName string) (*Table, error) {
	table, ok := e.tables[tableName]
	if !ok {
		return nil, types.NewResourceNotFoundError("Cannot do operations on a non-existent table: %s", tableName)
	}

	return table, nil
}

// CreateTable registers a table. Creating it again with the same schema is a
// ResourceInUse error; with a different schema it is a SchemaMismatch error.
func (e *Engine) CreateTable(ctx context.Context, schema types.TableSchema) (types.TableMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return types.TableMeta{}, err
	}

	if existing, ok := e.tables[schema.TableName()]; ok {
		if !existing.Schema.Equal(schema) {
			return types.TableMeta{}, types.NewSchemaMismatchError(schema.TableName())
		}

		return types.TableMeta{}, types.NewResourceInUseError("Cannot create preexisting table: %s", schema.TableName())
	}

	table := NewTable(schema, e.now())
	e.tables[schema.TableName()] = table

	e.logger.Debug().Str("table", schema.TableName()).Msg("table created")

	return table.Description(), nil
}

// DescribeTable returns the description of a table
func (e *Engine) DescribeTable(ctx context.Context, tableName string) (types.TableMeta, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkFailure(); err != nil {
		return types.TableMeta{}, err
	}

	table, err := e.getTable(tableName)
	if err != nil {
		return types.TableMeta{}, err
	}

	return table.Description(), nil
}

// DeleteTable drops a table and its rows
func (e *Engine) DeleteTable(ctx context.Context, tableName string) (types.TableMeta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return types.TableMeta{}, err
	}

	table, err := e.getTable(tableName)
	if err != nil {
		return types.TableMeta{}, err
	}

	delete(e.tables, tableName)

	desc := table.Description()
	desc.Status = types.TableStatusDeleting

	e.logger.Debug().Str("table", tableName).Msg("table deleted")

	return desc, nil
}

// ListTables returns table names in order, after exclusiveStart, up to limit
// names (zero means no limit).
func (e *Engine) ListTables(ctx context.Context, exclusiveStart string, limit int) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkFailure(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(e.tables))

	for name := range e.tables {
		if name > exclusiveStart {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	return names, nil
}

// ClearTable removes all rows of a table
func (e *Engine) ClearTable(tableName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.getTable(tableName)
	if err != nil {
		return err
	}

	table.Clear()

	return nil
}

// Reset removes all tables
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tables = map[string]*Table{}
}

// PutItem applies a single put gated by expected conditions. It returns
// false when a newer write already owns the row.
func (e *Engine) PutItem(ctx context.Context, req *types.PutItemRequest, expected map[string]types.ExpectedCondition) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return false, err
	}

	table, err := e.getTable(req.TableName())
	if err != nil {
		return false, err
	}

	return table.Put(req, expected)
}

// DeleteItem applies a single delete gated by expected conditions and returns
// the number of removed rows.
func (e *Engine) DeleteItem(ctx context.Context, req *types.DeleteItemRequest, expected map[string]types.ExpectedCondition) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return 0, err
	}

	table, err := e.getTable(req.TableName())
	if err != nil {
		return 0, err
	}

	return table.Delete(req, expected)
}

// UpdateItem applies update actions to one row and returns the new item.
func (e *Engine) UpdateItem(ctx context.Context, tableName string, key types.Item, actions map[string]types.UpdateItemAction, expected map[string]types.ExpectedCondition, ts time.Time) (types.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return nil, err
	}

	table, err := e.getTable(tableName)
	if err != nil {
		return nil, err
	}

	return table.Update(key, actions, expected, ts)
}

// GetItem returns the row for a key. The second result is false when the
// row does not exist.
func (e *Engine) GetItem(ctx context.Context, req types.GetItemRequest) (types.Item, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkFailure(); err != nil {
		return nil, false, err
	}

	table, err := e.getTable(req.TableName)
	if err != nil {
		return nil, false, err
	}

	return table.Get(req.Key, req.AttributesToGet)
}

// Select returns the rows of a table matching indexed conditions.
func (e *Engine) Select(ctx context.Context, tableName string, conditions map[string]types.IndexedCondition, limit int) ([]types.Item, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkFailure(); err != nil {
		return nil, err
	}

	table, err := e.getTable(tableName)
	if err != nil {
		return nil, err
	}

	return table.Select(conditions, limit)
}

// ExecuteWriteBatch applies puts and deletes in order. Requests the engine
// cannot service are returned for the caller to retry.
func (e *Engine) ExecuteWriteBatch(ctx context.Context, requests []types.WriteItemBatchableRequest) ([]types.WriteItemBatchableRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkFailure(); err != nil {
		return nil, err
	}

	// every request is checked before the first one is applied
	for _, req := range requests {
		if err := e.validateWrite(req); err != nil {
			return nil, err
		}
	}

	unprocessed := []types.WriteItemBatchableRequest{}

	for _, req := range requests {
		if e.isThrottled(req.TableName()) {
			unprocessed = append(unprocessed, req)
			continue
		}

		table := e.tables[req.TableName()]

		var err error

		switch r := req.(type) {
		case *types.PutItemRequest:
			_, err = table.Put(r, nil)
		case *types.DeleteItemRequest:
			_, err = table.Delete(r, nil)
		}

		if err != nil {
			return nil, err
		}
	}

	if len(unprocessed) > 0 {
		e.logger.Warn().Int("unprocessed", len(unprocessed)).Msg("batch write partially processed")
	}

	return unprocessed, nil
}

func (e *Engine) validateWrite(req types.WriteItemBatchableRequest) error {
	table, err := e.getTable(req.TableName())
	if err != nil {
		return err
	}

	switch r := req.(type) {
	case *types.PutItemRequest:
		return table.Schema.ValidateItem(r.AttributeMap())
	case *types.DeleteItemRequest:
		return table.validateDeleteConditions(r.IndexedConditionMap())
	}

	return types.NewValidationError("unsupported batch write request %T", req)
}

// ExecuteGetBatch reads the key of every request. It returns one result per
// serviced request, in request order, and the requests it could not service.
func (e *Engine) ExecuteGetBatch(ctx context.Context, requests []types.GetItemRequest) ([]types.GetResult, []types.GetItemRequest, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkFailure(); err != nil {
		return nil, nil, err
	}

	results := make([]types.GetResult, 0, len(requests))
	unprocessed := []types.GetItemRequest{}

	for _, req := range requests {
		if e.isThrottled(req.TableName) {
			unprocessed = append(unprocessed, req)
			continue
		}

		table, err := e.getTable(req.TableName)
		if err != nil {
			return nil, nil, err
		}

		item, found, err := table.Get(req.Key, req.AttributesToGet)
		if err != nil {
			return nil, nil, err
		}

		result := types.GetResult{TableName: req.TableName, Items: []types.Item{}}
		if found {
			result.Items = append(result.Items, item)
		}

		results = append(results, result)
	}

	e.logger.Debug().
		Int("requested", len(requests)).
		Int("unprocessed", len(unprocessed)).
		Msg("batch get executed")

	return results, unprocessed, nil
}
