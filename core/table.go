package core

import (
	"sort"
	"time"

	"github.com/magnetodb/magneto/types"
)

// row is a stored item plus the timestamp of the last write applied to it.
// Deleted rows are kept as tombstones so older writes cannot resurrect them.
type row struct {
	key       types.Item
	item      types.Item
	timestamp time.Time
	deleted   bool
}

func (r *row) live() types.Item {
	if r == nil || r.deleted {
		return nil
	}

	return r.item
}

// accepts reports whether a write stamped ts wins over the row state.
func (r *row) accepts(ts time.Time) bool {
	return r == nil || !r.timestamp.After(ts)
}

// Table holds the rows of one table ordered by key.
type Table struct {
	Name         string
	Schema       types.TableSchema
	Status       types.TableStatus
	CreationTime time.Time
	KeySchema    keySchema
	SortedKeys   []string
	Data         map[string]*row
}

// NewTable creates a new Table for schema
func NewTable(schema types.TableSchema, now time.Time) *Table {
	return &Table{
		Name:         schema.TableName(),
		Schema:       schema,
		Status:       types.TableStatusActive,
		CreationTime: now,
		KeySchema:    newKeySchema(schema),
		SortedKeys:   []string{},
		Data:         map[string]*row{},
	}
}

func (t *Table) setRow(key string, r *row) {
	_, exists := t.Data[key]
	t.Data[key] = r

	if exists {
		return
	}

	pos := sort.Search(len(t.SortedKeys), func(i int) bool {
		return t.KeySchema.compare(t.Data[t.SortedKeys[i]].key, r.key) >= 0
	})

	t.SortedKeys = append(t.SortedKeys, "")
	copy(t.SortedKeys[pos+1:], t.SortedKeys[pos:])
	t.SortedKeys[pos] = key
}

// Clear removes every row from the table
func (t *Table) Clear() {
	t.SortedKeys = []string{}
	t.Data = map[string]*row{}
}

// Put applies a put request. It returns false when a newer write already
// owns the row.
func (t *Table) Put(req *types.PutItemRequest, expected map[string]types.ExpectedCondition) (bool, error) {
	item := req.AttributeMap()

	if err := t.Schema.ValidateItem(item); err != nil {
		return false, err
	}

	key, err := t.KeySchema.GetKey(item)
	if err != nil {
		return false, err
	}

	current := t.Data[key]

	if !types.MatchExpected(current.live(), expected) {
		return false, types.NewConditionalCheckFailedError()
	}

	if !current.accepts(req.Timestamp()) {
		return false, nil
	}

	t.setRow(key, &row{
		key:       t.KeySchema.getKeyItem(item),
		item:      item,
		timestamp: req.Timestamp(),
	})

	return true, nil
}

// Delete applies a delete request to every row matching its conditions and
// returns the number of rows removed.
func (t *Table) Delete(req *types.DeleteItemRequest, expected map[string]types.ExpectedCondition) (int, error) {
	conditions := req.IndexedConditionMap()
	if err := t.validateDeleteConditions(conditions); err != nil {
		return 0, err
	}

	if keyItem, ok := t.KeySchema.keyFromConditions(conditions); ok {
		return t.deleteKey(keyItem, req.Timestamp(), expected)
	}

	if len(expected) > 0 {
		return 0, types.NewValidationError("expected conditions require the full key of a single item")
	}

	keys, err := t.matchingKeys(conditions, 0)
	if err != nil {
		return 0, err
	}

	deleted := 0

	for _, key := range keys {
		r := t.Data[key]
		if !r.accepts(req.Timestamp()) {
			continue
		}

		r.deleted = true
		r.item = nil
		r.timestamp = req.Timestamp()
		deleted++
	}

	return deleted, nil
}

func (t *Table) deleteKey(keyItem types.Item, ts time.Time, expected map[string]types.ExpectedCondition) (int, error) {
	if _, err := t.Schema.KeyOf(keyItem); err != nil {
		return 0, err
	}

	key, err := t.KeySchema.GetKey(keyItem)
	if err != nil {
		return 0, err
	}

	current := t.Data[key]

	if !types.MatchExpected(current.live(), expected) {
		return 0, types.NewConditionalCheckFailedError()
	}

	if !current.accepts(ts) {
		return 0, nil
	}

	deleted := 0
	if current.live() != nil {
		deleted = 1
	}

	// delete is idempotent, a missing row still records the tombstone
	t.setRow(key, &row{key: keyItem, timestamp: ts, deleted: true})

	return deleted, nil
}

// Update applies actions to the row identified by key, creating it when
// missing. It returns the resulting item.
func (t *Table) Update(key types.Item, actions map[string]types.UpdateItemAction, expected map[string]types.ExpectedCondition, ts time.Time) (types.Item, error) {
	keyItem, err := t.Schema.KeyOf(key)
	if err != nil {
		return nil, err
	}

	for name := range actions {
		if t.Schema.IsKeyAttribute(name) {
			return nil, types.NewValidationError("Cannot update attribute %q. This attribute is part of the key", name)
		}
	}

	encoded, err := t.KeySchema.GetKey(keyItem)
	if err != nil {
		return nil, err
	}

	current := t.Data[encoded]

	if !types.MatchExpected(current.live(), expected) {
		return nil, types.NewConditionalCheckFailedError()
	}

	item := current.live().Copy()
	if !current.accepts(ts) {
		return item, nil
	}

	for name, v := range keyItem {
		item[name] = v
	}

	for name, action := range actions {
		old, present := item[name]

		v, keep, err := action.Apply(old, present)
		if err != nil {
			return nil, err
		}

		if keep {
			item[name] = v
			continue
		}

		delete(item, name)
	}

	if err := t.Schema.ValidateItem(item); err != nil {
		return nil, err
	}

	t.setRow(encoded, &row{key: keyItem, item: item, timestamp: ts})

	return item.Copy(), nil
}

// Get returns the live row for key, projected to attributesToGet.
func (t *Table) Get(key types.Item, attributesToGet []string) (types.Item, bool, error) {
	keyItem, err := t.Schema.KeyOf(key)
	if err != nil {
		return nil, false, err
	}

	if len(keyItem) != len(key) {
		return nil, false, types.NewValidationError("The provided key element does not match the schema")
	}

	encoded, err := t.KeySchema.GetKey(keyItem)
	if err != nil {
		return nil, false, err
	}

	item := t.Data[encoded].live()
	if item == nil {
		return nil, false, nil
	}

	return item.Project(attributesToGet), true, nil
}

// Select returns the live rows matching every condition, ordered by key.
// A limit of zero means no limit.
func (t *Table) Select(conditions map[string]types.IndexedCondition, limit int) ([]types.Item, error) {
	if err := t.validateConditions(conditions); err != nil {
		return nil, err
	}

	keys, err := t.matchingKeys(conditions, limit)
	if err != nil {
		return nil, err
	}

	items := make([]types.Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, t.Data[key].item.Copy())
	}

	return items, nil
}

func (t *Table) validateDeleteConditions(conditions map[string]types.IndexedCondition) error {
	if len(conditions) == 0 {
		return types.NewValidationError("delete request for table %q has no key conditions", t.Name)
	}

	return t.validateConditions(conditions)
}

func (t *Table) validateConditions(conditions map[string]types.IndexedCondition) error {
	if _, ok := conditions[t.KeySchema.HashKey]; !ok && len(conditions) > 0 {
		return types.NewValidationError("Query condition missed key schema element: %s", t.KeySchema.HashKey)
	}

	if cond, ok := conditions[t.KeySchema.HashKey]; ok && cond.Type() != types.ConditionTypeEqual {
		return types.NewValidationError("Query key condition not supported on hash key %q", t.KeySchema.HashKey)
	}

	for name, cond := range conditions {
		if !t.Schema.IsIndexed(name) {
			return types.NewValidationError("attribute %q is not indexed", name)
		}

		if typ, _ := t.Schema.AttributeType(name); cond.Arg().Type() != typ {
			return types.NewValidationError("condition on %q expects %s, got %s", name, typ, cond.Arg().Type())
		}
	}

	return nil
}

func (t *Table) matchingKeys(conditions map[string]types.IndexedCondition, limit int) ([]string, error) {
	keys := []string{}

	for _, key := range t.SortedKeys {
		item := t.Data[key].live()
		if item == nil {
			continue
		}

		matched, err := matchItem(item, conditions)
		if err != nil {
			return nil, err
		}

		if !matched {
			continue
		}

		keys = append(keys, key)

		if limit > 0 && len(keys) == limit {
			break
		}
	}

	return keys, nil
}

func matchItem(item types.Item, conditions map[string]types.IndexedCondition) (bool, error) {
	for name, cond := range conditions {
		v, ok := item[name]
		if !ok {
			return false, nil
		}

		matched, err := cond.Match(v)
		if err != nil || !matched {
			return false, err
		}
	}

	return true, nil
}

// Description returns the stored description of the table
func (t *Table) Description() types.TableMeta {
	var count int64

	for _, r := range t.Data {
		if !r.deleted {
			count++
		}
	}

	return types.TableMeta{
		Schema:       t.Schema,
		Status:       t.Status,
		CreationTime: t.CreationTime,
		ItemCount:    count,
	}
}
