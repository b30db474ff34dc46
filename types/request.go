package types

import "time"

// UpdateAction is the mutation applied to one attribute by an update.
type UpdateAction string

const (
	// UpdateActionPut replaces the attribute value
	UpdateActionPut UpdateAction = "put"
	// UpdateActionDelete removes the attribute, or elements of a set
	UpdateActionDelete UpdateAction = "delete"
	// UpdateActionAdd increments a number or extends a set
	UpdateActionAdd UpdateAction = "add"
)

var allowedUpdateActions = map[UpdateAction]bool{
	UpdateActionPut:    true,
	UpdateActionDelete: true,
	UpdateActionAdd:    true,
}

// WriteItemBatchableRequest is a write that can be submitted inside a batch.
// A storage engine applies it only if no write with a greater timestamp was
// already applied to the same row.
type WriteItemBatchableRequest interface {
	TableName() string
	Timestamp() time.Time
}

type writeRequest struct {
	tableName string
	timestamp time.Time
}

func newWriteRequest(tableName string, timestamp time.Time) (writeRequest, error) {
	if tableName == "" {
		return writeRequest{}, NewValidationError("table name must not be empty")
	}

	if timestamp.IsZero() {
		return writeRequest{}, NewValidationError("write request for table %q has no timestamp", tableName)
	}

	return writeRequest{tableName: tableName, timestamp: timestamp}, nil
}

// TableName returns the target table
func (r writeRequest) TableName() string { return r.tableName }

// Timestamp returns the operation timestamp
func (r writeRequest) Timestamp() time.Time { return r.timestamp }

// PutItemRequest inserts or fully replaces a row.
type PutItemRequest struct {
	writeRequest
	attributeMap Item
}

// NewPutItemRequest builds a put for the row described by attributeMap,
// which holds the key and any additional attributes.
func NewPutItemRequest(tableName string, timestamp time.Time, attributeMap Item) (*PutItemRequest, error) {
	base, err := newWriteRequest(tableName, timestamp)
	if err != nil {
		return nil, err
	}

	if len(attributeMap) == 0 {
		return nil, NewValidationError("put request for table %q has no attributes", tableName)
	}

	return &PutItemRequest{writeRequest: base, attributeMap: attributeMap.Copy()}, nil
}

// AttributeMap returns a copy of the row attributes
func (r *PutItemRequest) AttributeMap() Item { return r.attributeMap.Copy() }

// DeleteItemRequest removes every row matching all of its conditions.
type DeleteItemRequest struct {
	writeRequest
	indexedConditionMap map[string]IndexedCondition
}

// NewDeleteItemRequest builds a delete for the rows matching the conjunction
// of indexedConditionMap.
func NewDeleteItemRequest(tableName string, timestamp time.Time, indexedConditionMap map[string]IndexedCondition) (*DeleteItemRequest, error) {
	base, err := newWriteRequest(tableName, timestamp)
	if err != nil {
		return nil, err
	}

	conditions := make(map[string]IndexedCondition, len(indexedConditionMap))
	for name, cond := range indexedConditionMap {
		conditions[name] = cond
	}

	return &DeleteItemRequest{writeRequest: base, indexedConditionMap: conditions}, nil
}

// NewDeleteItemRequestForKey builds a delete matching the given key by equality.
func NewDeleteItemRequestForKey(tableName string, timestamp time.Time, key Item) (*DeleteItemRequest, error) {
	conditions := make(map[string]IndexedCondition, len(key))

	for name, v := range key {
		cond, err := Eq(v)
		if err != nil {
			return nil, err
		}

		conditions[name] = cond
	}

	return NewDeleteItemRequest(tableName, timestamp, conditions)
}

// IndexedConditionMap returns a copy of the delete conditions
func (r *DeleteItemRequest) IndexedConditionMap() map[string]IndexedCondition {
	conditions := make(map[string]IndexedCondition, len(r.indexedConditionMap))
	for name, cond := range r.indexedConditionMap {
		conditions[name] = cond
	}

	return conditions
}

// UpdateItemAction is one mutation within an item-level update.
type UpdateItemAction struct {
	action UpdateAction
	value  AttributeValue
}

// NewUpdateItemAction validates the action and its value. PUT needs a value,
// ADD needs a number or a set, DELETE accepts no value or a set.
func NewUpdateItemAction(action UpdateAction, value AttributeValue) (UpdateItemAction, error) {
	if !allowedUpdateActions[action] {
		return UpdateItemAction{}, NewValidationError("update action %q isn't allowed", action)
	}

	switch action {
	case UpdateActionPut:
		if value.IsZero() {
			return UpdateItemAction{}, NewValidationError("update action %q requires a value", action)
		}
	case UpdateActionAdd:
		if value.IsZero() || !(value.Type() == TypeNumber || value.Type().IsSet()) {
			return UpdateItemAction{}, NewValidationError("update action %q requires a number or a set", action)
		}
	case UpdateActionDelete:
		if !value.IsZero() && !value.Type().IsSet() {
			return UpdateItemAction{}, NewValidationError("update action %q only accepts set values", action)
		}
	}

	return UpdateItemAction{action: action, value: value}, nil
}

// Action returns the action name
func (a UpdateItemAction) Action() UpdateAction { return a.action }

// Value returns the action argument, zero for a plain DELETE
func (a UpdateItemAction) Value() AttributeValue { return a.value }

// Apply returns the new value of an attribute. The second result is false
// when the attribute must be removed.
func (a UpdateItemAction) Apply(current AttributeValue, present bool) (AttributeValue, bool, error) {
	switch a.action {
	case UpdateActionPut:
		return a.value, true, nil
	case UpdateActionAdd:
		if !present {
			return a.value, true, nil
		}

		v, err := current.Add(a.value)

		return v, err == nil, err
	case UpdateActionDelete:
		if !present || a.value.IsZero() {
			return AttributeValue{}, false, nil
		}

		return current.Remove(a.value)
	}

	return AttributeValue{}, false, NewValidationError("update action %q isn't allowed", a.action)
}

// GetItemRequest asks for one row of a table by its key.
type GetItemRequest struct {
	TableName       string
	Key             Item
	AttributesToGet []string
	ConsistentRead  bool
}

// GetResult holds the rows found for one GetItemRequest, at most one.
type GetResult struct {
	TableName string
	Items     []Item
}
