package types

import (
	"fmt"
	"strings"
	"time"
)

// TableStatus is the lifecycle state of a table
type TableStatus string

const (
	// TableStatusCreating while the backend provisions the table
	TableStatusCreating TableStatus = "CREATING"
	// TableStatusActive when the table accepts reads and writes
	TableStatusActive TableStatus = "ACTIVE"
	// TableStatusDeleting while the backend drops the table
	TableStatusDeleting TableStatus = "DELETING"
)

// TableSchema describes the identity, key structure and indexed attributes
// of a table. The first key attribute is the partition key, the rest are
// extra key parts ordering rows inside a partition.
type TableSchema struct {
	tableName               string
	attributeDefs           []AttributeDefinition
	keyAttributes           []string
	indexedNonKeyAttributes []string
}

// NewTableSchema validates and builds a TableSchema.
func NewTableSchema(tableName string, attributeDefs []AttributeDefinition, keyAttributes []string, indexedNonKeyAttributes []string) (TableSchema, error) {
	if tableName == "" {
		return TableSchema{}, NewValidationError("table name must not be empty")
	}

	if len(keyAttributes) == 0 {
		return TableSchema{}, NewValidationError("No Hash Key specified in schema. All tables must have exactly one hash key")
	}

	schema := TableSchema{
		tableName:               tableName,
		attributeDefs:           append([]AttributeDefinition(nil), attributeDefs...),
		keyAttributes:           append([]string(nil), keyAttributes...),
		indexedNonKeyAttributes: append([]string(nil), indexedNonKeyAttributes...),
	}

	seen := map[string]bool{}

	for _, name := range keyAttributes {
		if seen[name] {
			return TableSchema{}, NewValidationError("key attribute %q is repeated", name)
		}

		seen[name] = true

		typ, ok := schema.AttributeType(name)
		if !ok {
			return TableSchema{}, NewValidationError("Key attribute %q not specified in Attribute Definitions.", name)
		}

		if typ.IsSet() {
			return TableSchema{}, NewValidationError("key attribute %q must be a scalar, got %s", name, typ)
		}
	}

	for _, name := range indexedNonKeyAttributes {
		if seen[name] {
			return TableSchema{}, NewValidationError("indexed attribute %q is already a key attribute", name)
		}

		typ, ok := schema.AttributeType(name)
		if !ok {
			return TableSchema{}, NewValidationError("Indexed attribute %q not specified in Attribute Definitions.", name)
		}

		if typ.IsSet() {
			return TableSchema{}, NewValidationError("indexed attribute %q must be a scalar, got %s", name, typ)
		}
	}

	return schema, nil
}

// TableName returns the table name
func (s TableSchema) TableName() string { return s.tableName }

// AttributeDefs returns a copy of the attribute definitions
func (s TableSchema) AttributeDefs() []AttributeDefinition {
	return append([]AttributeDefinition(nil), s.attributeDefs...)
}

// KeyAttributes returns a copy of the ordered key attribute names
func (s TableSchema) KeyAttributes() []string {
	return append([]string(nil), s.keyAttributes...)
}

// IndexedNonKeyAttributes returns a copy of the indexed attribute names
func (s TableSchema) IndexedNonKeyAttributes() []string {
	return append([]string(nil), s.indexedNonKeyAttributes...)
}

// HashKey returns the partition key name
func (s TableSchema) HashKey() string {
	if len(s.keyAttributes) == 0 {
		return ""
	}

	return s.keyAttributes[0]
}

// RangeKeys returns the extra key attribute names
func (s TableSchema) RangeKeys() []string {
	if len(s.keyAttributes) < 2 {
		return nil
	}

	return append([]string(nil), s.keyAttributes[1:]...)
}

// IsKeyAttribute reports whether name is part of the key
func (s TableSchema) IsKeyAttribute(name string) bool {
	for _, k := range s.keyAttributes {
		if k == name {
			return true
		}
	}

	return false
}

// IsIndexed reports whether name is a key or an indexed attribute
func (s TableSchema) IsIndexed(name string) bool {
	if s.IsKeyAttribute(name) {
		return true
	}

	for _, k := range s.indexedNonKeyAttributes {
		if k == name {
			return true
		}
	}

	return false
}

// AttributeType returns the declared type of an attribute
func (s TableSchema) AttributeType(name string) (AttributeType, bool) {
	for _, def := range s.attributeDefs {
		if def.Name() == name {
			return def.Type(), true
		}
	}

	return AttributeType{}, false
}

// KeyOf extracts the key attributes of item and checks their declared types.
func (s TableSchema) KeyOf(item Item) (Item, error) {
	key := Item{}

	for _, name := range s.keyAttributes {
		v, ok := item[name]
		if !ok {
			return nil, NewValidationError("One of the required keys was not given a value: %q", name)
		}

		if typ, _ := s.AttributeType(name); v.Type() != typ {
			return nil, NewValidationError("Invalid attribute value type; field %q expects %s, got %s", name, typ, v.Type())
		}

		key[name] = v
	}

	return key, nil
}

// ValidateItem checks the key and the declared type of every defined attribute.
func (s TableSchema) ValidateItem(item Item) error {
	if _, err := s.KeyOf(item); err != nil {
		return err
	}

	for name, v := range item {
		if typ, ok := s.AttributeType(name); ok && v.Type() != typ {
			return NewValidationError("Invalid attribute value type; field %q expects %s, got %s", name, typ, v.Type())
		}
	}

	return nil
}

// Equal compares table name and key attributes by exact sequence, then
// attribute definitions and indexed attributes as unordered sets.
func (s TableSchema) Equal(other TableSchema) bool {
	if s.tableName != other.tableName {
		return false
	}

	if len(s.keyAttributes) != len(other.keyAttributes) {
		return false
	}

	for i := range s.keyAttributes {
		if s.keyAttributes[i] != other.keyAttributes[i] {
			return false
		}
	}

	if !sameSet(s.attributeDefs, other.attributeDefs) {
		return false
	}

	return sameSet(s.indexedNonKeyAttributes, other.indexedNonKeyAttributes)
}

func (s TableSchema) String() string {
	return fmt.Sprintf("%s(%s)", s.tableName, strings.Join(s.keyAttributes, ", "))
}

func sameSet[T comparable](a, b []T) bool {
	setA := make(map[T]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}

	setB := make(map[T]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}

	if len(setA) != len(setB) {
		return false
	}

	for v := range setA {
		if !setB[v] {
			return false
		}
	}

	return true
}

// TableMeta is the stored description of a table.
type TableMeta struct {
	Schema       TableSchema
	Status       TableStatus
	CreationTime time.Time
	ItemCount    int64
}
