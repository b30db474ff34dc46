package core

import (
	"strings"

	"github.com/magnetodb/magneto/types"
)

const keySeparator = "\x1f"

type keySchema struct {
	HashKey   string
	RangeKeys []string
}

func newKeySchema(schema types.TableSchema) keySchema {
	return keySchema{
		HashKey:   schema.HashKey(),
		RangeKeys: schema.RangeKeys(),
	}
}

func (ks keySchema) names() []string {
	return append([]string{ks.HashKey}, ks.RangeKeys...)
}

// GetKey encodes the key attributes of item as the row identifier.
func (ks keySchema) GetKey(item types.Item) (string, error) {
	parts := make([]string, 0, 1+len(ks.RangeKeys))

	for _, name := range ks.names() {
		val, ok := item[name]
		if !ok {
			return "", types.NewValidationError("The number of conditions on the keys is invalid; field: %q", name)
		}

		parts = append(parts, val.Type().Code()+":"+val.String())
	}

	return strings.Join(parts, keySeparator), nil
}

func (ks keySchema) getKeyItem(item types.Item) types.Item {
	keyItem := types.Item{}

	for _, name := range ks.names() {
		if v, ok := item[name]; ok {
			keyItem[name] = v
		}
	}

	return keyItem
}

// keyFromConditions returns the key pinned by equality conditions on every
// key attribute, if any.
func (ks keySchema) keyFromConditions(conditions map[string]types.IndexedCondition) (types.Item, bool) {
	key := types.Item{}

	for _, name := range ks.names() {
		cond, ok := conditions[name]
		if !ok || cond.Type() != types.ConditionTypeEqual {
			return nil, false
		}

		key[name] = cond.Arg()
	}

	return key, len(key) == len(conditions)
}

// compare orders two rows by their key attributes, in key order.
func (ks keySchema) compare(a, b types.Item) int {
	for _, name := range ks.names() {
		cmp, err := a[name].Compare(b[name])
		if err != nil {
			return strings.Compare(a[name].String(), b[name].String())
		}

		if cmp != 0 {
			return cmp
		}
	}

	return 0
}
