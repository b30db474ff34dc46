package types

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// ElementType is the scalar type of an attribute.
type ElementType string

// CollectionType is the optional collection wrapping an element type.
type CollectionType string

const (
	// ElementTypeString is a UTF-8 string attribute
	ElementTypeString ElementType = "string"
	// ElementTypeNumber is a decimal number attribute
	ElementTypeNumber ElementType = "number"
	// ElementTypeBlob is a binary attribute
	ElementTypeBlob ElementType = "blob"

	// CollectionTypeNone marks a scalar attribute
	CollectionTypeNone CollectionType = ""
	// CollectionTypeSet marks a set of scalars
	CollectionTypeSet CollectionType = "set"

	maxNumberScale = 38
)

var (
	allowedElementTypes = map[ElementType]bool{
		ElementTypeString: true,
		ElementTypeNumber: true,
		ElementTypeBlob:   true,
	}

	allowedCollectionTypes = map[CollectionType]bool{
		CollectionTypeNone: true,
		CollectionTypeSet:  true,
	}

	typeCodes = map[AttributeType]string{
		{ElementTypeString, CollectionTypeNone}: "S",
		{ElementTypeNumber, CollectionTypeNone}: "N",
		{ElementTypeBlob, CollectionTypeNone}:   "B",
		{ElementTypeString, CollectionTypeSet}:  "SS",
		{ElementTypeNumber, CollectionTypeSet}:  "NS",
		{ElementTypeBlob, CollectionTypeSet}:    "BS",
	}
)

// Predefined attribute types.
var (
	TypeString    = AttributeType{ElementTypeString, CollectionTypeNone}
	TypeNumber    = AttributeType{ElementTypeNumber, CollectionTypeNone}
	TypeBlob      = AttributeType{ElementTypeBlob, CollectionTypeNone}
	TypeStringSet = AttributeType{ElementTypeString, CollectionTypeSet}
	TypeNumberSet = AttributeType{ElementTypeNumber, CollectionTypeSet}
	TypeBlobSet   = AttributeType{ElementTypeBlob, CollectionTypeSet}
)

// AttributeType is the declared type of an attribute. Two types are equal
// (==) iff element and collection types match.
type AttributeType struct {
	elementType    ElementType
	collectionType CollectionType
}

// NewAttributeType validates and builds an AttributeType.
func NewAttributeType(element ElementType, collection CollectionType) (AttributeType, error) {
	if !allowedElementTypes[element] {
		return AttributeType{}, NewValidationError("attribute type %q isn't allowed", element)
	}

	if !allowedCollectionTypes[collection] {
		return AttributeType{}, NewValidationError("attribute type collection %q isn't allowed", collection)
	}

	return AttributeType{elementType: element, collectionType: collection}, nil
}

// ParseAttributeType maps a DynamoDB type descriptor (S, N, B, SS, NS, BS).
func ParseAttributeType(code string) (AttributeType, error) {
	for typ, c := range typeCodes {
		if c == code {
			return typ, nil
		}
	}

	return AttributeType{}, NewValidationError("attribute type descriptor %q isn't allowed", code)
}

// ElementType returns the scalar type
func (t AttributeType) ElementType() ElementType { return t.elementType }

// CollectionType returns the collection type, empty for scalars
func (t AttributeType) CollectionType() CollectionType { return t.collectionType }

// IsSet reports whether values of this type are sets
func (t AttributeType) IsSet() bool { return t.collectionType == CollectionTypeSet }

// IsZero reports whether the type was never initialized.
func (t AttributeType) IsZero() bool { return t.elementType == "" }

// Scalar returns the element type without its collection.
func (t AttributeType) Scalar() AttributeType {
	return AttributeType{elementType: t.elementType}
}

// Code returns the DynamoDB type descriptor.
func (t AttributeType) Code() string {
	return typeCodes[t]
}

func (t AttributeType) String() string {
	if t.IsSet() {
		return fmt.Sprintf("%s_%s", t.elementType, t.collectionType)
	}

	return string(t.elementType)
}

// AttributeDefinition identifies one column of a table.
type AttributeDefinition struct {
	name string
	typ  AttributeType
}

// NewAttributeDefinition validates and builds an AttributeDefinition.
func NewAttributeDefinition(name string, typ AttributeType) (AttributeDefinition, error) {
	if name == "" {
		return AttributeDefinition{}, NewValidationError("attribute name must not be empty")
	}

	if typ.IsZero() {
		return AttributeDefinition{}, NewValidationError("attribute %q has no type", name)
	}

	return AttributeDefinition{name: name, typ: typ}, nil
}

// Name returns the attribute name
func (d AttributeDefinition) Name() string { return d.name }

// Type returns the attribute type
func (d AttributeDefinition) Type() AttributeType { return d.typ }

// Item is a row: attribute name to value.
type Item map[string]AttributeValue

// Copy returns a shallow copy of the item. Values are immutable.
func (i Item) Copy() Item {
	copy := Item{}
	for key, val := range i {
		copy[key] = val
	}

	return copy
}

// Project keeps only the named attributes. An empty list keeps everything.
func (i Item) Project(names []string) Item {
	if len(names) == 0 {
		return i.Copy()
	}

	projected := Item{}

	for _, name := range names {
		if v, ok := i[name]; ok {
			projected[name] = v
		}
	}

	return projected
}

// Equal reports whether both items hold the same attributes and values.
func (i Item) Equal(other Item) bool {
	if len(i) != len(other) {
		return false
	}

	for name, v := range i {
		o, ok := other[name]
		if !ok || !v.Equal(o) {
			return false
		}
	}

	return true
}

// AttributeValue is a concrete value tagged with its declared type.
// Numbers are kept as their canonical decimal text.
type AttributeValue struct {
	typ     AttributeType
	str     string
	blob    []byte
	strSet  []string
	blobSet [][]byte
}

// NewStringValue builds a string scalar
func NewStringValue(s string) AttributeValue {
	return AttributeValue{typ: TypeString, str: s}
}

// NewNumberValue builds a number scalar from its decimal text. The text is
// stored in canonical form so numerically equal values encode the same.
func NewNumberValue(n string) (AttributeValue, error) {
	r, err := parseNumber(n)
	if err != nil {
		return AttributeValue{}, err
	}

	return AttributeValue{typ: TypeNumber, str: formatNumber(r)}, nil
}

// NewBlobValue builds a binary scalar
func NewBlobValue(b []byte) AttributeValue {
	return AttributeValue{typ: TypeBlob, blob: append([]byte(nil), b...)}
}

// NewStringSetValue builds a string set. Duplicates are collapsed.
func NewStringSetValue(values ...string) (AttributeValue, error) {
	if len(values) == 0 {
		return AttributeValue{}, NewValidationError("string set must not be empty")
	}

	return AttributeValue{typ: TypeStringSet, strSet: uniqueStrings(values)}, nil
}

// NewNumberSetValue builds a number set. Numerically equal members are collapsed.
func NewNumberSetValue(values ...string) (AttributeValue, error) {
	if len(values) == 0 {
		return AttributeValue{}, NewValidationError("number set must not be empty")
	}

	normalized := make([]string, 0, len(values))

	for _, v := range values {
		r, err := parseNumber(v)
		if err != nil {
			return AttributeValue{}, err
		}

		normalized = append(normalized, formatNumber(r))
	}

	return AttributeValue{typ: TypeNumberSet, strSet: uniqueStrings(normalized)}, nil
}

// NewBlobSetValue builds a binary set. Duplicates are collapsed.
func NewBlobSetValue(values ...[]byte) (AttributeValue, error) {
	if len(values) == 0 {
		return AttributeValue{}, NewValidationError("blob set must not be empty")
	}

	return AttributeValue{typ: TypeBlobSet, blobSet: uniqueBlobs(values)}, nil
}

// NewAttributeValue builds a value for typ from a Go value whose shape must
// match it: string or []byte for scalars, []string or [][]byte for sets.
func NewAttributeValue(typ AttributeType, value interface{}) (AttributeValue, error) {
	if _, err := NewAttributeType(typ.elementType, typ.collectionType); err != nil {
		return AttributeValue{}, err
	}

	switch typ {
	case TypeString:
		if s, ok := value.(string); ok {
			return NewStringValue(s), nil
		}
	case TypeNumber:
		if s, ok := value.(string); ok {
			return NewNumberValue(s)
		}
	case TypeBlob:
		if b, ok := value.([]byte); ok {
			return NewBlobValue(b), nil
		}
	case TypeStringSet:
		if s, ok := value.([]string); ok {
			return NewStringSetValue(s...)
		}
	case TypeNumberSet:
		if s, ok := value.([]string); ok {
			return NewNumberSetValue(s...)
		}
	case TypeBlobSet:
		if b, ok := value.([][]byte); ok {
			return NewBlobSetValue(b...)
		}
	}

	return AttributeValue{}, NewValidationError("value of Go type %T does not match attribute type %s", value, typ)
}

// Type returns the declared type
func (v AttributeValue) Type() AttributeType { return v.typ }

// IsZero reports whether the value was never initialized.
func (v AttributeValue) IsZero() bool { return v.typ.IsZero() }

// Value returns the Go representation: string, []byte, []string or [][]byte.
func (v AttributeValue) Value() interface{} {
	switch v.typ {
	case TypeString, TypeNumber:
		return v.str
	case TypeBlob:
		return append([]byte(nil), v.blob...)
	case TypeStringSet, TypeNumberSet:
		return append([]string(nil), v.strSet...)
	case TypeBlobSet:
		out := make([][]byte, len(v.blobSet))
		for i, b := range v.blobSet {
			out[i] = append([]byte(nil), b...)
		}

		return out
	}

	return nil
}

// Equal compares type and value. Numbers compare numerically.
func (v AttributeValue) Equal(other AttributeValue) bool {
	if v.typ != other.typ {
		return false
	}

	switch v.typ {
	case TypeString:
		return v.str == other.str
	case TypeNumber:
		cmp, err := v.Compare(other)
		return err == nil && cmp == 0
	case TypeBlob:
		return bytes.Equal(v.blob, other.blob)
	case TypeStringSet, TypeNumberSet:
		return equalStrings(v.strSet, other.strSet)
	case TypeBlobSet:
		return equalBlobs(v.blobSet, other.blobSet)
	}

	return true
}

// Compare orders two scalars of the same type. It returns -1, 0 or 1.
func (v AttributeValue) Compare(other AttributeValue) (int, error) {
	if v.typ != other.typ {
		return 0, NewValidationError("cannot compare %s with %s", v.typ, other.typ)
	}

	switch v.typ {
	case TypeString:
		switch {
		case v.str < other.str:
			return -1, nil
		case v.str > other.str:
			return 1, nil
		}

		return 0, nil
	case TypeNumber:
		a, err := parseNumber(v.str)
		if err != nil {
			return 0, err
		}

		b, err := parseNumber(other.str)
		if err != nil {
			return 0, err
		}

		return a.Cmp(b), nil
	case TypeBlob:
		return bytes.Compare(v.blob, other.blob), nil
	}

	return 0, NewValidationError("values of type %s are not ordered", v.typ)
}

// Add returns the numeric sum of two numbers or the union of two sets of the
// same type.
func (v AttributeValue) Add(other AttributeValue) (AttributeValue, error) {
	if v.typ != other.typ {
		return AttributeValue{}, NewValidationError("cannot add %s to %s", other.typ, v.typ)
	}

	switch v.typ {
	case TypeNumber:
		a, err := parseNumber(v.str)
		if err != nil {
			return AttributeValue{}, err
		}

		b, err := parseNumber(other.str)
		if err != nil {
			return AttributeValue{}, err
		}

		return AttributeValue{typ: TypeNumber, str: formatNumber(new(big.Rat).Add(a, b))}, nil
	case TypeStringSet:
		return NewStringSetValue(append(append([]string{}, v.strSet...), other.strSet...)...)
	case TypeNumberSet:
		return NewNumberSetValue(append(append([]string{}, v.strSet...), other.strSet...)...)
	case TypeBlobSet:
		return NewBlobSetValue(append(append([][]byte{}, v.blobSet...), other.blobSet...)...)
	}

	return AttributeValue{}, NewValidationError("add is not supported for %s", v.typ)
}

// Remove returns the set difference v - other. The second result is false
// when nothing is left.
func (v AttributeValue) Remove(other AttributeValue) (AttributeValue, bool, error) {
	if v.typ != other.typ || !v.typ.IsSet() {
		return AttributeValue{}, false, NewValidationError("cannot remove %s from %s", other.typ, v.typ)
	}

	if v.typ == TypeBlobSet {
		left := [][]byte{}

		for _, b := range v.blobSet {
			if !containsBlob(other.blobSet, b) {
				left = append(left, b)
			}
		}

		if len(left) == 0 {
			return AttributeValue{}, false, nil
		}

		return AttributeValue{typ: v.typ, blobSet: left}, true, nil
	}

	removed := map[string]bool{}
	for _, s := range other.strSet {
		removed[s] = true
	}

	left := []string{}

	for _, s := range v.strSet {
		if !removed[s] {
			left = append(left, s)
		}
	}

	if len(left) == 0 {
		return AttributeValue{}, false, nil
	}

	return AttributeValue{typ: v.typ, strSet: left}, true, nil
}

func (v AttributeValue) String() string {
	switch v.typ {
	case TypeString, TypeNumber:
		return v.str
	case TypeBlob:
		return fmt.Sprintf("%x", v.blob)
	case TypeStringSet, TypeNumberSet:
		return fmt.Sprintf("%v", v.strSet)
	case TypeBlobSet:
		return fmt.Sprintf("%x", v.blobSet)
	}

	return ""
}

func parseNumber(n string) (*big.Rat, error) {
	if n == "" || strings.ContainsRune(n, '/') {
		return nil, NewValidationError("%q is not a valid number", n)
	}

	r, ok := new(big.Rat).SetString(n)
	if !ok {
		return nil, NewValidationError("%q is not a valid number", n)
	}

	return r, nil
}

// formatNumber prints r as a plain decimal. Numbers parsed from decimal text
// always have a denominator dividing a power of ten.
func formatNumber(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}

	ten := big.NewInt(10)
	scale := new(big.Int).Set(ten)

	for digits := 1; digits <= maxNumberScale; digits++ {
		if new(big.Int).Mod(scale, r.Denom()).Sign() == 0 {
			return r.FloatString(digits)
		}

		scale.Mul(scale, ten)
	}

	return strings.TrimRight(r.FloatString(maxNumberScale), "0")
}

func uniqueStrings(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))

	for _, v := range values {
		if seen[v] {
			continue
		}

		seen[v] = true
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}

func uniqueBlobs(values [][]byte) [][]byte {
	out := make([][]byte, 0, len(values))

	for _, v := range values {
		if !containsBlob(out, v) {
			out = append(out, append([]byte(nil), v...))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i], out[j]) < 0
	})

	return out
}

func containsBlob(set [][]byte, b []byte) bool {
	for _, s := range set {
		if bytes.Equal(s, b) {
			return true
		}
	}

	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func equalBlobs(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}
