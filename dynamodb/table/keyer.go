package table

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Keyer builds one key value (partition or sort, primary or secondary) from a
// marshaled entity.
type Keyer interface {
	Key(doc map[string]types.AttributeValue) (string, error)
}

// FmtKeyer tries to find the `keys` in the document being inserted, and passes them to the format string.
// The keys can only be of type string, number, or bytes.
// Keys support nesting by using dot notation, e.g. "meta.version".
//
// The format string should only use %s, not %d. This is because numbers are encoded as strings in dynamo.
// If any key is not found in the document, an empty string is passed instead.
func FmtKeyer(fmt string, keys ...string) *keyFormat {
	return &keyFormat{fmt, keys}
}

type keyFormat struct {
	fmt  string
	keys []string
}

func (k keyFormat) Key(doc map[string]types.AttributeValue) (string, error) {
	vals := make([]any, len(k.keys))
	for i, key := range k.keys {
		vals[i] = ""
		v, found := lookup(doc, key)
		if !found {
			continue
		}
		s, err := scalarString(key, v)
		if err != nil {
			return "", err
		}
		vals[i] = s
	}
	return fmt.Sprintf(k.fmt, vals...), nil
}

// CopyKeyer uses the value of a single attribute as the key. Unlike FmtKeyer
// the attribute is required.
func CopyKeyer(key string) *copyKey {
	return &copyKey{key}
}

type copyKey struct {
	key string
}

func (k copyKey) Key(doc map[string]types.AttributeValue) (string, error) {
	v, found := lookup(doc, k.key)
	if !found {
		return "", fmt.Errorf("key %q not found", k.key)
	}
	return scalarString(k.key, v)
}

func ConstKeyer(val string) *constKey {
	return &constKey{val}
}

type constKey struct {
	val string
}

func (k constKey) Key(map[string]types.AttributeValue) (string, error) {
	return k.val, nil
}

func lookup(doc map[string]types.AttributeValue, path string) (types.AttributeValue, bool) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		cur = m.Value
	}
	return nil, false
}

func scalarString(key string, v types.AttributeValue) (string, error) {
	switch attr := v.(type) {
	case *types.AttributeValueMemberS:
		return attr.Value, nil
	case *types.AttributeValueMemberN:
		return attr.Value, nil
	case *types.AttributeValueMemberB:
		return string(attr.Value), nil
	default:
		return "", fmt.Errorf("type for key %q is not string, number, or bytes, got %T", key, v)
	}
}
