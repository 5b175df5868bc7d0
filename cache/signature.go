package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Signature identifies one logical read call.
type Signature string

// NewSignature derives the cache key of a call: the SHA-256 of the JSON
// encoding of [model, method, args, options]. encoding/json writes map keys
// in sorted order at every depth, so option insertion order never matters,
// while positional args keep their order. nil args and options encode like
// their empty counterparts.
//
// Every string, map keys included, is hashed in its Go-quoted form. JSON
// would fold invalid UTF-8 bytes into U+FFFD; strconv.Quote keeps them as
// \xNN escapes, so byte-distinct calls get distinct keys.
func NewSignature(model, method string, args []any, options map[string]any) (Signature, error) {
	if args == nil {
		args = []any{}
	}
	if options == nil {
		options = map[string]any{}
	}

	b, err := json.Marshal(canonical(reflect.ValueOf([]any{model, method, args, options})))
	if err != nil {
		return "", fmt.Errorf("cache: signature of %s.%s: %w", model, method, err)
	}
	sum := sha256.Sum256(b)
	return Signature(hex.EncodeToString(sum[:])), nil
}

func canonical(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return canonical(v.Elem())
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		if v.IsNil() {
			return []any{}
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = canonical(v.Index(i))
		}
		return out
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[strconv.Quote(iter.Key().String())] = canonical(iter.Value())
		}
		return out
	}
	return v.Interface()
}
