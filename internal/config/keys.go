package config

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// kind is the value type a dot key accepts.
type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindIntList
)

var secretKeys = map[string]bool{
	"immich.api_key": true,
	"telegram.token": true,
}

// IsSecretKey reports whether the value under key is masked in listings.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// schema maps every dot key of Config, built from its toml tags.
var schema = sync.OnceValue(func() map[string]kind {
	out := make(map[string]kind)
	walkFields(reflect.ValueOf(Config{}), "", func(key string, v reflect.Value) {
		switch v.Kind() {
		case reflect.String:
			out[key] = kindString
		case reflect.Int, reflect.Int64:
			out[key] = kindInt
		case reflect.Bool:
			out[key] = kindBool
		case reflect.Slice:
			out[key] = kindIntList
		}
	})
	return out
})

// walkFields calls fn for every leaf field of a toml-tagged struct with its
// dot key. Nested structs become key prefixes.
func walkFields(v reflect.Value, prefix string, fn func(key string, v reflect.Value)) {
	t := v.Type()
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if f := v.Field(i); f.Kind() == reflect.Struct {
			walkFields(f, key, fn)
		} else {
			fn(key, f)
		}
	}
}

// Keys returns every known dot key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(schema()))
	for k := range schema() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Values returns the settings of cfg keyed by dot key. Integers are int64
// and lists are rendered as comma-separated text, the same form ParseValue
// accepts.
func Values(cfg *Config) map[string]any {
	out := make(map[string]any, len(schema()))
	walkFields(reflect.ValueOf(cfg).Elem(), "", func(key string, v reflect.Value) {
		switch v.Kind() {
		case reflect.String:
			out[key] = v.String()
		case reflect.Int, reflect.Int64:
			out[key] = v.Int()
		case reflect.Bool:
			out[key] = v.Bool()
		case reflect.Slice:
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = fmt.Sprint(v.Index(i).Interface())
			}
			out[key] = strings.Join(parts, ",")
		}
	})
	return out
}

// ParseValue converts command-line text into the type key holds. Unknown keys
// are rejected.
func ParseValue(key, raw string) (any, error) {
	k, ok := schema()[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	raw = strings.TrimSpace(raw)
	switch k {
	case kindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", key, raw)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false, got %q", key, raw)
		}
		return b, nil
	case kindIntList:
		ids, err := parseIntList(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects comma-separated integers: %w", key, err)
		}
		return ids, nil
	default:
		return raw, nil
	}
}

// parseIntList reads "1,2", "[1, 2]" or "" into a non-nil slice.
func parseIntList(raw string) ([]int64, error) {
	raw = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]")
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// setKey stores v under a dot key in a decoded TOML document, creating
// tables as needed. A non-table value in the way is replaced.
func setKey(doc map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = v
}

// Mask hides all but the last four characters of a secret value.
func Mask(key string, v any) any {
	s, ok := v.(string)
	if !secretKeys[key] || !ok || s == "" {
		return v
	}
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}

// MaskSecrets returns a copy of values with secrets masked.
func MaskSecrets(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = Mask(k, v)
	}
	return out
}
