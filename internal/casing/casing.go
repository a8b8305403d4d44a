// Package casing converte chaves entre camelCase (API) e snake_case (banco).
package casing

import "github.com/iancoleman/strcase"

// ToSnake converte camelCase em snake_case: staffId -> staff_id.
func ToSnake(key string) string {
	return strcase.ToSnake(key)
}

// ToCamel converte snake_case em lowerCamelCase: staff_id -> staffId.
func ToCamel(key string) string {
	return strcase.ToLowerCamel(key)
}

// KeysToSnake aplica ToSnake recursivamente em mapas e listas.
func KeysToSnake(v any) any {
	return transform(v, ToSnake)
}

// KeysToCamel aplica ToCamel recursivamente em mapas e listas.
func KeysToCamel(v any) any {
	return transform(v, ToCamel)
}

func transform(v any, fn func(string) string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fn(k)] = transform(inner, fn)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = transform(inner, fn)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = transform(inner, fn)
		}
		return out
	default:
		return v
	}
}
