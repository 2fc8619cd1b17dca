// Package enums holds the string enums shared by models, DTOs and events.
// Each type mirrors a Postgres enum or a constrained text column.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw against values. Case and surrounding space are ignored
// only when fold is set; stored enum values are otherwise exact.
func parse[T ~string](values []T, raw, kind string, fold bool) (T, error) {
	for _, candidate := range values {
		if string(candidate) == raw || (fold && strings.EqualFold(string(candidate), strings.TrimSpace(raw))) {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

func known[T ~string](values []T, v T) bool {
	return slices.Contains(values, v)
}
