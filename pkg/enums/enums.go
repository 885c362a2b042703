// Package enums holds the closed string sets stored in the database and
// accepted on the wire.
package enums

import (
	"fmt"
	"slices"
)

// parse accepts value only when it is one of valid, compared exactly.
func parse[T ~string](valid []T, kind, value string) (T, error) {
	if v := T(value); slices.Contains(valid, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
