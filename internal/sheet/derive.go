package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResolveFunc returns the raw value for a sum source column and whether a
// value was present at all. Absent sources are treated as zero.
type ResolveFunc func(name string) (any, bool)

// ComputeSum sums the resolved values of the named source columns in
// declaration order. Absent, nil and empty-string values coerce to zero;
// any other value that fails numeric coercion aborts the computation with
// NonNumericSumSourceError naming the offending source. The function is
// pure: identical inputs always yield identical output.
func ComputeSum(sources []string, resolve ResolveFunc) (float64, error) {
	var sum float64
	for _, src := range sources {
		v, ok := resolve(src)
		if !ok {
			continue
		}
		n, err := toNumber(v)
		if err != nil {
			return 0, &NonNumericSumSourceError{Source: src}
		}
		sum += n
	}
	return sum, nil
}

// toNumber coerces a raw cell value to a float64. nil and empty strings
// coerce to zero, matching the resolution policy for blank inputs.
func toNumber(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
}

// insertResolver implements the insert policy: the caller-supplied value
// if present in the submitted field set, else zero. Values already
// computed for earlier derived columns take precedence so that
// derived-of-derived chains see computed results instead of raw input.
func insertResolver(input, computed map[string]any) ResolveFunc {
	return func(name string) (any, bool) {
		if v, ok := computed[name]; ok {
			return v, true
		}
		v, ok := input[name]
		return v, ok
	}
}

// updateResolver implements the update policy: the caller-supplied new
// value if explicitly included in this update, else the currently stored
// value on the existing row, else zero.
func updateResolver(input, existing, computed map[string]any) ResolveFunc {
	return func(name string) (any, bool) {
		if v, ok := computed[name]; ok {
			return v, true
		}
		if v, ok := input[name]; ok {
			return v, true
		}
		v, ok := existing[name]
		return v, ok
	}
}

// orderDerived returns the derived columns of cols sorted so that every
// derived source is computed before the columns that sum over it.
// A cyclic sum_of graph yields an InvalidSumDefinitionError; cycles are
// rejected at sheet creation, so hitting one here means corrupt metadata.
func orderDerived(cols []ColumnDef) ([]ColumnDef, error) {
	derived := make(map[string]ColumnDef)
	for _, c := range cols {
		if c.Derived() {
			derived[c.Name] = c
		}
	}

	var ordered []ColumnDef
	state := make(map[string]int) // 0 unvisited, 1 in progress, 2 done

	var visit func(name string) error
	visit = func(name string) error {
		c, ok := derived[name]
		if !ok {
			return nil // plain column, nothing to order
		}
		switch state[name] {
		case 2:
			return nil
		case 1:
			return &InvalidSumDefinitionError{Column: name, Reason: "cyclic sum_of chain"}
		}
		state[name] = 1
		for _, src := range c.SumOf {
			if err := visit(src); err != nil {
				return err
			}
		}
		state[name] = 2
		ordered = append(ordered, c)
		return nil
	}

	for _, c := range cols {
		if !c.Derived() {
			continue
		}
		if err := visit(c.Name); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// computeDerived computes every derived column in dependency order using
// the given resolver factory. On failure the error carries the derived
// column name that was being computed.
func computeDerived(cols []ColumnDef, resolver func(computed map[string]any) ResolveFunc) (map[string]any, error) {
	ordered, err := orderDerived(cols)
	if err != nil {
		return nil, err
	}
	computed := make(map[string]any, len(ordered))
	for _, c := range ordered {
		sum, err := ComputeSum(c.SumOf, resolver(computed))
		if err != nil {
			var nn *NonNumericSumSourceError
			if errors.As(err, &nn) {
				nn.Column = c.Name
			}
			return nil, err
		}
		computed[c.Name] = sum
	}
	return computed, nil
}
