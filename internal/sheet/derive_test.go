package sheet

import (
	"errors"
	"testing"
)

func mapResolver(m map[string]any) ResolveFunc {
	return func(name string) (any, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestComputeSum(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		values  map[string]any
		want    float64
	}{
		{"two ints", []string{"a", "b"}, map[string]any{"a": 3, "b": 4}, 7},
		{"absent source is zero", []string{"a", "b"}, map[string]any{"a": 3}, 3},
		{"all absent", []string{"a", "b"}, map[string]any{}, 0},
		{"empty string is zero", []string{"a", "b"}, map[string]any{"a": "", "b": 2.5}, 2.5},
		{"nil is zero", []string{"a"}, map[string]any{"a": nil}, 0},
		{"numeric strings", []string{"a", "b"}, map[string]any{"a": "1.5", "b": "2"}, 3.5},
		{"bool coerces", []string{"a", "b"}, map[string]any{"a": true, "b": false}, 1},
		{"mixed db types", []string{"a", "b", "c"}, map[string]any{"a": int32(1), "b": int64(2), "c": 3.5}, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeSum(tt.sources, mapResolver(tt.values))
			if err != nil {
				t.Fatalf("ComputeSum() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ComputeSum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeSum_NonNumeric(t *testing.T) {
	_, err := ComputeSum([]string{"a", "b"}, mapResolver(map[string]any{"a": 1, "b": "oops"}))
	if err == nil {
		t.Fatal("ComputeSum() expected error for non-numeric source")
	}
	var nn *NonNumericSumSourceError
	if !errors.As(err, &nn) {
		t.Fatalf("error = %T, want *NonNumericSumSourceError", err)
	}
	if nn.Source != "b" {
		t.Errorf("Source = %q, want %q", nn.Source, "b")
	}
}

// scoresColumns mirrors a sheet with name:string, a:integer, b:integer
// and total:float summing a and b.
func scoresColumns() []ColumnDef {
	return []ColumnDef{
		{Name: "name", Type: TypeString},
		{Name: "a", Type: TypeInteger},
		{Name: "b", Type: TypeInteger},
		{Name: "total", Type: TypeFloat, SumOf: []string{"a", "b"}},
	}
}

func TestComputeDerived_InsertPolicy(t *testing.T) {
	input := map[string]any{"name": "x", "a": 3, "b": 4}
	computed, err := computeDerived(scoresColumns(), func(done map[string]any) ResolveFunc {
		return insertResolver(input, done)
	})
	if err != nil {
		t.Fatalf("computeDerived() error = %v", err)
	}
	if computed["total"] != 7.0 {
		t.Errorf("total = %v, want 7", computed["total"])
	}
}

func TestComputeDerived_InsertPolicy_OmittedSource(t *testing.T) {
	input := map[string]any{"a": 3}
	computed, err := computeDerived(scoresColumns(), func(done map[string]any) ResolveFunc {
		return insertResolver(input, done)
	})
	if err != nil {
		t.Fatalf("computeDerived() error = %v", err)
	}
	if computed["total"] != 3.0 {
		t.Errorf("total = %v, want 3", computed["total"])
	}
}

func TestComputeDerived_UpdatePolicy(t *testing.T) {
	// Override b but not a: total must be existing_a + new_b.
	existing := map[string]any{"name": "x", "a": int32(3), "b": int32(4), "total": 7.0}
	input := map[string]any{"b": 10}
	computed, err := computeDerived(scoresColumns(), func(done map[string]any) ResolveFunc {
		return updateResolver(input, existing, done)
	})
	if err != nil {
		t.Fatalf("computeDerived() error = %v", err)
	}
	if computed["total"] != 13.0 {
		t.Errorf("total = %v, want 13", computed["total"])
	}
}

func TestComputeDerived_UpdatePolicy_NonNumeric(t *testing.T) {
	existing := map[string]any{"a": 1, "b": 2}
	input := map[string]any{"b": "not a number"}
	_, err := computeDerived(scoresColumns(), func(done map[string]any) ResolveFunc {
		return updateResolver(input, existing, done)
	})
	var nn *NonNumericSumSourceError
	if !errors.As(err, &nn) {
		t.Fatalf("error = %v, want *NonNumericSumSourceError", err)
	}
	if nn.Source != "b" || nn.Column != "total" {
		t.Errorf("error names source %q column %q, want b/total", nn.Source, nn.Column)
	}
}

func TestComputeDerived_ChainedSums(t *testing.T) {
	// grand sums over total, which itself sums a and b.
	cols := []ColumnDef{
		{Name: "a", Type: TypeInteger},
		{Name: "b", Type: TypeInteger},
		{Name: "total", Type: TypeFloat, SumOf: []string{"a", "b"}},
		{Name: "grand", Type: TypeFloat, SumOf: []string{"total", "a"}},
	}
	input := map[string]any{"a": 2, "b": 3}
	computed, err := computeDerived(cols, func(done map[string]any) ResolveFunc {
		return insertResolver(input, done)
	})
	if err != nil {
		t.Fatalf("computeDerived() error = %v", err)
	}
	if computed["total"] != 5.0 {
		t.Errorf("total = %v, want 5", computed["total"])
	}
	if computed["grand"] != 7.0 {
		t.Errorf("grand = %v, want 7", computed["grand"])
	}
}

func TestOrderDerived_Cycle(t *testing.T) {
	cols := []ColumnDef{
		{Name: "x", Type: TypeFloat, SumOf: []string{"y"}},
		{Name: "y", Type: TypeFloat, SumOf: []string{"x"}},
	}
	_, err := orderDerived(cols)
	var invalid *InvalidSumDefinitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("orderDerived() error = %v, want *InvalidSumDefinitionError", err)
	}
}

func TestOrderDerived_DependencyOrder(t *testing.T) {
	cols := []ColumnDef{
		{Name: "grand", Type: TypeFloat, SumOf: []string{"total"}},
		{Name: "a", Type: TypeInteger},
		{Name: "total", Type: TypeFloat, SumOf: []string{"a"}},
	}
	ordered, err := orderDerived(cols)
	if err != nil {
		t.Fatalf("orderDerived() error = %v", err)
	}
	if len(ordered) != 2 {
		t.Fatalf("ordered length = %d, want 2", len(ordered))
	}
	if ordered[0].Name != "total" || ordered[1].Name != "grand" {
		t.Errorf("order = [%s, %s], want [total, grand]", ordered[0].Name, ordered[1].Name)
	}
}
