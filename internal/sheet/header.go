package sheet

import (
	"fmt"
	"regexp"
	"strings"
)

// sumHeaderRe matches the derived-column header syntax
// <name>__sum(<src1>,<src2>,...), case-insensitive.
var sumHeaderRe = regexp.MustCompile(`(?i)^(.+?)__sum\((.+?)\)$`)

// headerColumn is one resolved header cell.
type headerColumn struct {
	Name  string
	SumOf []string // nil for plain columns
}

// analyzeHeader resolves a raw header row into sanitized, de-duplicated
// column identifiers and detects derived columns from the sum syntax.
// Duplicate identifiers are disambiguated with _2, _3, ... suffixes in
// order of appearance. After resolution, every sum source is checked
// against the full resolved column-name set.
func analyzeHeader(raw []string) ([]headerColumn, error) {
	cols := make([]headerColumn, 0, len(raw))
	seen := make(map[string]int)

	for i, cell := range raw {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = fmt.Sprintf("col%d", i+1)
		}

		base := cell
		var sumOf []string
		if m := sumHeaderRe.FindStringSubmatch(cell); m != nil {
			base = strings.TrimSpace(m[1])
			for _, src := range strings.Split(m[2], ",") {
				src = strings.TrimSpace(src)
				if src == "" {
					continue
				}
				s, err := Sanitize(src)
				if err != nil {
					return nil, err
				}
				sumOf = append(sumOf, s)
			}
			if len(sumOf) == 0 {
				return nil, &InvalidSumDefinitionError{Column: cell, Reason: "empty source list"}
			}
		}

		if base == "" {
			base = fmt.Sprintf("col%d", i+1)
		}
		name, err := Sanitize(base)
		if err != nil {
			return nil, err
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}

		cols = append(cols, headerColumn{Name: name, SumOf: sumOf})
	}

	declared := make(map[string]bool, len(cols))
	for _, c := range cols {
		declared[c.Name] = true
	}
	for _, c := range cols {
		for _, src := range c.SumOf {
			if !declared[src] {
				return nil, &UnknownSumSourceError{Column: c.Name, Source: src}
			}
		}
	}

	defs := make([]ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ColumnDef{Name: c.Name, SumOf: c.SumOf}
	}
	if _, err := orderDerived(defs); err != nil {
		return nil, err
	}

	return cols, nil
}
