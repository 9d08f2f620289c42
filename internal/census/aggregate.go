package census

import (
	"fmt"
	"strconv"
	"strings"

	"census/internal/models"
)

// AggregateGroups replaces each group's raw code columns with one float column
// holding their row-wise sum. The input table is left untouched and a new
// table is returned.
//
// Empty cells count as zero. Any other cell that does not parse as a number
// fails with ErrInvalidData. A raw code that is not a column, which is the
// case when a mapping is applied to an already aggregated table, fails with
// ErrInvalidArgument.
func AggregateGroups(groups models.VariableGroups, table *models.Table) (*models.Table, error) {
	out := table.Clone()
	for _, g := range groups {
		sums := make([]float64, out.NumRows())
		for _, code := range g.Codes {
			col, ok := out.Column(code)
			if !ok {
				return nil, invalidArgument("group %q: column %q not present", g.Name, code)
			}
			if err := addInto(sums, col); err != nil {
				return nil, fmt.Errorf("group %q: %w", g.Name, err)
			}
		}

		if err := out.Drop(g.Codes...); err != nil {
			return nil, invalidArgument("group %q: %v", g.Name, err)
		}
		if err := out.AddColumn(models.NewFloatColumn(g.Name, sums)); err != nil {
			return nil, invalidArgument("group %q: %v", g.Name, err)
		}
	}
	return out, nil
}

func addInto(sums []float64, col *models.Column) error {
	switch col.Type {
	case models.ColumnFloat:
		for i, v := range col.Floats() {
			sums[i] += v
		}
	case models.ColumnInt:
		for i, v := range col.Ints() {
			sums[i] += float64(v)
		}
	default:
		for i, s := range col.Strings() {
			v, err := parseCell(s)
			if err != nil {
				return fmt.Errorf("%w: column %q row %d: %q is not numeric", ErrInvalidData, col.Name, i, s)
			}
			sums[i] += v
		}
	}
	return nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
