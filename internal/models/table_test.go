package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable(2)
	require.NoError(t, table.AddColumn(NewStringColumn("NAME", []string{"a", "b"})))
	require.NoError(t, table.AddColumn(NewStringColumn("state", []string{"06", "06"})))
	require.NoError(t, table.AddColumn(NewFloatColumn("pop", []float64{1.5, 2})))
	return table
}

func TestTable_AddColumn(t *testing.T) {
	table := sampleTable(t)

	err := table.AddColumn(NewStringColumn("NAME", []string{"x", "y"}))
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	err = table.AddColumn(NewIntColumn("geoid", []int64{1}))
	assert.ErrorIs(t, err, ErrRowCount)

	assert.Equal(t, []string{"NAME", "state", "pop"}, table.Names())
}

func TestTable_DropIfPresent(t *testing.T) {
	table := sampleTable(t)

	assert.Equal(t, 1, table.DropIfPresent("state", "county", "tract"))
	assert.Equal(t, []string{"NAME", "pop"}, table.Names())
	assert.Equal(t, 0, table.DropIfPresent("county"))

	col, ok := table.Column("pop")
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, 2}, col.Floats())
}

func TestTable_Drop(t *testing.T) {
	table := sampleTable(t)
	err := table.Drop("state", "missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Equal(t, 3, table.NumColumns())

	require.NoError(t, table.Drop("state"))
	assert.False(t, table.HasColumn("state"))
}

func TestTable_Merge(t *testing.T) {
	table := sampleTable(t)

	other := NewTable(2)
	require.NoError(t, other.AddColumn(NewStringColumn("P2", []string{"3", "4"})))
	require.NoError(t, table.Merge(other))
	assert.Equal(t, []string{"NAME", "state", "pop", "P2"}, table.Names())

	clash := NewTable(2)
	require.NoError(t, clash.AddColumn(NewStringColumn("state", []string{"06", "06"})))
	assert.ErrorIs(t, table.Merge(clash), ErrDuplicateColumn)

	short := NewTable(1)
	assert.ErrorIs(t, table.Merge(short), ErrRowCount)
}

func TestTable_RenameAndProject(t *testing.T) {
	table := sampleTable(t)
	clone := table.Clone()

	require.NoError(t, table.Rename("NAME", "name"))
	assert.ErrorIs(t, table.Rename("missing", "x"), ErrColumnNotFound)
	assert.ErrorIs(t, table.Rename("pop", "state"), ErrDuplicateColumn)
	assert.True(t, clone.HasColumn("NAME"))

	projected, err := table.Project([]string{"pop", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pop", "name"}, projected.Names())
	assert.Equal(t, []any{1.5, "a"}, projected.Row(0))

	_, err = table.Project([]string{"NAME"})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTable_MarshalJSON(t *testing.T) {
	table := NewTable(1)
	require.NoError(t, table.AddColumn(NewIntColumn("geoid", []int64{6037})))
	require.NoError(t, table.AddColumn(NewStringColumn("name", []string{"LA"})))
	require.NoError(t, table.AddColumn(NewFloatColumn("pop", []float64{10014009})))

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"columns": [
			{"name": "geoid", "type": "int"},
			{"name": "name", "type": "string"},
			{"name": "pop", "type": "float"}
		],
		"rows": [[6037, "LA", 10014009]]
	}`, string(data))
}
