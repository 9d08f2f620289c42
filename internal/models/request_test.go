package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariableGroups_Validate(t *testing.T) {
	valid := VariableGroups{{Name: "pop", Codes: []string{"P1_001N"}}, {Name: "white", Codes: []string{"P1_003N", "P1_011N"}}}
	require.NoError(t, valid.Validate())
	assert.Equal(t, []string{"pop", "white"}, valid.Names())
	assert.Equal(t, []string{"P1_001N", "P1_003N", "P1_011N"}, valid.Codes())

	invalid := map[string]VariableGroups{
		"empty":     nil,
		"no name":   {{Codes: []string{"A"}}},
		"no codes":  {{Name: "a"}},
		"blank":     {{Name: "a", Codes: []string{" "}}},
		"duplicate": {{Name: "a", Codes: []string{"A"}}, {Name: "a", Codes: []string{"B"}}},
		"reserved":  {{Name: "geoid", Codes: []string{"A"}}},
		"key name":  {{Name: "county", Codes: []string{"A"}}},
		"api name":  {{Name: "NAME", Codes: []string{"A"}}},
		"key code":  {{Name: "a", Codes: []string{"GEO_ID"}}},
		"shared":    {{Name: "x", Codes: []string{"A"}}, {Name: "y", Codes: []string{"A"}}},
		"repeated":  {{Name: "x", Codes: []string{"A", "A"}}},
	}
	for name, gs := range invalid {
		assert.Error(t, gs.Validate(), name)
	}
}

func TestVariableGroups_ValidateMessages(t *testing.T) {
	err := VariableGroups{{Name: "tract", Codes: []string{"P1_001N"}}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tract" collides with a column returned by the API`)

	err = VariableGroups{{Name: "x", Codes: []string{"P1_001N"}}, {Name: "y", Codes: []string{"P1_001N"}}}.Validate()
	require.Error(t, err)
	assert.Equal(t, `code "P1_001N" appears in both "x" and "y"`, err.Error())
}

func TestParseVariableGroup(t *testing.T) {
	g, err := ParseVariableGroup("white = P1_003N, P1_011N")
	require.NoError(t, err)
	assert.Equal(t, VariableGroup{Name: "white", Codes: []string{"P1_003N", "P1_011N"}}, g)

	for _, bad := range []string{"white", "=P1", "white=", "white=,"} {
		_, err := ParseVariableGroup(bad)
		assert.Error(t, err, bad)
	}
}

func TestDecennialRequest_Validate(t *testing.T) {
	req := DecennialRequest{
		Groups:    VariableGroups{{Name: "pop", Codes: []string{"P1_001N"}}},
		Year:      2020,
		Geography: GeographyCounty,
		Dataset:   "pl",
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, "dec/pl", req.DatasetPath())

	bad := req
	bad.Geography = "zip"
	assert.Error(t, bad.Validate())

	bad = req
	bad.Dataset = "acs/acs5"
	assert.Error(t, bad.Validate())

	bad = req
	bad.Year = 0
	assert.Error(t, bad.Validate())
}

func TestFIPS(t *testing.T) {
	assert.NoError(t, ValidateCountyFIPS("06037"))
	assert.Error(t, ValidateCountyFIPS("6037"))
	assert.Error(t, ValidateCountyFIPS("06O37"))
	assert.NoError(t, ValidateStateFIPS("06"))
	assert.Error(t, ValidateStateFIPS("6"))

	c := CountyFIPS("06037")
	assert.Equal(t, StateFIPS("06"), c.State())
	assert.Equal(t, "037", c.Local())
}

func TestGeography(t *testing.T) {
	for _, g := range GeographyLevels {
		assert.NoError(t, ValidateGeography(g))
	}
	assert.Error(t, ValidateGeography("zip code"))
	assert.Equal(t, "block group:*", GeographyBlockGroup.ForPredicate())
	assert.Equal(t, "block_group", GeographyBlockGroup.Slug())
}
