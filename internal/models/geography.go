package models

import (
	"fmt"
	"strings"
)

// GeographyLevel is a Census summary level accepted by the for/in predicates
type GeographyLevel string

const (
	GeographyState                 GeographyLevel = "state"
	GeographyCounty                GeographyLevel = "county"
	GeographyPlace                 GeographyLevel = "place"
	GeographyTract                 GeographyLevel = "tract"
	GeographyBlockGroup            GeographyLevel = "block group"
	GeographyBlock                 GeographyLevel = "block"
	GeographyCongressionalDistrict GeographyLevel = "congressional district"
)

// GeographyLevels lists every accepted level in the order used by error messages.
var GeographyLevels = []GeographyLevel{
	GeographyState,
	GeographyCounty,
	GeographyCongressionalDistrict,
	GeographyPlace,
	GeographyTract,
	GeographyBlockGroup,
	GeographyBlock,
}

// ValidateGeography checks if the geography level is one the API accepts
func ValidateGeography(geog GeographyLevel) error {
	switch geog {
	case GeographyState, GeographyCounty, GeographyPlace, GeographyTract,
		GeographyBlockGroup, GeographyBlock, GeographyCongressionalDistrict:
		return nil
	default:
		return fmt.Errorf("invalid geography %q: must be one of %s", geog, geographyList())
	}
}

// ForPredicate returns the wildcard `for` clause, e.g. "tract:*".
func (g GeographyLevel) ForPredicate() string {
	return string(g) + ":*"
}

// Slug is the geography name with spaces replaced, safe for collection names.
func (g GeographyLevel) Slug() string {
	return strings.ReplaceAll(string(g), " ", "_")
}

// KeyColumns are the geographic key columns the API appends to every batch.
var KeyColumns = []string{
	"state",
	"county",
	"tract",
	string(GeographyBlockGroup),
	string(GeographyBlock),
	string(GeographyPlace),
	string(GeographyCongressionalDistrict),
}

func geographyList() string {
	names := make([]string, len(GeographyLevels))
	for i, g := range GeographyLevels {
		names[i] = "'" + string(g) + "'"
	}
	return strings.Join(names, ", ")
}
