package census

import (
	"strconv"

	"census/internal/models"
)

// GeoIDColumn is the API's composite identifier column
const GeoIDColumn = "GEO_ID"

// geoidWidths is the number of trailing GEO_ID characters that form the
// geographic code, e.g. "0500000US06037" for a county ends in "06037".
var geoidWidths = map[models.GeographyLevel]int{
	models.GeographyBlock:                 15,
	models.GeographyTract:                 11,
	models.GeographyBlockGroup:            12,
	models.GeographyCounty:                5,
	models.GeographyPlace:                 7,
	models.GeographyState:                 2,
	models.GeographyCongressionalDistrict: 4,
}

// GeoidWidth returns the suffix width for a geography level
func GeoidWidth(geog models.GeographyLevel) (int, error) {
	w, ok := geoidWidths[geog]
	if !ok {
		return 0, invalidArgument("no geoid width for geography %q", geog)
	}
	return w, nil
}

// ParseGeoid extracts the integer geoid from one GEO_ID value
func ParseGeoid(geog models.GeographyLevel, geoID string) (int64, error) {
	width, err := GeoidWidth(geog)
	if err != nil {
		return 0, err
	}
	if len(geoID) < width {
		return 0, malformed("GEO_ID %q is shorter than %d characters", geoID, width)
	}
	suffix := geoID[len(geoID)-width:]
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return 0, malformed("GEO_ID %q does not end in %d digits", geoID, width)
		}
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, malformed("GEO_ID %q: %v", geoID, err)
	}
	return id, nil
}

// DeriveGeoid returns a copy of table with an int "geoid" column parsed from
// the GEO_ID column.
func DeriveGeoid(geog models.GeographyLevel, table *models.Table) (*models.Table, error) {
	if _, err := GeoidWidth(geog); err != nil {
		return nil, err
	}
	col, ok := table.Column(GeoIDColumn)
	if !ok {
		return nil, malformed("response has no %s column", GeoIDColumn)
	}
	if col.Type != models.ColumnString {
		return nil, malformed("%s column is %s, want string", GeoIDColumn, col.Type)
	}

	ids := make([]int64, col.Len())
	for i, s := range col.Strings() {
		id, err := ParseGeoid(geog, s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	out := table.Clone()
	if err := out.AddColumn(models.NewIntColumn("geoid", ids)); err != nil {
		return nil, malformed("%v", err)
	}
	return out, nil
}
