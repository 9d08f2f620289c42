package census

import (
	"strings"

	"census/internal/models"
)

// BuildInPredicates derives the `in` scope constraints for a geography level.
//
// Sub-county levels (tract, block group, block) are scoped to a state and a
// comma-joined list of county codes with the state prefix stripped. County,
// place and congressional district are scoped to the state only, and state
// needs no scope at all, so nil is returned.
func BuildInPredicates(geog models.GeographyLevel, countyIDs []models.CountyFIPS, stateID models.StateFIPS) ([]string, error) {
	switch geog {
	case models.GeographyTract, models.GeographyBlockGroup, models.GeographyBlock:
		if len(countyIDs) == 0 {
			return nil, invalidArgument("geography %q requires at least one county id", geog)
		}
		if err := models.ValidateStateFIPS(stateID); err != nil {
			return nil, invalidArgument("%v", err)
		}
		codes := make([]string, len(countyIDs))
		for i, c := range countyIDs {
			if err := models.ValidateCountyFIPS(c); err != nil {
				return nil, invalidArgument("%v", err)
			}
			if c.State() != stateID {
				return nil, invalidArgument("county %s is not in state %s", c, stateID)
			}
			codes[i] = c.Local()
		}
		return []string{
			"state:" + string(stateID),
			"county:" + strings.Join(codes, ","),
		}, nil
	case models.GeographyCounty, models.GeographyPlace, models.GeographyCongressionalDistrict:
		if err := models.ValidateStateFIPS(stateID); err != nil {
			return nil, invalidArgument("%v", err)
		}
		return []string{"state:" + string(stateID)}, nil
	case models.GeographyState:
		return nil, nil
	default:
		return nil, invalidArgument("%v", models.ValidateGeography(geog))
	}
}
