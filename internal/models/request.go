package models

import (
	"fmt"
	"strings"
)

// VariableGroup is one output column computed as the row sum of raw API codes
type VariableGroup struct {
	Name  string   `json:"name" yaml:"name"`
	Codes []string `json:"codes" yaml:"codes"`
}

// VariableGroups keeps output columns in the order the caller declared them.
type VariableGroups []VariableGroup

// reservedOutputColumns are produced by the pipeline itself
var reservedOutputColumns = map[string]bool{"geoid": true, "name": true}

// fetchedColumns arrive with every decennial response alongside the raw codes.
var fetchedColumns = func() map[string]bool {
	cols := map[string]bool{"GEO_ID": true, "NAME": true}
	for _, k := range KeyColumns {
		cols[k] = true
	}
	return cols
}()

// Validate ensures names are unique, every group has codes and no raw code
// is requested twice.
func (gs VariableGroups) Validate() error {
	if len(gs) == 0 {
		return fmt.Errorf("at least one variable group is required")
	}
	seen := make(map[string]bool, len(gs))
	owner := make(map[string]string)
	for _, g := range gs {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("variable group name is required")
		}
		if reservedOutputColumns[g.Name] {
			return fmt.Errorf("variable group name %q is reserved", g.Name)
		}
		if fetchedColumns[g.Name] {
			return fmt.Errorf("variable group name %q collides with a column returned by the API", g.Name)
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate variable group %q", g.Name)
		}
		seen[g.Name] = true
		if len(g.Codes) == 0 {
			return fmt.Errorf("variable group %q has no codes", g.Name)
		}
		for _, code := range g.Codes {
			if strings.TrimSpace(code) == "" {
				return fmt.Errorf("variable group %q has an empty code", g.Name)
			}
			if fetchedColumns[code] {
				return fmt.Errorf("variable group %q: %q is not a variable code", g.Name, code)
			}
			if prev, ok := owner[code]; ok {
				return fmt.Errorf("code %q appears in both %q and %q", code, prev, g.Name)
			}
			owner[code] = g.Name
		}
	}
	return nil
}

// Names returns the output column names in declaration order
func (gs VariableGroups) Names() []string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.Name
	}
	return names
}

// Codes flattens every group's raw codes in declaration order
func (gs VariableGroups) Codes() []string {
	var codes []string
	for _, g := range gs {
		codes = append(codes, g.Codes...)
	}
	return codes
}

// ParseVariableGroup parses "name=CODE1,CODE2".
func ParseVariableGroup(s string) (VariableGroup, error) {
	name, codes, ok := strings.Cut(s, "=")
	if !ok {
		return VariableGroup{}, fmt.Errorf("invalid group %q: expected name=CODE[,CODE...]", s)
	}
	g := VariableGroup{Name: strings.TrimSpace(name)}
	for _, c := range strings.Split(codes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			g.Codes = append(g.Codes, c)
		}
	}
	if g.Name == "" || len(g.Codes) == 0 {
		return VariableGroup{}, fmt.Errorf("invalid group %q: expected name=CODE[,CODE...]", s)
	}
	return g, nil
}

// DecennialRequest describes one decennial pipeline call
type DecennialRequest struct {
	Groups    VariableGroups `json:"groups"`
	Year      int            `json:"year"`
	Geography GeographyLevel `json:"geography"`
	Dataset   string         `json:"dataset"`
	StateID   StateFIPS      `json:"state_id,omitempty"`
	CountyIDs []CountyFIPS   `json:"county_ids,omitempty"`
}

// DecennialDatasets are the decennial datasets the API is known to publish
var DecennialDatasets = []string{"pl", "dhc", "ddhca", "dp", "sf1", "sf2"}

// Validate ensures all required fields are present and valid
func (r *DecennialRequest) Validate() error {
	if err := r.Groups.Validate(); err != nil {
		return err
	}
	if r.Year <= 0 {
		return fmt.Errorf("year is required")
	}
	if err := ValidateGeography(r.Geography); err != nil {
		return err
	}
	if strings.TrimSpace(r.Dataset) == "" {
		return fmt.Errorf("dataset is required")
	}
	if strings.ContainsAny(r.Dataset, "/ ") {
		return fmt.Errorf("invalid dataset %q", r.Dataset)
	}
	return nil
}

// DatasetPath returns the API path below the year, e.g. "dec/pl".
func (r *DecennialRequest) DatasetPath() string {
	return "dec/" + r.Dataset
}

// TableRequest describes a raw chunked fetch against any dataset
type TableRequest struct {
	Variables   []string `json:"variables"`
	Year        int      `json:"year"`
	For         string   `json:"for"`
	In          []string `json:"in,omitempty"`
	DatasetPath string   `json:"dataset_path"`
}

// Validate ensures all required fields are present
func (r *TableRequest) Validate() error {
	if len(r.Variables) == 0 {
		return fmt.Errorf("at least one variable is required")
	}
	if r.Year <= 0 {
		return fmt.Errorf("year is required")
	}
	if strings.TrimSpace(r.For) == "" {
		return fmt.Errorf("for predicate is required")
	}
	if strings.Trim(r.DatasetPath, "/ ") == "" {
		return fmt.Errorf("dataset path is required")
	}
	return nil
}
