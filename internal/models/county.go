package models

import "fmt"

// CountyFIPS is a 5 digit county FIPS code; the first two digits are the state.
type CountyFIPS string

// StateFIPS is a 2 digit state FIPS code
type StateFIPS string

// ValidateCountyFIPS checks the county code is exactly five digits
func ValidateCountyFIPS(c CountyFIPS) error {
	if len(c) != 5 || !allDigits(string(c)) {
		return fmt.Errorf("invalid county id %q: must be a 5 digit FIPS code", c)
	}
	return nil
}

// ValidateStateFIPS checks the state code is exactly two digits
func ValidateStateFIPS(s StateFIPS) error {
	if len(s) != 2 || !allDigits(string(s)) {
		return fmt.Errorf("invalid state id %q: must be a 2 digit FIPS code", s)
	}
	return nil
}

// State returns the state portion of the county code
func (c CountyFIPS) State() StateFIPS {
	if len(c) < 2 {
		return StateFIPS(c)
	}
	return StateFIPS(c[:2])
}

// Local returns the county code with the state prefix stripped
func (c CountyFIPS) Local() string {
	if len(c) < 2 {
		return ""
	}
	return string(c[2:])
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
