package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeDecimal rewrites a comma-decimal string ("12,50") to canonical
// dot-decimal form. It does not validate the result.
func NormalizeDecimal(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

// ParseDecimal normalizes and parses a comma-decimal string.
func ParseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(NormalizeDecimal(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedNumeric, s)
	}
	return v, nil
}

// ParseDecimalPtr is ParseDecimal for optional values: nil in, nil out.
func ParseDecimalPtr(s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := ParseDecimal(*s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
