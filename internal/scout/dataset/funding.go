package dataset

import (
	"regexp"
	"strconv"
)

// fundingRe matches a trailing "<number><M|B|T>" amount such as "$250M",
// "1.2b" or "$3T". Matching is case-insensitive.
var fundingRe = regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]+)?)\s*([MBT])\s*$`)

// ParseFundingValue derives a numeric dollar value from a human-readable
// funding string. Unparseable strings yield 0.
func ParseFundingValue(s string) float64 {
	match := fundingRe.FindStringSubmatch(s)
	if match == nil {
		return 0
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	switch match[2][0] {
	case 'M', 'm':
		return value * 1e6
	case 'B', 'b':
		return value * 1e9
	case 'T', 't':
		return value * 1e12
	}
	return 0
}
