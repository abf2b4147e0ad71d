package models

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidRUT = errors.New("must be a valid RUT (e.g. 12345678-5)")

// NormalizeRUT strips dots and spaces, upper-cases the K check digit and
// verifies the modulo-11 check digit.
func NormalizeRUT(raw string) (string, error) {
	cleaned := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(raw)))
	body, dv, ok := strings.Cut(cleaned, "-")
	if !ok {
		if len(cleaned) < 2 {
			return "", errInvalidRUT
		}
		body, dv = cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1:]
	}
	if len(body) == 0 || len(body) > 8 || len(dv) != 1 {
		return "", errInvalidRUT
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return "", errInvalidRUT
		}
	}
	if checkDigit(body) != dv {
		return "", errInvalidRUT
	}
	return body + "-" + dv, nil
}

func checkDigit(body string) string {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(r)
	}
}
