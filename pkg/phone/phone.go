package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize parses a mobile number written in any common local or
// international form and returns it in E.164. Numbers without a country code
// are read in defaultRegion (ISO 3166 alpha-2).
func Normalize(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("mobile number is required")
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", fmt.Errorf("invalid mobile number %q: %w", raw, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", fmt.Errorf("invalid mobile number %q: wrong length", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
