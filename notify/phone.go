package notify

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// E164 returns a phone formatter that parses numbers relative to
// defaultRegion (e.g. "US") and renders them as E.164. Numbers that
// carry a leading + ignore the region.
func E164(defaultRegion string) func(string) (string, error) {
	return func(phone string) (string, error) {
		num, err := phonenumbers.Parse(phone, defaultRegion)
		if err != nil {
			return "", fmt.Errorf("parse phone %q: %w", phone, err)
		}
		if !phonenumbers.IsValidNumber(num) {
			return "", fmt.Errorf("invalid phone number %q", phone)
		}
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}
}
