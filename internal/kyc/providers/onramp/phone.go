package onramp

import (
	"strings"

	dErrors "kycgate/pkg/domain-errors"
)

// countryCodeLen is the number of leading characters (including '+') taken as the
// country code, e.g. "+91".
const countryCodeLen = 3

// FormatPhone converts "+911234567890" into the provider's "+91-1234567890" form.
func FormatPhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") || len(phone) < 4 {
		return "", dErrors.New(dErrors.CodeValidation, "invalid phone number format")
	}
	return phone[:countryCodeLen] + "-" + phone[countryCodeLen:], nil
}
