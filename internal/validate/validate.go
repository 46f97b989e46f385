// Package validate holds the Singapore-specific input format checks
// used at registration and account updates.
package validate

import "regexp"

var (
	postalCodeRe = regexp.MustCompile(`\b\d{6}\b`)
	phoneRe      = regexp.MustCompile(`^[689]\d{7}$`)
	nricRe       = regexp.MustCompile(`^[STFGMstfgm]\d{7}[A-Za-z]$`)
)

// SGAddress reports whether the address carries a 6-digit Singapore
// postal code anywhere in the string.
func SGAddress(address string) bool {
	return postalCodeRe.MatchString(address)
}

// SGPhone reports whether the number is a valid Singapore phone number:
// 8 digits starting with 6, 8 or 9.
func SGPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// NRIC reports whether the value matches the NRIC format: a leading
// S, T, F, G or M, seven digits, and a trailing letter.
func NRIC(nric string) bool {
	return nricRe.MatchString(nric)
}
