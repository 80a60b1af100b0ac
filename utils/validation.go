// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Allows an optional + prefix followed by 7-15 digits (E.164-ish)
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidatePhone checks whether a number is a plausible international phone
// number once formatting characters are stripped. French supplier contact
// fields use dots and spaces freely, hence the cleanup pass.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phoneCleaner.Replace(phone))
}
