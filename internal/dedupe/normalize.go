package dedupe

import (
	"regexp"
	"strings"
)

var (
	nonDigit       = regexp.MustCompile(`\D`)
	nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)
	streetSuffix   = regexp.MustCompile(`\b(street|st|avenue|ave|road|rd|drive|dr|lane|ln|court|ct|place|pl)\b`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// NormalizePhone keeps digits only and drops a single leading country code 1.
func NormalizePhone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	return strings.TrimPrefix(digits, "1")
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName lowercases, trims and strips everything that is not a word
// character or whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSpace(nonWordOrSpace.ReplaceAllString(name, ""))
}

// NormalizeAddress lowercases an address, removes street suffix words and
// punctuation, and collapses whitespace.
func NormalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	address = nonWordOrSpace.ReplaceAllString(address, "")
	address = streetSuffix.ReplaceAllString(address, "")
	address = whitespaceRun.ReplaceAllString(address, " ")
	return strings.TrimSpace(address)
}
