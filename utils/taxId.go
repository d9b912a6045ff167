package utils

import (
	"regexp"
	"strings"
)

// Tax identifiers appear in bank descriptions in several shapes:
// 12.345.678-9, 12345678-9, 12345678K. Groups: digit blocks, check char.
var taxIdPattern = regexp.MustCompile(`\b(\d{1,3}(?:\.?\d{3})*)-?([\dkK])\b`)

// ExtractTaxId scans free text for a tax-identifier-shaped token and
// returns it normalized (digits, dash, uppercase check character).
// Absence is a valid outcome, not an error.
func ExtractTaxId(text string) (string, bool) {
	m := taxIdPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], ".", "") + "-" + strings.ToUpper(m[2]), true
}

// NormalizeTaxId strips grouping dots and uppercases the check character
// so stored counterparty ids compare against extracted tokens.
func NormalizeTaxId(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ".", ""))
}
