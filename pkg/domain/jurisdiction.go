package domain

import "strings"

// JurisdictionCode identifies the source justice-system entity whose business
// rules govern a person's records, e.g. "US-TN". Codes are compared in their
// canonical upper-case form.
type JurisdictionCode string

// Canonical returns the code trimmed and upper-cased. Lookups in the delegate
// registry always go through this so raw-data casing cannot change behavior.
func (j JurisdictionCode) Canonical() JurisdictionCode {
	return JurisdictionCode(strings.ToUpper(strings.TrimSpace(string(j))))
}

func (j JurisdictionCode) String() string { return string(j) }

// IsZero reports whether the code is empty after trimming.
func (j JurisdictionCode) IsZero() bool {
	return strings.TrimSpace(string(j)) == ""
}
