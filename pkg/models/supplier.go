package models

import "strings"

// SupplierRecord is a roster entry: a supplier and the ISO-3 country it operates from.
type SupplierRecord struct {
	Supplier string `json:"supplier"`
	Country  string `json:"country"`
}

// Normalized returns a copy with the name trimmed and the country code trimmed and uppercased.
// Malformed codes are kept as-is; they simply match no indicator.
func (s SupplierRecord) Normalized() SupplierRecord {
	return SupplierRecord{
		Supplier: strings.TrimSpace(s.Supplier),
		Country:  strings.ToUpper(strings.TrimSpace(s.Country)),
	}
}
