package models

import "strings"

// PermitType is one of the tracked permit categories.
type PermitType string

const (
	PermitGold       PermitType = "Gold Permit"
	PermitOrange     PermitType = "Orange Permit"
	PermitPurple     PermitType = "Purple Permit"
	PermitPayBySpace PermitType = "Pay-By-Space"
)

// PermitTypes lists the vocabulary in display order.
var PermitTypes = []PermitType{PermitGold, PermitOrange, PermitPurple, PermitPayBySpace}

var permitAliases = map[string]PermitType{
	"gold":         PermitGold,
	"orange":       PermitOrange,
	"purple":       PermitPurple,
	"pay-by-space": PermitPayBySpace,
	"pay by space": PermitPayBySpace,
}

// LookupPermit maps a label as printed on the page ("Gold", "Gold Permit",
// "pay-by-space") onto the vocabulary.
func LookupPermit(label string) (PermitType, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	key = strings.TrimSuffix(key, " permit")
	p, ok := permitAliases[key]
	return p, ok
}
