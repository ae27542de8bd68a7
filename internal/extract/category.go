package extract

import "strings"

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "Other"

type categoryRule struct {
	keyword  string
	category string
}

// categoryRules is evaluated top to bottom and the first match wins. Meal
// packages come before their single-ingredient keywords so that
// "PAKET AYAM GORENG" is a package and not plain "Ayam Goreng".
var categoryRules = []categoryRule{
	{"PAKET AYAM", "Paket Ayam"},
	{"PAKET IKAN LELE", "Paket Ikan Lele"},
	{"PAKET IKAN NILA", "Paket Ikan Nila"},
	{"PAKET BEBEK", "Paket Bebek"},
	{"PAKET CUMI", "Paket Seafood"},
	{"PAKET UDANG", "Paket Seafood"},
	{"AYAM BAKAR", "Ayam Bakar"},
	{"AYAM GORENG", "Ayam Goreng"},
	{"IKAN LELE", "Ikan Lele"},
	{"IKAN NILA", "Ikan Nila"},
	{"BEBEK", "Bebek"},
	{"NASI", "Nasi"},
	{"ES", "Minuman"},
	{"TEH", "Minuman"},
	{"JUS", "Minuman"},
	{"SUSU", "Minuman"},
	{"MIE", "Mie"},
	{"KWETIAU", "Mie"},
	{"CUMI", "Seafood"},
	{"UDANG", "Seafood"},
}

// Categorize maps a product name to its category by substring match on the
// upper-cased name.
func Categorize(productName string) string {
	upper := strings.ToUpper(productName)
	for _, rule := range categoryRules {
		if strings.Contains(upper, rule.keyword) {
			return rule.category
		}
	}
	return DefaultCategory
}
