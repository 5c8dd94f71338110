package constants

import (
	"strings"
)

type Category string

const (
	CloudServices        Category = "Cloud Services"
	SoftwareSubscription Category = "Software Subscription"
	Telecommunications   Category = "Telecommunications"
	Utilities            Category = "Utilities"
	TravelExpenses       Category = "Travel"
	ShippingLogistics    Category = "Shipping & Logistics"
	Marketing            Category = "Marketing & Advertising"
	OfficeSupplies       Category = "Office Supplies"
	ProfessionalServices Category = "Professional Services"
	Entertainment        Category = "Entertainment"
	Other                Category = "Other"
)

var allCategories = []Category{
	CloudServices,
	SoftwareSubscription,
	Telecommunications,
	Utilities,
	TravelExpenses,
	ShippingLogistics,
	Marketing,
	OfficeSupplies,
	ProfessionalServices,
	Entertainment,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

func Canonicalize(input string) (Category, bool) {
	if strings.TrimSpace(input) == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"cloud":          CloudServices,
		"cloud services": CloudServices,
		"hosting":        CloudServices,
		"infrastructure": CloudServices,
		"saas":           SoftwareSubscription,
		"software":       SoftwareSubscription,
		"subscription":   SoftwareSubscription,
		"telecom":        Telecommunications,
		"internet":       Telecommunications,
		"mobile":         Telecommunications,
		"utility":        Utilities,
		"travel":         TravelExpenses,
		"shipping":       ShippingLogistics,
		"logistics":      ShippingLogistics,
		"advertising":    Marketing,
		"marketing":      Marketing,
		"consulting":     ProfessionalServices,
		"streaming":      Entertainment,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
