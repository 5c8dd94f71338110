package patterns

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

var categoryKeywords = []struct {
	category constants.Category
	words    []string
}{
	{constants.CloudServices, []string{"cloud", "hosting", "compute", "aws", "azure", "server", "instance", "storage", "bandwidth", "ec2", "s3", "kubernetes", "vps"}},
	{constants.SoftwareSubscription, []string{"subscription", "license", "licence", "saas", "software", "seats", "per user", "annual plan", "monthly plan"}},
	{constants.Telecommunications, []string{"mobile", "phone", "internet", "broadband", "telecom", "wireless", "data plan", "fiber", "sms"}},
	{constants.Utilities, []string{"electricity", "water", "gas", "utility", "kwh", "energy", "meter reading"}},
	{constants.TravelExpenses, []string{"flight", "hotel", "airfare", "taxi", "ride", "travel", "lodging", "boarding pass", "trip"}},
	{constants.ShippingLogistics, []string{"shipping", "freight", "courier", "delivery", "tracking number", "parcel", "shipment"}},
	{constants.Marketing, []string{"advertising", "ads", "campaign", "marketing", "impressions", "clicks", "sponsored"}},
	{constants.OfficeSupplies, []string{"office supplies", "paper", "printer", "toner", "stationery", "ink"}},
	{constants.ProfessionalServices, []string{"consulting", "legal", "accounting", "professional services", "retainer", "hourly rate", "audit"}},
	{constants.Entertainment, []string{"streaming", "music", "movies", "tickets", "concert"}},
}

// Category derives a category. A known provider decides outright; otherwise
// the category whose keywords appear most often in text wins.
func (e *Extractor) Category(text, provider string) (Candidate[string], bool) {
	if provider != "" {
		if p, ok := e.providers.Lookup(provider); ok && p.Category != "" {
			return Candidate[string]{Value: p.Category, Confidence: 100, Source: "provider-table"}, true
		}
	}

	lower := strings.ToLower(text)
	best := Candidate[string]{}
	for _, set := range categoryKeywords {
		hits := 0
		for _, w := range set.words {
			if len(wordIndexes(lower, w)) > 0 {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := 50 + 5*hits
		if confidence > best.Confidence {
			best = Candidate[string]{Value: string(set.category), Confidence: confidence, Source: "category-keywords"}
		}
	}
	if best.Value == "" {
		return Candidate[string]{}, false
	}
	return best, true
}
