package patterns

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Provider is one known vendor and the category its invoices belong to.
type Provider struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases"`
	Category string   `yaml:"category"`
}

type providerFile struct {
	Providers []Provider `yaml:"providers"`
}

// ProviderTable is an ordered list of known providers.
type ProviderTable struct {
	providers []Provider
	terms     [][]term
}

// term is a searchable spelling of a provider. Short all-caps names such as
// "UPS" only match in upper case so ordinary words do not trigger them.
type term struct {
	text  string
	exact bool
}

func newTerm(s string) term {
	s = strings.TrimSpace(s)
	if len(s) <= 4 && s == strings.ToUpper(s) && strings.ToUpper(s) != strings.ToLower(s) {
		return term{text: s, exact: true}
	}
	return term{text: strings.ToLower(s)}
}

func (t term) indexes(text, lower string) []int {
	if t.exact {
		return wordIndexes(text, t.text)
	}
	return wordIndexes(lower, t.text)
}

var builtinProviders = []Provider{
	{Name: "AWS", Aliases: []string{"amazon web services", "aws"}, Category: string(constants.CloudServices)},
	{Name: "Microsoft Azure", Aliases: []string{"azure"}, Category: string(constants.CloudServices)},
	{Name: "Google Cloud", Aliases: []string{"google cloud platform", "gcp"}, Category: string(constants.CloudServices)},
	{Name: "DigitalOcean", Aliases: []string{"digital ocean"}, Category: string(constants.CloudServices)},
	{Name: "Heroku", Category: string(constants.CloudServices)},
	{Name: "Cloudflare", Category: string(constants.CloudServices)},
	{Name: "Linode", Aliases: []string{"akamai cloud"}, Category: string(constants.CloudServices)},
	{Name: "Vercel", Category: string(constants.CloudServices)},
	{Name: "Netlify", Category: string(constants.CloudServices)},
	{Name: "Hetzner", Category: string(constants.CloudServices)},
	{Name: "GitHub", Category: string(constants.SoftwareSubscription)},
	{Name: "GitLab", Category: string(constants.SoftwareSubscription)},
	{Name: "Atlassian", Aliases: []string{"jira", "confluence"}, Category: string(constants.SoftwareSubscription)},
	{Name: "Slack", Category: string(constants.SoftwareSubscription)},
	{Name: "Zoom", Aliases: []string{"zoom video communications"}, Category: string(constants.SoftwareSubscription)},
	{Name: "Adobe", Category: string(constants.SoftwareSubscription)},
	{Name: "Microsoft 365", Aliases: []string{"office 365"}, Category: string(constants.SoftwareSubscription)},
	{Name: "Google Workspace", Aliases: []string{"g suite", "gsuite"}, Category: string(constants.SoftwareSubscription)},
	{Name: "Dropbox", Category: string(constants.SoftwareSubscription)},
	{Name: "Notion", Category: string(constants.SoftwareSubscription)},
	{Name: "Salesforce", Category: string(constants.SoftwareSubscription)},
	{Name: "OpenAI", Category: string(constants.SoftwareSubscription)},
	{Name: "JetBrains", Category: string(constants.SoftwareSubscription)},
	{Name: "Verizon", Category: string(constants.Telecommunications)},
	{Name: "AT&T", Category: string(constants.Telecommunications)},
	{Name: "T-Mobile", Category: string(constants.Telecommunications)},
	{Name: "Vodafone", Category: string(constants.Telecommunications)},
	{Name: "Comcast", Aliases: []string{"xfinity"}, Category: string(constants.Telecommunications)},
	{Name: "Twilio", Category: string(constants.Telecommunications)},
	{Name: "PG&E", Aliases: []string{"pacific gas and electric"}, Category: string(constants.Utilities)},
	{Name: "Con Edison", Aliases: []string{"coned"}, Category: string(constants.Utilities)},
	{Name: "FedEx", Category: string(constants.ShippingLogistics)},
	{Name: "DHL", Category: string(constants.ShippingLogistics)},
	{Name: "USPS", Aliases: []string{"united states postal service"}, Category: string(constants.ShippingLogistics)},
	{Name: "UPS", Aliases: []string{"united parcel service"}, Category: string(constants.ShippingLogistics)},
	{Name: "Uber", Category: string(constants.TravelExpenses)},
	{Name: "Lyft", Category: string(constants.TravelExpenses)},
	{Name: "Airbnb", Category: string(constants.TravelExpenses)},
	{Name: "Delta Air Lines", Aliases: []string{"delta airlines"}, Category: string(constants.TravelExpenses)},
	{Name: "United Airlines", Category: string(constants.TravelExpenses)},
	{Name: "Google Ads", Aliases: []string{"google adwords"}, Category: string(constants.Marketing)},
	{Name: "Meta Ads", Aliases: []string{"facebook ads"}, Category: string(constants.Marketing)},
	{Name: "Mailchimp", Category: string(constants.Marketing)},
	{Name: "Staples", Category: string(constants.OfficeSupplies)},
	{Name: "Office Depot", Category: string(constants.OfficeSupplies)},
	{Name: "Netflix", Category: string(constants.Entertainment)},
	{Name: "Spotify", Category: string(constants.Entertainment)},
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() *ProviderTable {
	return NewProviderTable(builtinProviders)
}

// NewProviderTable indexes ps. Earlier entries win ties.
func NewProviderTable(ps []Provider) *ProviderTable {
	t := &ProviderTable{}
	for _, p := range ps {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			continue
		}
		seen := map[term]bool{}
		var terms []term
		for _, spelling := range append([]string{p.Name}, p.Aliases...) {
			tm := newTerm(spelling)
			if tm.text == "" || seen[tm] {
				continue
			}
			seen[tm] = true
			terms = append(terms, tm)
		}
		t.providers = append(t.providers, p)
		t.terms = append(t.terms, terms)
	}
	return t
}

// ParseProviders decodes a YAML document of the form
//
//	providers:
//	  - name: Hetzner
//	    aliases: [hetzner online]
//	    category: Cloud Services
func ParseProviders(r io.Reader) ([]Provider, error) {
	var f providerFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, common.NewAppError("PROVIDERS_INVALID", "failed to decode provider table", err)
	}
	for i, p := range f.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return nil, common.NewAppError("PROVIDERS_INVALID", fmt.Sprintf("provider %d has no name", i), common.ErrInvalidInput)
		}
	}
	return f.Providers, nil
}

// LoadProviderFile reads a YAML provider table from path and places its
// entries ahead of the built-in ones.
func LoadProviderFile(path string) (*ProviderTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, common.WrapError(err, "open provider table")
	}
	defer fh.Close()

	extra, err := ParseProviders(fh)
	if err != nil {
		return nil, err
	}
	return NewProviderTable(append(extra, builtinProviders...)), nil
}

// Len returns the number of providers in the table.
func (t *ProviderTable) Len() int { return len(t.providers) }

// Lookup resolves name to a known provider by exact name or alias, or by a
// whole-word occurrence of one inside name ("Amazon Web Services, Inc.").
func (t *ProviderTable) Lookup(name string) (Provider, bool) {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if lower == "" {
		return Provider{}, false
	}
	for i, terms := range t.terms {
		for _, tm := range terms {
			if strings.ToLower(tm.text) == lower {
				return t.providers[i], true
			}
		}
	}
	for i, terms := range t.terms {
		for _, tm := range terms {
			if len(tm.indexes(name, lower)) > 0 {
				return t.providers[i], true
			}
		}
	}
	return Provider{}, false
}

type providerHit struct {
	provider Provider
	count    int
	first    int
}

// hits returns every provider mentioned in text as a whole word.
func (t *ProviderTable) hits(text string) []providerHit {
	lower := strings.ToLower(text)
	var out []providerHit
	for i, terms := range t.terms {
		hit := providerHit{provider: t.providers[i], first: -1}
		seen := map[int]bool{}
		for _, tm := range terms {
			for _, at := range tm.indexes(text, lower) {
				if seen[at] {
					continue
				}
				seen[at] = true
				hit.count++
				if hit.first < 0 || at < hit.first {
					hit.first = at
				}
			}
		}
		if hit.count > 0 {
			out = append(out, hit)
		}
	}
	return out
}

// wordIndexes returns the offsets of term in s where it is not glued to a
// neighbouring letter or digit. Underscores and punctuation count as breaks
// so "aws_invoice.pdf" matches "aws".
func wordIndexes(s, term string) []int {
	var out []int
	for from := 0; from <= len(s)-len(term); {
		i := strings.Index(s[from:], term)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(term)
		if !isWordRune(lastRune(s[:start])) && !isWordRune(firstRune(s[end:])) {
			out = append(out, start)
		}
		from = start + 1
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

var reProviderLabel = regexp.MustCompile(`(?im)^\s*(?:from|vendor|supplier|billed\s+by|sold\s+by|issued\s+by|seller|merchant|payee)\s*[:\-]\s*(?P<v>[^\n]{2,100})$`)

var reContact = regexp.MustCompile(`@|https?://|www\.|^\+?[\d\s()\-]+$`)

// ProviderRules holds the labeled fallback used when no known provider matches.
var ProviderRules = []Rule{
	{Name: "provider-label", Pattern: reProviderLabel, Confidence: 60},
}

func (e *Extractor) providerLabelField() Field[string] {
	return Field[string]{
		Name:  FieldProvider,
		Rules: ProviderRules,
		Refine: func(_ string, c Candidate[string]) (Candidate[string], *common.ValidationError) {
			v := c.Value
			if i := strings.IndexAny(v, ",|"); i > 0 {
				v = v[:i]
			}
			if reContact.MatchString(v) {
				return Candidate[string]{}, reject(FieldProvider, c.Value, "looks like contact details")
			}
			v, verr := ValidateProvider(v)
			if verr != nil {
				return Candidate[string]{}, verr
			}
			if p, ok := e.providers.Lookup(v); ok {
				v = p.Name
			}
			return withValue(c, v, c.Confidence), nil
		},
		Key: strings.ToLower,
	}
}

// Provider returns the best provider candidate. Known providers named in the
// filename outrank those found in the body; labeled fields are the fallback.
// Ties go to the earliest mention.
func (e *Extractor) Provider(text, filename string) (Candidate[string], bool) {
	best := Candidate[string]{Confidence: -1}
	consider := func(c Candidate[string]) {
		if c.Confidence > best.Confidence || (c.Confidence == best.Confidence && c.Start < best.Start) {
			best = c
		}
	}

	if filename != "" {
		for _, h := range e.providers.hits(filename) {
			consider(Candidate[string]{Value: h.provider.Name, Confidence: 100, Source: "provider-filename", Start: h.first, End: h.first})
		}
	}
	for _, h := range e.providers.hits(text) {
		consider(Candidate[string]{Value: h.provider.Name, Confidence: 80 + min(h.count, 10), Source: "provider-body", Start: h.first, End: h.first})
	}
	if best.Confidence < 0 {
		if c, ok := Best(e.logger, text, e.providerLabelField()); ok {
			consider(c)
		}
	}
	if best.Confidence < 0 {
		return Candidate[string]{}, false
	}
	return best, true
}
