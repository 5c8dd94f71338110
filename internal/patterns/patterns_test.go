package patterns

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/dates"
)

func TestInvoiceNumber(t *testing.T) {
	e := New()
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"labeled number", "Invoice Number: ABC-12345\nTotal: $10.00", "ABC-12345", true},
		{"invoice no with dot", "Invoice No. 2024/0042", "2024/0042", true},
		{"hash label", "Invoice #: 98765", "98765", true},
		{"labeled beats token", "Ref: XYZ-99\nInvoice Number: INV-7\nINV-100", "INV-7", true},
		{"prefixed token", "Thanks for your order\nINV-2024-0099", "INV-2024-0099", true},
		{"filename token", "AWS-INV-2024-0099.pdf", "INV-2024-0099", true},
		{"long digit run", "Customer copy 1234567890", "1234567890", true},
		{"short unlabeled digits rejected", "Order 123456 shipped", "", false},
		{"labeled date rejected", "Invoice Number: 15/03/2024", "", false},
		{"labeled amount rejected", "Invoice #: 1,234.56", "", false},
		{"currency code rejected", "Invoice: USD", "", false},
		{"nothing", "hello world", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := e.InvoiceNumber(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, c.Value)
			}
		})
	}
}

func TestValidateInvoiceNumber(t *testing.T) {
	tests := []struct {
		raw       string
		minDigits int
		wantOK    bool
	}{
		{"INV-1", LabeledDigitRun, true},
		{"AB", LabeledDigitRun, false},
		{"ABCDEF", LabeledDigitRun, false},
		{strings.Repeat("A1", 26), LabeledDigitRun, false},
		{"2024-03-15", LabeledDigitRun, false},
		{"March 15, 2024", LabeledDigitRun, false},
		{"EUR", LabeledDigitRun, false},
		{"99.99", LabeledDigitRun, false},
		{"123", LabeledDigitRun, false},
		{"1234", LabeledDigitRun, true},
		{"1234567", longDigitRun, false},
		{"12345678", longDigitRun, true},
		{"INR1500", LabeledDigitRun, false},
		{"EUR-1.234,50", LabeledDigitRun, false},
		{"99.00 USD", LabeledDigitRun, false},
		{"ABC1500", LabeledDigitRun, true},
		{"MAR-2024", LabeledDigitRun, false},
		{"March 2024", LabeledDigitRun, false},
		{"sep/24", LabeledDigitRun, false},
		{"DEC-1001", LabeledDigitRun, true},
		{"EUR-2024-001", LabeledDigitRun, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, verr := ValidateInvoiceNumber(tt.raw, tt.minDigits)
			assert.Equal(t, tt.wantOK, verr == nil)
		})
	}
}

func TestAmount(t *testing.T) {
	e := New()
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"total with symbol", "Total: $1,234.56", "1234.56", true},
		{"amount due beats subtotal", "Subtotal: 100.00\nTax: 8.00\nAmount Due: 108.00", "108.00", true},
		{"total beats bare", "Item 5.00\nTotal 15.00", "15.00", true},
		{"subtotal not read as total", "Subtotal: 90.00", "90.00", true},
		{"european decimal comma", "Gesamtbetrag\nTotal: 1.234,56 EUR", "1234.56", true},
		{"euro code dot thousands", "Total: EUR 1.234", "1234.00", true},
		{"euro sign dot thousands", "Total: €1.234", "1234.00", true},
		{"euro code after dot thousands", "Summe 1.234 EUR", "1234.00", true},
		{"dollar dot stays decimal", "Total: $1.234", "1.23", true},
		{"currency code after", "Charges 42.10 USD", "42.10", true},
		{"rounds to cents", "Total: 10.5", "10.50", true},
		{"negative rejected", "Total: -50.00", "", false},
		{"zero rejected", "Amount Due: 0.00", "", false},
		{"too large rejected", "Total: 1000000000.00", "", false},
		{"date fragment rejected", "Date 15.03.2024", "", false},
		{"nothing", "no numbers here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := e.Amount(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, c.Value.StringFixed(2))
			}
		})
	}
}

func TestAmountScoring(t *testing.T) {
	e := New()
	ranked := Score(nil, "Total: $1,500,000.00\nAmount: $250.00", e.amountField())
	require.NotEmpty(t, ranked)
	// The very large total loses its label advantage to a plausible labeled amount.
	assert.Equal(t, "250.00", ranked[0].Value.StringFixed(2))
}

func TestAmbiguousDotGroupScoresLower(t *testing.T) {
	e := New()
	ambiguous := Score(nil, "Total: $1.234", e.amountField())
	plain := Score(nil, "Total: $1.23", e.amountField())
	require.NotEmpty(t, ambiguous)
	require.NotEmpty(t, plain)
	assert.Less(t, ambiguous[0].Confidence, plain[0].Confidence)

	euro := Score(nil, "Total: €1.234", e.amountField())
	require.NotEmpty(t, euro)
	assert.Equal(t, "1234.00", euro[0].Value.StringFixed(2))
	assert.Greater(t, euro[0].Confidence, ambiguous[0].Confidence)
}

func TestAmountDeduplicatesAcrossRules(t *testing.T) {
	e := New()
	ranked := Score(nil, "Total: $99.00\n$99.00", e.amountField())
	require.Len(t, ranked, 1)
	assert.Equal(t, "total-label", ranked[0].Source)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"1,234.56":  "1234.56",
		"1.234,56":  "1234.56",
		"1234,5":    "1234.5",
		"1,234":     "1234",
		"1.234.567": "1234567",
		"$ 12.00":   "12",
		"1'250.00":  "1250",
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			d, err := ParseAmount(raw)
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(want)), "got %s", d)
		})
	}
}

func TestAmountInvariantHolds(t *testing.T) {
	gofakeit.Seed(7)
	e := New()
	for i := 0; i < 300; i++ {
		v := gofakeit.Float64Range(-1000, 2_000_000_000)
		text := "Total: $" + decimal.NewFromFloat(v).StringFixed(int32(gofakeit.Number(0, 4)))
		c, ok := e.Amount(text)
		if !ok {
			continue
		}
		assert.True(t, c.Value.GreaterThan(decimal.Zero), text)
		assert.True(t, c.Value.LessThan(MaxAmount), text)
		assert.True(t, c.Value.Equal(c.Value.Round(2)), text)
	}
}

func TestProvider(t *testing.T) {
	e := New()
	tests := []struct {
		name     string
		text     string
		filename string
		want     string
		wantOK   bool
	}{
		{"filename wins", "Invoice from Microsoft Azure\nAzure usage", "AWS-INV-2024-0099.pdf", "AWS", true},
		{"body alias", "Amazon Web Services, Inc.\nTotal 10.00", "scan.pdf", "AWS", true},
		{"most mentions", "GitHub\nSlack\nSlack seats\nSlack", "x.pdf", "Slack", true},
		{"lowercase ups ignored", "sign ups this month", "x.pdf", "", false},
		{"uppercase ups", "UPS Ground shipment", "x.pdf", "UPS", true},
		{"labeled fallback", "Vendor: Acme Widgets Ltd, 1 Main St", "x.pdf", "Acme Widgets Ltd", true},
		{"email rejected", "From: billing@acme.test", "x.pdf", "", false},
		{"underscore filename", "nothing", "digitalocean_invoice.pdf", "DigitalOcean", true},
		{"earliest filename provider", "nothing", "github-aws-invoice.pdf", "GitHub", true},
		{"earliest filename provider reversed", "nothing", "aws-github-invoice.pdf", "AWS", true},
		{"earliest body provider on tie", "Slack\nGitHub", "x.pdf", "Slack", true},
		{"earliest body provider on tie reversed", "GitHub\nSlack", "x.pdf", "GitHub", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := e.Provider(tt.text, tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, c.Value)
			}
		})
	}
}

func TestProviderLookup(t *testing.T) {
	table := DefaultProviders()

	p, ok := table.Lookup("amazon web services")
	require.True(t, ok)
	assert.Equal(t, "AWS", p.Name)

	p, ok = table.Lookup("Zoom Video Communications, Inc.")
	require.True(t, ok)
	assert.Equal(t, "Zoom", p.Name)

	_, ok = table.Lookup("Acme Corp")
	assert.False(t, ok)
}

func TestLoadProviders(t *testing.T) {
	doc := `
providers:
  - name: Acme Hosting
    aliases: [acmehost]
    category: Cloud Services
`
	ps, err := ParseProviders(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, ps, 1)

	e := New(WithProviders(NewProviderTable(append(ps, builtinProviders...))))
	c, ok := e.Provider("Thank you for choosing ACMEHOST", "inv.pdf")
	require.True(t, ok)
	assert.Equal(t, "Acme Hosting", c.Value)

	cat, ok := e.Category("", c.Value)
	require.True(t, ok)
	assert.Equal(t, string(constants.CloudServices), cat.Value)

	_, err = ParseProviders(strings.NewReader("providers:\n  - aliases: [x]\n"))
	assert.Error(t, err)
}

func TestCategory(t *testing.T) {
	e := New()

	c, ok := e.Category("anything", "AWS")
	require.True(t, ok)
	assert.Equal(t, "Cloud Services", c.Value)
	assert.Equal(t, 100, c.Confidence)

	c, ok = e.Category("Monthly cloud hosting for 2 server instances", "")
	require.True(t, ok)
	assert.Equal(t, "Cloud Services", c.Value)

	c, ok = e.Category("Flight LHR-JFK and hotel stay", "Acme Corp")
	require.True(t, ok)
	assert.Equal(t, "Travel", c.Value)

	_, ok = e.Category("zzz", "")
	assert.False(t, ok)
}

func TestDates(t *testing.T) {
	e := New()
	text := "Total: $1,234.56\nInvoice Date: 15/03/2024\nDue Date: 20/03/2024\nbill.pdf"

	billing, ok := e.BillingDate(text)
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", billing.Value)

	due, ok := e.DueDate(text, billing.Value)
	require.True(t, ok)
	assert.Equal(t, "2024-03-20", due.Value)
}

func TestBillingDateFallbacks(t *testing.T) {
	e := New()

	c, ok := e.BillingDate("Date: March 3, 2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-03", c.Value)
	assert.Equal(t, "date-label", c.Source)

	c, ok = e.BillingDate("Pay by 30/04/2024\nPeriod starting 01/04/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-04-01", c.Value)
	assert.Equal(t, genericDateConfidence, c.Confidence)

	for _, text := range []string{"Date Due: 20/03/2024", "Date Due 20/03/2024"} {
		_, ok = e.BillingDate(text)
		assert.False(t, ok, text)
	}

	c, ok = e.BillingDate("Invoice Date: 15/03/2024 Date Due: 20/03/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", c.Value)
}

func TestInvoiceNumberIgnoresAmountsAndPeriods(t *testing.T) {
	e := New()
	for _, text := range []string{
		"Amount: INR1500\nTotal: 1500.00",
		"Billing period: MAR-2024",
	} {
		_, ok := e.InvoiceNumber(text)
		assert.False(t, ok, text)
	}
}

func TestDueDateLabelNotReadAsBillingDate(t *testing.T) {
	e := New()
	r := e.All("Date Due 20/03/2024\nInvoice #: A-1001\nTotal 10.00", "x.pdf")
	assert.Nil(t, r.BillingDate)
	require.NotNil(t, r.DueDate)
	assert.Equal(t, "2024-03-20", r.DueDate.Value)
	require.NotNil(t, r.InvoiceNumber)
	assert.Equal(t, "A-1001", r.InvoiceNumber.Value)
}

func TestDueDateFromTerms(t *testing.T) {
	e := New()
	c, ok := e.DueDate("Terms: Net 30", "2024-01-31")
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", c.Value)
	assert.Equal(t, "payment-terms", c.Source)

	_, ok = e.DueDate("Terms: Net 30", "")
	assert.False(t, ok)

	c, ok = e.DueDate("Payment is due within 14 days", "2024-05-01")
	require.True(t, ok)
	assert.Equal(t, "2024-05-15", c.Value)
}

func TestMonthFirstExtractor(t *testing.T) {
	e := New(WithDateOrder(dates.MonthFirst))
	c, ok := e.BillingDate("Invoice Date: 03/04/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-04", c.Value)
}

func TestAllIsDeterministic(t *testing.T) {
	e := New()
	text := "ACME\nInvoice Number: A-1001\nInvoice Date: 01/02/2024\nNet 15\nTotal: $49.99\nAWS usage\nfile.pdf"
	first := e.All(text, "file.pdf")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.All(text, "file.pdf"))
	}
	require.NotNil(t, first.DueDate)
	assert.Equal(t, "2024-02-16", first.DueDate.Value)
	require.NotNil(t, first.Category)
	assert.Equal(t, "Cloud Services", first.Category.Value)
}
