package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

const (
	unknownValue = "Unknown"
	otherValue   = "Other"
	// sukTemSib is an event series reported as its own category
	sukTemSib = "สุขเต็มสิบ"
)

// eventCategory derives a category from the event name. The first matching rule wins.
func eventCategory(eventName string) string {
	name := strings.ToLower(eventName)

	switch {
	case strings.Contains(name, sukTemSib):
		return sukTemSib
	case strings.Contains(name, "half"):
		return "Half Marathon"
	case strings.Contains(name, "mini"):
		return "Mini Marathon"
	case strings.Contains(name, "marathon"):
		return "Marathon"
	case strings.Contains(name, "10k") || strings.Contains(name, "10 km"):
		return "10K"
	case strings.Contains(name, "5k") || strings.Contains(name, "5 km"):
		return "5K"
	case strings.Contains(name, "fun run"):
		return "Fun Run"
	case strings.Contains(name, "trail"):
		return "Trail Run"
	case strings.Contains(name, "charity"):
		return "Charity Run"
	default:
		return otherValue
	}
}

var distancePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:KM|K)`)

// distanceCategory extracts a race distance such as "5K" or "21.1K" from a ticket type name
func distanceCategory(ticketType string) string {
	if ticketType == "" {
		return otherValue
	}

	upper := strings.ToUpper(ticketType)
	if m := distancePattern.FindStringSubmatch(upper); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return m[1] + "K"
		}
		return strconv.FormatFloat(f, 'f', -1, 64) + "K"
	}

	switch {
	case strings.Contains(upper, "HALF"):
		return "21.1K"
	case strings.Contains(upper, "MARATHON"):
		return "42.2K"
	default:
		return otherValue
	}
}

var genderMapping = map[string]string{
	"male":   "Male",
	"m":      "Male",
	"ชาย":    "Male",
	"female": "Female",
	"f":      "Female",
	"หญิง":   "Female",
}

// normalizeGender maps the free-text gender column onto Male, Female, LGBTQ or Unknown
func normalizeGender(gender string) string {
	g := strings.ToLower(strings.TrimSpace(gender))
	if g == "" || g == "nan" {
		return unknownValue
	}
	if mapped, ok := genderMapping[g]; ok {
		return mapped
	}
	return "LGBTQ"
}

var birthDateLayouts = []string{"2006-01-02", "2006/01/02", time.RFC3339, "2006-01-02 15:04:05"}

// ageGroup buckets the registrant's age at registration time
func ageGroup(birthDate string, at time.Time) string {
	if birthDate == "" {
		return unknownValue
	}

	var born time.Time
	var parsed bool
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, birthDate); err == nil {
			born, parsed = t, true
			break
		}
	}
	if !parsed {
		return unknownValue
	}

	age := at.Year() - born.Year()
	if at.Month() < born.Month() || (at.Month() == born.Month() && at.Day() < born.Day()) {
		age--
	}

	switch {
	case age < 0 || age > 120:
		return unknownValue
	case age < 18:
		return "<18"
	case age < 25:
		return "18-24"
	case age < 35:
		return "25-34"
	case age < 45:
		return "35-44"
	case age < 55:
		return "45-54"
	default:
		return "55+"
	}
}

var priceContext = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}()

// parsePriceMinor parses a ticket price into minor currency units (satang), rounding half up.
// Missing, negative or malformed prices count as free.
func parsePriceMinor(price string) int64 {
	if price == "" {
		return 0
	}

	var d apd.Decimal
	if _, _, err := d.SetString(strings.ReplaceAll(price, ",", "")); err != nil {
		return 0
	}
	if d.Form != apd.Finite || d.Negative {
		return 0
	}

	var scaled apd.Decimal
	if _, err := priceContext.Quantize(&scaled, &d, -2); err != nil {
		return 0
	}
	scaled.Exponent = 0

	minor, err := scaled.Int64()
	if err != nil {
		return 0
	}
	return minor
}

// priceTier buckets a price in minor units into the tiers used by the dashboard
func priceTier(minor int64) string {
	switch {
	case minor == 0:
		return "Free"
	case minor <= 400_00:
		return "Budget (≤400)"
	case minor <= 600_00:
		return "Economy (401-600)"
	case minor <= 900_00:
		return "Standard (601-900)"
	case minor <= 1200_00:
		return "Premium (901-1200)"
	default:
		return "VIP (>1200)"
	}
}
