package billing

import (
	"errors"
	"sort"
)

// ErrUnsupportedCountry is returned for countries the payment processor
// cannot onboard or price.
var ErrUnsupportedCountry = errors.New("country is not supported")

// CountryPricing is everything derived from a profile's country.
type CountryPricing struct {
	Country      string
	CountryCode  string
	Currency     string
	UnitTipValue int64
}

type countryEntry struct {
	code     string
	currency string
}

// Zero-decimal currencies (JPY) are left out: amounts are always
// units * value * 100 minor units.
var countries = map[string]countryEntry{
	"Australia":          {"AU", "aud"},
	"Austria":            {"AT", "eur"},
	"Belgium":            {"BE", "eur"},
	"Brazil":             {"BR", "brl"},
	"Bulgaria":           {"BG", "eur"},
	"Canada":             {"CA", "cad"},
	"Cyprus":             {"CY", "eur"},
	"CzechRepublic":      {"CZ", "czk"},
	"Denmark":            {"DK", "dkk"},
	"Estonia":            {"EE", "eur"},
	"Finland":            {"FI", "eur"},
	"France":             {"FR", "eur"},
	"Germany":            {"DE", "eur"},
	"Ghana":              {"GH", "usd"},
	"Gibraltar":          {"GI", "gbp"},
	"Greece":             {"GR", "eur"},
	"HongKong":           {"HK", "hkd"},
	"Hungary":            {"HU", "huf"},
	"India":              {"IN", "inr"},
	"Indonesia":          {"ID", "idr"},
	"Ireland":            {"IE", "eur"},
	"Italy":              {"IT", "eur"},
	"Kenya":              {"KE", "usd"},
	"Latvia":             {"LV", "eur"},
	"Liechtenstein":      {"LI", "chf"},
	"Lithuania":          {"LT", "eur"},
	"Luxembourg":         {"LU", "eur"},
	"Malta":              {"MT", "eur"},
	"Mexico":             {"MX", "mxn"},
	"Netherlands":        {"NL", "eur"},
	"NewZealand":         {"NZ", "nzd"},
	"Norway":             {"NO", "nok"},
	"Poland":             {"PL", "pln"},
	"Portugal":           {"PT", "eur"},
	"Romania":            {"RO", "ron"},
	"Singapore":          {"SG", "sgd"},
	"Slovakia":           {"SK", "eur"},
	"Slovenia":           {"SI", "eur"},
	"Spain":              {"ES", "eur"},
	"Sweden":             {"SE", "sek"},
	"Switzerland":        {"CH", "chf"},
	"Thailand":           {"TH", "thb"},
	"UnitedArabEmirates": {"AE", "aed"},
	"UnitedKingdom":      {"GB", "gbp"},
	"UnitedStates":       {"US", "usd"},
	"Uruguay":            {"UY", "usd"},
}

// unitTipValue is the price of one tip unit in major currency units.
var unitTipValue = map[string]int64{
	"aed": 10,
	"aud": 5,
	"brl": 15,
	"cad": 4,
	"chf": 3,
	"czk": 75,
	"dkk": 20,
	"eur": 3,
	"gbp": 3,
	"hkd": 25,
	"huf": 1000,
	"idr": 50000,
	"inr": 250,
	"mxn": 50,
	"nok": 30,
	"nzd": 5,
	"pln": 12,
	"ron": 15,
	"sek": 30,
	"sgd": 4,
	"thb": 100,
	"usd": 3,
}

// ResolveCountryPricing looks up the country code, currency and unit tip value.
func ResolveCountryPricing(country string) (CountryPricing, error) {
	entry, ok := countries[country]
	if !ok {
		return CountryPricing{}, ErrUnsupportedCountry
	}
	return CountryPricing{
		Country:      country,
		CountryCode:  entry.code,
		Currency:     entry.currency,
		UnitTipValue: unitTipValue[entry.currency],
	}, nil
}

// SupportedCountries returns the accepted country names, sorted.
func SupportedCountries() []string {
	names := make([]string, 0, len(countries))
	for name := range countries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeAmount converts a number of tip units into minor currency units.
func ComputeAmount(units, unitValue int64) int64 {
	return units * unitValue * 100
}

// ComputeFee is the platform fee for amount, rounded down.
func ComputeFee(amount, percent int64) int64 {
	return amount * percent / 100
}
