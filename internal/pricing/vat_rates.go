package pricing

import "github.com/shopspring/decimal"

// VATRate is the standard and reduced VAT of one jurisdiction, in percent.
// ReducedRates keeps the published order; the first entry is the one applied.
type VATRate struct {
	CountryCode  string            `json:"code"`
	Name         string            `json:"name"`
	StandardRate decimal.Decimal   `json:"standard_rate"`
	ReducedRates []decimal.Decimal `json:"reduced_rates"`
}

func rate(code, name, standard string, reduced ...string) VATRate {
	r := VATRate{
		CountryCode:  code,
		Name:         name,
		StandardRate: decimal.RequireFromString(standard),
		ReducedRates: make([]decimal.Decimal, 0, len(reduced)),
	}
	for _, v := range reduced {
		r.ReducedRates = append(r.ReducedRates, decimal.RequireFromString(v))
	}
	return r
}

// EU member state rates as of 2023.
var euVATRates = []VATRate{
	rate("AT", "Austria", "20", "10", "13"),
	rate("BE", "Belgium", "21", "6", "12"),
	rate("BG", "Bulgaria", "20", "9"),
	rate("HR", "Croatia", "25", "5", "13"),
	rate("CY", "Cyprus", "19", "5", "9"),
	rate("CZ", "Czech Republic", "21", "10", "15"),
	rate("DK", "Denmark", "25"),
	rate("EE", "Estonia", "22", "9"),
	rate("FI", "Finland", "24", "10", "14"),
	rate("FR", "France", "20", "5.5", "10"),
	rate("DE", "Germany", "19", "7"),
	rate("GR", "Greece", "24", "6", "13"),
	rate("HU", "Hungary", "27", "5", "18"),
	rate("IE", "Ireland", "23", "9", "13.5"),
	rate("IT", "Italy", "22", "5", "10"),
	rate("LV", "Latvia", "21", "5", "12"),
	rate("LT", "Lithuania", "21", "5", "9"),
	rate("LU", "Luxembourg", "17", "8", "14"),
	rate("MT", "Malta", "18", "5", "7"),
	rate("NL", "Netherlands", "21", "9"),
	rate("PL", "Poland", "23", "5", "8"),
	rate("PT", "Portugal", "23", "6", "13"),
	rate("RO", "Romania", "19", "5", "9"),
	rate("SK", "Slovakia", "20", "10"),
	rate("SI", "Slovenia", "22", "5", "9.5"),
	rate("ES", "Spain", "21", "4", "10"),
	rate("SE", "Sweden", "25", "6", "12"),
}

var ratesByCountry = func() map[string]VATRate {
	m := make(map[string]VATRate, len(euVATRates))
	for _, r := range euVATRates {
		m[r.CountryCode] = r
	}
	return m
}()

// Rates returns a copy of the supported VAT table.
func Rates() []VATRate {
	out := make([]VATRate, len(euVATRates))
	copy(out, euVATRates)
	return out
}

// LookupRate finds the VAT entry for an ISO country code.
func LookupRate(countryCode string) (VATRate, bool) {
	r, ok := ratesByCountry[normalizeCountry(countryCode)]
	return r, ok
}
