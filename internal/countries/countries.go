package countries

import (
	"sort"
	"strings"

	"github.com/fjod/go_storefront/internal/pricing"
)

// Country is form data for the checkout page: selectable destinations with
// their dialing prefix. EU marks countries with a VAT rate.
type Country struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	PhonePrefix string `json:"phone_prefix"`
	EU          bool   `json:"eu"`
}

var list = build([]Country{
	{Code: "AT", Name: "Austria", PhonePrefix: "+43"},
	{Code: "BE", Name: "Belgium", PhonePrefix: "+32"},
	{Code: "BG", Name: "Bulgaria", PhonePrefix: "+359"},
	{Code: "HR", Name: "Croatia", PhonePrefix: "+385"},
	{Code: "CY", Name: "Cyprus", PhonePrefix: "+357"},
	{Code: "CZ", Name: "Czech Republic", PhonePrefix: "+420"},
	{Code: "DK", Name: "Denmark", PhonePrefix: "+45"},
	{Code: "EE", Name: "Estonia", PhonePrefix: "+372"},
	{Code: "FI", Name: "Finland", PhonePrefix: "+358"},
	{Code: "FR", Name: "France", PhonePrefix: "+33"},
	{Code: "DE", Name: "Germany", PhonePrefix: "+49"},
	{Code: "GR", Name: "Greece", PhonePrefix: "+30"},
	{Code: "HU", Name: "Hungary", PhonePrefix: "+36"},
	{Code: "IE", Name: "Ireland", PhonePrefix: "+353"},
	{Code: "IT", Name: "Italy", PhonePrefix: "+39"},
	{Code: "LV", Name: "Latvia", PhonePrefix: "+371"},
	{Code: "LT", Name: "Lithuania", PhonePrefix: "+370"},
	{Code: "LU", Name: "Luxembourg", PhonePrefix: "+352"},
	{Code: "MT", Name: "Malta", PhonePrefix: "+356"},
	{Code: "NL", Name: "Netherlands", PhonePrefix: "+31"},
	{Code: "PL", Name: "Poland", PhonePrefix: "+48"},
	{Code: "PT", Name: "Portugal", PhonePrefix: "+351"},
	{Code: "RO", Name: "Romania", PhonePrefix: "+40"},
	{Code: "SK", Name: "Slovakia", PhonePrefix: "+421"},
	{Code: "SI", Name: "Slovenia", PhonePrefix: "+386"},
	{Code: "ES", Name: "Spain", PhonePrefix: "+34"},
	{Code: "SE", Name: "Sweden", PhonePrefix: "+46"},
	{Code: "GB", Name: "United Kingdom", PhonePrefix: "+44"},
	{Code: "CH", Name: "Switzerland", PhonePrefix: "+41"},
	{Code: "NO", Name: "Norway", PhonePrefix: "+47"},
	{Code: "US", Name: "United States", PhonePrefix: "+1"},
	{Code: "CA", Name: "Canada", PhonePrefix: "+1"},
	{Code: "AU", Name: "Australia", PhonePrefix: "+61"},
	{Code: "NZ", Name: "New Zealand", PhonePrefix: "+64"},
	{Code: "JP", Name: "Japan", PhonePrefix: "+81"},
})

func build(cs []Country) []Country {
	for i := range cs {
		_, cs[i].EU = pricing.LookupRate(cs[i].Code)
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return cs
}

// All returns the countries sorted by name.
func All() []Country {
	out := make([]Country, len(list))
	copy(out, list)
	return out
}

func Lookup(code string) (Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range list {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}
