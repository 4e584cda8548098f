package deck

import "strings"

// OtherCountry is the checkout form's catch-all option.
const (
	OtherCountry   = "OTHER"
	DefaultCountry = "GB"
)

var AllowedCountries = []string{
	"US", "CA", "MX",
	"GB", "DE", "FR", "IT", "ES", "NL", "BE", "AT", "CH", "SE", "NO", "DK", "FI", "IE", "PT",
	"PL", "CZ", "HU", "RO", "BG", "HR", "SI", "SK", "LT", "LV", "EE", "GR", "CY", "MT", "LU",
	"AU", "NZ", "JP", "SG", "HK", "KR", "TW", "MY", "TH", "PH", "ID", "VN", "IN",
	"AE", "SA", "IL", "TR", "ZA",
	"BR", "AR", "CL", "PE", "CO",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(AllowedCountries))
	for _, c := range AllowedCountries {
		m[c] = true
	}
	return m
}()

// NormalizeCountry upper-cases code and maps OTHER to the default country.
func NormalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == OtherCountry {
		return DefaultCountry
	}
	return code
}

func IsAllowedCountry(code string) bool {
	return allowed[code]
}
