// Package marketplace holds the table of supported regional storefronts
// and the routing logic that maps a product URL to one of them.
package marketplace

import (
	"errors"
	"net/url"
	"strings"
)

// Descriptor describes one regional storefront. The table is immutable
// and process-wide.
type Descriptor struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	Currency     string `json:"currency"`
	CurrencyCode string `json:"currency_code"`
}

var descriptors = []Descriptor{
	{Code: "US", Name: "United States", Domain: "amazon.com", Currency: "$", CurrencyCode: "USD"},
	{Code: "CA", Name: "Canada", Domain: "amazon.ca", Currency: "C$", CurrencyCode: "CAD"},
	{Code: "MX", Name: "Mexico", Domain: "amazon.com.mx", Currency: "MX$", CurrencyCode: "MXN"},
	{Code: "BR", Name: "Brazil", Domain: "amazon.com.br", Currency: "R$", CurrencyCode: "BRL"},
	{Code: "UK", Name: "United Kingdom", Domain: "amazon.co.uk", Currency: "£", CurrencyCode: "GBP"},
	{Code: "DE", Name: "Germany", Domain: "amazon.de", Currency: "€", CurrencyCode: "EUR"},
	{Code: "FR", Name: "France", Domain: "amazon.fr", Currency: "€", CurrencyCode: "EUR"},
	{Code: "IT", Name: "Italy", Domain: "amazon.it", Currency: "€", CurrencyCode: "EUR"},
	{Code: "ES", Name: "Spain", Domain: "amazon.es", Currency: "€", CurrencyCode: "EUR"},
	{Code: "NL", Name: "Netherlands", Domain: "amazon.nl", Currency: "€", CurrencyCode: "EUR"},
	{Code: "AE", Name: "UAE", Domain: "amazon.ae", Currency: "AED", CurrencyCode: "AED"},
	{Code: "IN", Name: "India", Domain: "amazon.in", Currency: "₹", CurrencyCode: "INR"},
	{Code: "JP", Name: "Japan", Domain: "amazon.co.jp", Currency: "¥", CurrencyCode: "JPY"},
	{Code: "AU", Name: "Australia", Domain: "amazon.com.au", Currency: "A$", CurrencyCode: "AUD"},
	{Code: "SG", Name: "Singapore", Domain: "amazon.sg", Currency: "S$", CurrencyCode: "SGD"},
}

var byCode = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.Code] = d
	}
	return m
}()

// All returns the supported storefronts in their canonical order.
func All() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// ByCode looks up a storefront by its ISO-2 country code.
func ByCode(code string) (Descriptor, bool) {
	d, ok := byCode[strings.ToUpper(code)]
	return d, ok
}

// Domains returns the allow-list of storefront hosts.
func Domains() []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Domain
	}
	return out
}

// Validation errors surfaced to API clients.
var (
	ErrMissingURL    = errors.New("URL is required")
	ErrBadScheme     = errors.New("URL must start with http or https")
	ErrBadHost       = errors.New("URL host is invalid")
	ErrUnknownDomain = errors.New("URL must be an Amazon domain")
)

// FromURL validates a product URL and routes it to a storefront.
// The host comparison is case-insensitive, ignores a leading "www.",
// and accepts either an exact match or a dotted-suffix match against
// the allow-list.
func FromURL(raw string) (Descriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return Descriptor{}, ErrMissingURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Descriptor{}, ErrBadHost
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Descriptor{}, ErrBadScheme
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return Descriptor{}, ErrBadHost
	}

	for _, d := range descriptors {
		if host == d.Domain || strings.HasSuffix(host, "."+d.Domain) {
			return d, nil
		}
	}
	return Descriptor{}, ErrUnknownDomain
}

// ProductURL builds the canonical product page URL for a storefront,
// used by the readiness prober.
func ProductURL(d Descriptor, asin string) string {
	return "https://www." + d.Domain + "/dp/" + asin
}
