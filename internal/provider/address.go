package provider

import (
	"paybridge/internal/domain/flow"
)

// PostalAddress is the billing address shape gateways return alongside a
// nonce. JSON field names match the wire contract shared by the redirect
// and native wallet gateways.
type PostalAddress struct {
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	PhoneNumber       string `json:"phoneNumber"`
	StreetAddress     string `json:"streetAddress"`
	ExtendedAddress   string `json:"extendedAddress"`
	Locality          string `json:"locality"`
	Region            string `json:"region"`
	PostalCode        string `json:"postalCode"`
	CountryCodeAlpha2 string `json:"countryCodeAlpha2"`
}

// BillingInfo maps a gateway address onto the full outcome address map,
// leaving absent fields blank.
func BillingInfo(addr *PostalAddress) map[string]string {
	m := flow.EmptyBillingAddress()
	if addr == nil {
		return m
	}
	m["givenName"] = addr.GivenName
	m["surname"] = addr.Surname
	m["phoneNumber"] = addr.PhoneNumber
	m["streetAddress"] = addr.StreetAddress
	m["extendedAddress"] = addr.ExtendedAddress
	m["locality"] = addr.Locality
	m["region"] = addr.Region
	m["postalCode"] = addr.PostalCode
	m["countryCodeAlpha2"] = addr.CountryCodeAlpha2
	return m
}
