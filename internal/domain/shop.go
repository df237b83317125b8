package domain

import (
	"regexp"
	"strings"
)

// PlatformDomain is the suffix appended to bare shop handles
const PlatformDomain = "myshopify.com"

var allowedShopDomains = []string{"myshopify.com", "myshopify.io", "shop.dev", "shopify.com"}

var (
	schemePattern     = regexp.MustCompile(`\Ahttps?://`)
	adminStorePattern = regexp.MustCompile(`\Aadmin\.shopify\.com/store/([a-z0-9][a-z0-9\-]*)/?\z`)
	shopDomainPattern = regexp.MustCompile(`\A[a-z0-9][a-z0-9\-]*\.(` + strings.ReplaceAll(strings.Join(allowedShopDomains, "|"), ".", `\.`) + `)\z`)
	platformSuffix    = regexp.MustCompile(`\.myshopify\.(com|io)\z`)
)

// SanitizeShopDomain returns the canonical lower-cased shop domain, or "" when
// the input cannot be a shop on one of the allowed domains.
func SanitizeShopDomain(shop string) string {
	name := strings.ToLower(strings.TrimSpace(shop))
	if name == "" {
		return ""
	}

	name = schemePattern.ReplaceAllString(name, "")

	if m := adminStorePattern.FindStringSubmatch(name); m != nil {
		return m[1] + "." + PlatformDomain
	}

	if !strings.Contains(name, ".") {
		name += "." + PlatformDomain
	}

	if shopDomainPattern.MatchString(name) {
		return name
	}
	return ""
}

// StripPlatformSuffix removes a trailing .myshopify.com / .myshopify.io
func StripPlatformSuffix(shop string) string {
	return platformSuffix.ReplaceAllString(shop, "")
}
