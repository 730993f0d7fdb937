package registrar

import (
	"regexp"
	"strings"

	"reseller/pkg/serrors"
)

const (
	// MinYears and MaxYears bound registration/renewal terms.
	MinYears = 1
	MaxYears = 10

	// MinNameservers and DefaultMaxNameservers bound delegated nameserver
	// sets. Some vendors accept more; adapters override the max up to
	// AbsoluteMaxNameservers.
	MinNameservers         = 2
	DefaultMaxNameservers  = 4
	AbsoluteMaxNameservers = 13

	// MinAuthCodeLength is the minimum accepted transfer auth code length.
	MinAuthCodeLength = 6
)

// domainNameRe matches a syntactically valid fully-qualified domain name:
// dot-separated labels of letters, digits and inner hyphens, with an
// alphabetic TLD of at least two characters.
var domainNameRe = regexp.MustCompile(
	`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// hostnameRe matches a nameserver hostname.
var hostnameRe = regexp.MustCompile(
	`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// NormalizeDomainName lowercases and trims a domain name and validates its
// syntax. Validation happens before any network call so malformed input
// never spends a vendor call.
func NormalizeDomainName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), ".")))
	if name == "" {
		return "", serrors.With(serrors.ErrInvalidData, "domain name is required").
			WithDetail("domain", "required")
	}
	if len(name) > 253 || !domainNameRe.MatchString(name) {
		return "", serrors.With(serrors.ErrInvalidData, "invalid domain name %q", name).
			WithDetail("domain", "not a valid domain name")
	}

	return name, nil
}

// ValidateYears checks registration/renewal term bounds.
func ValidateYears(years int) error {
	if years < MinYears || years > MaxYears {
		return serrors.With(serrors.ErrInvalidData, "years must be between %d and %d", MinYears, MaxYears).
			WithDetail("years", "out of range")
	}

	return nil
}

// NormalizeNameservers lowercases, trims and de-duplicates the list while
// preserving submission order, and enforces count bounds. maxNameservers <= 0
// applies the default bound.
func NormalizeNameservers(nameservers []string, maxNameservers int) ([]string, error) {
	if maxNameservers <= 0 {
		maxNameservers = DefaultMaxNameservers
	}
	if maxNameservers > AbsoluteMaxNameservers {
		maxNameservers = AbsoluteMaxNameservers
	}

	seen := make(map[string]struct{}, len(nameservers))
	out := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		ns = strings.ToLower(strings.TrimSpace(ns))
		if ns == "" {
			continue
		}
		if !hostnameRe.MatchString(ns) {
			return nil, serrors.With(serrors.ErrInvalidData, "invalid nameserver %q", ns).
				WithDetail("nameservers", "not a valid hostname: "+ns)
		}
		if _, dup := seen[ns]; dup {
			continue
		}
		seen[ns] = struct{}{}
		out = append(out, ns)
	}

	if len(out) < MinNameservers || len(out) > maxNameservers {
		return nil, serrors.With(serrors.ErrInvalidData,
			"nameserver count must be between %d and %d", MinNameservers, maxNameservers).
			WithDetail("nameservers", "count out of range")
	}

	return out, nil
}

// ValidateAuthCode enforces the minimum transfer auth code length.
func ValidateAuthCode(authCode string) error {
	if len(strings.TrimSpace(authCode)) < MinAuthCodeLength {
		return serrors.With(serrors.ErrInvalidData,
			"auth code must be at least %d characters", MinAuthCodeLength).
			WithDetail("authCode", "too short")
	}

	return nil
}
