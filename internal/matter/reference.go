package matter

import (
	"regexp"
	"strings"
)

// Reference is a matter-like reference pulled out of an agenda item: an
// identifier string and/or an address string, plus the source text both are
// extracted from when they are empty.
type Reference struct {
	Identifier string
	Address    string
	Text       string
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// identifierPattern finds file/bylaw style references in prose, including
	// compound forms like "File No. 1234 & 1235".
	identifierPattern = regexp.MustCompile(`(?i)\b(?:file|application|bylaw|permit|development)\s*(?:no\.?|number|#)?\s*([0-9]{2,}[0-9a-zA-Z-]*(?:\s*(?:&|and|,)\s*[0-9]{2,}[0-9a-zA-Z-]*)*)`)

	compoundSplitPattern = regexp.MustCompile(`(?i)\s*(?:&|,|;|\band\b)\s*`)

	// addressPattern requires a street number followed by capitalized street
	// name words and a capitalized street-type suffix. Lowercase or
	// non-standard suffixes do not match, which keeps ordinary prose like
	// "a way forward" out of the address index.
	addressPattern = regexp.MustCompile(`\b(\d+[A-Za-z]?)\s+((?:[A-Z][a-z]+\s+)*[A-Z][a-z]+)\s+(Road|Street|Avenue|Boulevard|Drive|Lane|Way|Place|Court|Crescent|Terrace|Parkway|Trail|Highway)\b`)
)

// NormalizeIdentifier lowercases an identifier and strips everything except
// letters and digits, so "2021-1234", "2021.1234", and "2021 1234" collapse
// to one key.
func NormalizeIdentifier(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	return nonAlphanumeric.ReplaceAllString(lowered, "")
}

// SplitIdentifiers expands a possibly-compound identifier ("1234 & 1235")
// into normalized keys. Tokens without a digit are dropped; they are labels,
// not identifiers.
func SplitIdentifiers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := compoundSplitPattern.Split(raw, -1)
	keys := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		key := NormalizeIdentifier(part)
		if key == "" || !strings.ContainsAny(key, "0123456789") {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ExtractIdentifiers finds identifier references in free text and returns
// their normalized keys in document order.
func ExtractIdentifiers(text string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, match := range identifierPattern.FindAllStringSubmatch(text, -1) {
		for _, key := range SplitIdentifiers(match[1]) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// NormalizeAddress lowercases an address and collapses it to single-spaced
// tokens: "123  Main Street" becomes "123 main street".
func NormalizeAddress(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
}

// ExtractAddresses finds street addresses in free text and returns them
// normalized, in document order.
func ExtractAddresses(text string) []string {
	var addresses []string
	seen := make(map[string]struct{})
	for _, match := range addressPattern.FindAllStringSubmatch(text, -1) {
		address := NormalizeAddress(match[0])
		if _, dup := seen[address]; dup {
			continue
		}
		seen[address] = struct{}{}
		addresses = append(addresses, address)
	}
	return addresses
}

// IdentifierKeys resolves the identifier keys for a reference, falling back
// to scanning the source text when no explicit identifier is present. Labels
// like "File No." are stripped so the keys carry only the identifier core.
func (r Reference) IdentifierKeys() []string {
	if strings.TrimSpace(r.Identifier) != "" {
		if keys := ExtractIdentifiers(r.Identifier); len(keys) > 0 {
			return keys
		}
		return SplitIdentifiers(r.Identifier)
	}
	return ExtractIdentifiers(r.Text)
}

// AddressKeys resolves the normalized addresses for a reference, falling back
// to scanning the source text when no explicit address is present.
func (r Reference) AddressKeys() []string {
	if strings.TrimSpace(r.Address) != "" {
		if extracted := ExtractAddresses(r.Address); len(extracted) > 0 {
			return extracted
		}
		return []string{NormalizeAddress(r.Address)}
	}
	return ExtractAddresses(r.Text)
}

// IsEmpty reports whether the reference carries nothing matchable.
func (r Reference) IsEmpty() bool {
	return len(r.IdentifierKeys()) == 0 && len(r.AddressKeys()) == 0
}
