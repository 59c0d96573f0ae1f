package dispatch

import (
	"regexp"
	"strings"
)

// Dutch mobile and landline shapes, with or without country prefix.
// Captures keep their original punctuation so the customer sees the number
// exactly as they typed it.
var phonePattern = regexp.MustCompile(`(?:\+31|0031|0)[\s-]?[1-9][\s-]?(?:[0-9][\s-]?){7,8}`)

// Name introductions in both languages. The capture stops at sentence
// punctuation so trailing problem descriptions never leak into the name.
// The introduction phrase matches case-insensitively; the captured name
// itself must be capitalized so trailing sentence words are not swallowed.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:\bmijn naam is)\s+([A-ZÀ-Ž][\p{L}'-]+(?:\s+(?:van|de|der|den|het|ten|ter)\b)*(?:\s+[A-ZÀ-Ž][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bik ben)\s+([A-ZÀ-Ž][\p{L}'-]+(?:\s+(?:van|de|der|den|het|ten|ter)\b)*(?:\s+[A-ZÀ-Ž][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bik heet)\s+([A-ZÀ-Ž][\p{L}'-]+(?:\s+(?:van|de|der|den|het|ten|ter)\b)*(?:\s+[A-ZÀ-Ž][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bmy name is)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bthis is)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bi am)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`),
	regexp.MustCompile(`(?i:\bi'm)\s+([A-Z][\p{L}'-]+(?:\s+[A-Z][\p{L}'-]+)*)`),
}

// Words that follow "ik ben"/"i am" without being a name.
var nameDenylist = map[string]struct{}{
	"thuis": {}, "niet": {}, "wel": {}, "bang": {}, "bezorgd": {}, "klant": {},
	"home": {}, "not": {}, "so": {}, "very": {}, "worried": {}, "afraid": {},
	"available": {}, "beschikbaar": {}, "morgen": {}, "vandaag": {},
	"tomorrow": {}, "today": {}, "here": {}, "hier": {}, "calling": {},
}

var dutchCities = []string{
	"amsterdam", "rotterdam", "den haag", "utrecht", "eindhoven", "groningen",
	"tilburg", "almere", "breda", "nijmegen", "haarlem", "arnhem", "zaandam",
	"amersfoort", "apeldoorn", "enschede", "zwolle", "leiden", "maastricht",
	"dordrecht", "delft", "gouda", "alkmaar", "hilversum", "leeuwarden",
}

// Dutch postal code: four digits, optional space, two letters.
var postcodePattern = regexp.MustCompile(`\b[1-9][0-9]{3}\s?[A-Z]{2}\b`)

// Street-plus-number addresses introduced by a location phrase.
var addressPattern = regexp.MustCompile(`(?i)\b(?:ik woon (?:op|aan|in) de?|adres is|address is|i live (?:at|on))\s+([\p{L} .'-]+\s\d+[a-zA-Z]?)`)

// ExtractEntities scans one customer message for a name, phone number and
// location. Extraction is best effort: a missing field stays empty and is
// never an error.
func ExtractEntities(message string) Entities {
	var out Entities

	if match := phonePattern.FindString(message); match != "" {
		out.Phone = strings.TrimSpace(match)
	}

	for _, pattern := range namePatterns {
		groups := pattern.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		candidate := strings.TrimSpace(groups[1])
		first := strings.ToLower(strings.Fields(candidate)[0])
		if _, denied := nameDenylist[first]; denied {
			continue
		}
		out.Name = candidate
		break
	}

	out.Location = extractLocation(message)
	return out
}

func extractLocation(message string) string {
	if groups := addressPattern.FindStringSubmatch(message); groups != nil {
		return strings.TrimSpace(groups[1])
	}
	if match := postcodePattern.FindString(message); match != "" {
		return match
	}
	lowered := strings.ToLower(message)
	for _, city := range dutchCities {
		idx := strings.Index(lowered, city)
		if idx < 0 {
			continue
		}
		// Word boundary check so "delft" does not match inside another word.
		if idx > 0 && isLetter(lowered[idx-1]) {
			continue
		}
		end := idx + len(city)
		if end < len(lowered) && isLetter(lowered[end]) {
			continue
		}
		return message[idx:end]
	}
	return ""
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
