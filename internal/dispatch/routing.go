package dispatch

import "strings"

// RoutingDecision explains one backend selection; Reason feeds logs and
// metrics, never customer output.
type RoutingDecision struct {
	Backend BackendChoice
	Reason  string
}

// SelectBackend picks the model backend for a turn. The policy is a fixed
// truth table over three signals and must stay deterministic: the same
// QueryContext always routes the same way.
//
// A request for explanation or comparison takes the deep backend unless
// the turn is an emergency: only there does latency beat eloquence. High
// urgency without a reasoning ask stays on the fast backend, scheduling
// included.
func SelectBackend(qc QueryContext) RoutingDecision {
	switch {
	case qc.NeedsDeepReasoning && qc.UrgencyHint != TierEmergency:
		return RoutingDecision{Backend: BackendDeep, Reason: "deep_reasoning"}
	case qc.UrgencyHint == TierEmergency:
		return RoutingDecision{Backend: BackendFast, Reason: "emergency"}
	case qc.UrgencyHint == TierHigh:
		return RoutingDecision{Backend: BackendFast, Reason: "high_urgency"}
	case qc.NeedsScheduling:
		return RoutingDecision{Backend: BackendDeep, Reason: "scheduling"}
	default:
		return RoutingDecision{Backend: BackendFast, Reason: "default"}
	}
}

// BackendProfile sets the generation parameters for one turn. Urgent turns
// get a tight, low-temperature profile; calm turns may ramble a little.
type BackendProfile struct {
	MaxTokens   int
	Temperature float32
}

// ProfileForTier returns the generation profile for a turn's urgency.
func ProfileForTier(tier Tier) BackendProfile {
	if tier >= TierHigh {
		return BackendProfile{MaxTokens: 512, Temperature: 0.2}
	}
	return BackendProfile{MaxTokens: 1024, Temperature: 0.6}
}

// Interrogative and advisory markers that signal the customer wants an
// explanation or comparison rather than a quick dispatch.
var deepReasoningMarkers = []string{
	"waarom", "hoe kan", "hoe komt", "wat is het verschil", "leg uit",
	"advies", "adviseer", "vergelijk", "wat raden jullie", "is het beter",
	"why", "how can", "how come", "what is the difference", "explain",
	"advice", "advise", "compare", "recommend", "should i", "is it better",
	"worth it", "pros and cons", "voor- en nadelen",
}

const deepReasoningLengthThreshold = 240

// NeedsDeepReasoning reports whether a message asks for explanation or
// comparison. Long messages count too: customers who write paragraphs expect
// a considered answer.
func NeedsDeepReasoning(message string) bool {
	if len(message) > deepReasoningLengthThreshold {
		return true
	}
	lowered := strings.ToLower(message)
	for _, marker := range deepReasoningMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

var schedulingMarkers = []string{
	"afspraak", "inplannen", "plannen", "beschikbaar", "langskomen",
	"wanneer kunnen", "morgen", "volgende week", "deze week", "agenda",
	"appointment", "schedule", "available", "availability", "book a",
	"come by", "come over", "tomorrow", "next week", "this week",
	"what time", "hoe laat",
}

// NeedsScheduling reports whether a message is about picking a date or time.
func NeedsScheduling(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range schedulingMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// Dutch function words that rarely appear in English text. Detection is a
// simple vote; ties go to Dutch because that is the customer base.
var dutchMarkers = []string{
	" de ", " het ", " een ", " en ", " ik ", " mijn ", " niet ", " is er ",
	" bij ", " voor ", " naar ", " kunnen ", "afspraak", "lekkage", "verstopt",
	"kraan", "keuken", "badkamer", "help", "graag", "bedankt",
}

var englishMarkers = []string{
	" the ", " and ", " my ", " is ", " a ", " to ", " for ", " can ",
	" please ", " thanks ", "appointment", "kitchen", "bathroom", "leaking",
	"broken", "i have", "i need", "there is",
}

// DetectLanguage guesses the customer's language from one message.
func DetectLanguage(message string) Language {
	lowered := " " + strings.ToLower(message) + " "
	var nl, en int
	for _, marker := range dutchMarkers {
		if strings.Contains(lowered, marker) {
			nl++
		}
	}
	for _, marker := range englishMarkers {
		if strings.Contains(lowered, marker) {
			en++
		}
	}
	if en > nl {
		return LanguageEnglish
	}
	return LanguageDutch
}
