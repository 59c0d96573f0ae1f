package dispatch

import (
	"fmt"
	"strings"
)

// hintMarker introduces the machine-readable trailer the model appends after
// its customer-facing reply. The assembler strips everything from the marker
// onward before the text reaches the customer.
const hintMarker = "###DISPATCH###"

const basePromptNL = `Je bent de digitale assistent van een loodgietersbedrijf. Je helpt klanten
met lekkages, verstoppingen, cv-ketels en installatiewerk. Wees kort,
vriendelijk en concreet. Geef nooit medisch of juridisch advies. Beloof
nooit een exacte prijs of een exact tijdstip; de planning bevestigt dat.
Bij een noodgeval: zeg dat er direct iemand gebeld wordt en vraag alleen
nog naar ontbrekende contactgegevens.`

const basePromptEN = `You are the digital assistant of a plumbing company. You help customers
with leaks, blockages, boilers and installation work. Be brief, friendly
and concrete. Never give medical or legal advice. Never promise an exact
price or an exact time slot; the office confirms those.
For an emergency: say someone will call right away and only ask for any
missing contact details.`

const hintInstruction = `After your reply, on a new line, output the marker %s followed by a single
JSON object on one line with exactly these keys:
{"urgency":"low|normal|high|emergency","category":"<service category or empty>","name":"<customer name or empty>","phone":"<phone or empty>","location":"<location or empty>","estimated_cost":<whole euros or 0>,"request_booking":<true|false>}
Set request_booking to true only when the customer should be scheduled now.
Nothing may follow the JSON object.`

// BuildSystemPrompt assembles the system prompt for one turn: base persona in
// the customer's language, what is already known so the model never asks for
// it again, and the structured trailer contract.
func BuildSystemPrompt(qc QueryContext) string {
	var b strings.Builder
	if qc.Language == LanguageEnglish {
		b.WriteString(basePromptEN)
	} else {
		b.WriteString(basePromptNL)
	}
	b.WriteString("\n\n")

	if qc.UrgencyHint >= TierHigh {
		fmt.Fprintf(&b, "Triage flagged this conversation as %s urgency.\n", qc.UrgencyHint)
	}
	if len(qc.Categories) > 0 && qc.Categories[0] != CategoryGeneral {
		fmt.Fprintf(&b, "Likely service category: %s.\n", strings.Join(qc.Categories, ", "))
	}
	if known := describeKnown(qc.Known); known != "" {
		fmt.Fprintf(&b, "Already known, do not ask again: %s.\n", known)
	}
	if missing := describeMissing(qc.Known); missing != "" {
		fmt.Fprintf(&b, "Still needed before booking: %s.\n", missing)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, hintInstruction, hintMarker)
	return b.String()
}

func describeKnown(k KnownFields) string {
	var parts []string
	if k.Name != "" {
		parts = append(parts, "name="+k.Name)
	}
	if k.Phone != "" {
		parts = append(parts, "phone="+k.Phone)
	}
	if k.Location != "" {
		parts = append(parts, "location="+k.Location)
	}
	if k.Category != "" {
		parts = append(parts, "category="+k.Category)
	}
	return strings.Join(parts, ", ")
}

func describeMissing(k KnownFields) string {
	var parts []string
	if k.Name == "" {
		parts = append(parts, "name")
	}
	if k.Phone == "" {
		parts = append(parts, "phone number")
	}
	if k.Location == "" {
		parts = append(parts, "address or city")
	}
	return strings.Join(parts, ", ")
}
