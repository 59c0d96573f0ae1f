package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptLanguage(t *testing.T) {
	nl := BuildSystemPrompt(QueryContext{Language: LanguageDutch})
	assert.Contains(t, nl, "loodgietersbedrijf")

	en := BuildSystemPrompt(QueryContext{Language: LanguageEnglish})
	assert.Contains(t, en, "plumbing company")
}

func TestBuildSystemPromptIncludesTriageAndKnownFields(t *testing.T) {
	prompt := BuildSystemPrompt(QueryContext{
		Language:    LanguageDutch,
		UrgencyHint: TierEmergency,
		Categories:  []string{CategoryPipeBurst},
		Known:       KnownFields{Name: "Jan Bakker", Phone: "06-12345678"},
	})

	assert.Contains(t, prompt, "emergency urgency")
	assert.Contains(t, prompt, CategoryPipeBurst)
	assert.Contains(t, prompt, "name=Jan Bakker")
	assert.Contains(t, prompt, "phone=06-12345678")
	assert.Contains(t, prompt, "Still needed before booking: address or city")
	assert.Contains(t, prompt, hintMarker)
}

func TestBuildSystemPromptOmitsLowSignalSections(t *testing.T) {
	prompt := BuildSystemPrompt(QueryContext{
		Language:   LanguageDutch,
		Categories: []string{CategoryGeneral},
	})

	assert.NotContains(t, prompt, "Triage flagged")
	assert.NotContains(t, prompt, "Likely service category")
	assert.NotContains(t, prompt, "Already known")
}
