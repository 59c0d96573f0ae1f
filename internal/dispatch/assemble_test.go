package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHint(t *testing.T) {
	raw := "Ik stuur direct iemand naar u toe.\n" + hintMarker +
		` {"urgency":"emergency","category":"pipe_burst","request_booking":true,"estimated_cost":234}`

	reply, hint := SplitHint(raw)
	assert.Equal(t, "Ik stuur direct iemand naar u toe.", reply)
	require.NotNil(t, hint)
	assert.Equal(t, "emergency", hint.Urgency)
	assert.Equal(t, CategoryPipeBurst, hint.Category)
	assert.True(t, hint.RequestBooking)
	assert.Equal(t, 234, hint.EstimatedCost)
}

func TestSplitHintMissingTrailer(t *testing.T) {
	reply, hint := SplitHint("Gewoon een antwoord zonder trailer.")
	assert.Equal(t, "Gewoon een antwoord zonder trailer.", reply)
	assert.Nil(t, hint)
}

func TestSplitHintMalformedTrailerKeepsReply(t *testing.T) {
	reply, hint := SplitHint("Het antwoord.\n" + hintMarker + " {not valid json")
	assert.Equal(t, "Het antwoord.", reply)
	assert.Nil(t, hint)
}

func TestAssembleBackendCanEscalateNeverDowngrade(t *testing.T) {
	base := AssembleInput{
		Message:    "de kraan lekt",
		ReplyText:  "reply",
		Categories: []string{CategoryLeakRepair},
		Backend:    BackendFast,
	}

	// Backend escalates above local classification.
	in := base
	in.LocalTier = TierNormal
	in.Hint = &StructuredHint{Urgency: "high"}
	assert.Equal(t, TierHigh, Assemble(in).UrgencyTier)

	// Backend may not downgrade below local classification.
	in = base
	in.LocalTier = TierEmergency
	in.Hint = &StructuredHint{Urgency: "low"}
	assert.Equal(t, TierEmergency, Assemble(in).UrgencyTier)
}

func TestAssembleBackendFieldsWinWithLocalFallback(t *testing.T) {
	in := AssembleInput{
		Message:    "bericht",
		ReplyText:  "reply",
		LocalTier:  TierNormal,
		Categories: []string{CategoryLeakRepair},
		Extracted:  Entities{Name: "Jan Bakker", Phone: "06-12345678"},
		Hint:       &StructuredHint{Name: "J. Bakker", Location: "Utrecht"},
		Backend:    BackendFast,
	}

	turn := Assemble(in)
	assert.Equal(t, "J. Bakker", turn.Extracted.Name, "backend name wins")
	assert.Equal(t, "06-12345678", turn.Extracted.Phone, "local phone survives")
	assert.Equal(t, "Utrecht", turn.Extracted.Location, "backend fills gaps")
}

func TestAssembleCostPrefersBackendFigure(t *testing.T) {
	in := AssembleInput{
		Message:    "bericht",
		ReplyText:  "reply",
		LocalTier:  TierNormal,
		Categories: []string{CategoryLeakRepair},
		Hint:       &StructuredHint{EstimatedCost: 150},
		Backend:    BackendFast,
	}
	assert.Equal(t, 150, Assemble(in).EstimatedCost)

	in.Hint = nil
	assert.Equal(t, 95, Assemble(in).EstimatedCost)
}

func TestAssembleEmergencyAlwaysTriggersBooking(t *testing.T) {
	in := AssembleInput{
		Message:    "water overal!",
		ReplyText:  "reply",
		LocalTier:  TierEmergency,
		Categories: []string{CategoryPipeBurst},
		Hint:       &StructuredHint{RequestBooking: false},
		Backend:    BackendFast,
	}
	assert.True(t, Assemble(in).TriggerBooking)
}

func TestAssembleBookingFollowsBackendRequest(t *testing.T) {
	in := AssembleInput{
		Message:    "plan maar in",
		ReplyText:  "reply",
		LocalTier:  TierNormal,
		Categories: []string{CategoryGeneral},
		Hint:       &StructuredHint{RequestBooking: true},
		Backend:    BackendDeep,
	}
	assert.True(t, Assemble(in).TriggerBooking)

	in.Hint.RequestBooking = false
	assert.False(t, Assemble(in).TriggerBooking)
}

func TestFallbackTurn(t *testing.T) {
	turn := FallbackTurn("mijn kraan lekt een beetje", "088-1234567")

	assert.True(t, turn.Degraded)
	assert.Equal(t, TierNormal, turn.UrgencyTier)
	assert.False(t, turn.TriggerBooking)
	assert.NotEmpty(t, turn.Text)
	assert.NotContains(t, turn.Text, "kraan", "fallback text never speculates about the problem")
	assert.NotEmpty(t, turn.Categories)
	assert.Positive(t, turn.EstimatedCost)
}

func TestFallbackTurnEmergencyQuotesPhoneNumber(t *testing.T) {
	turn := FallbackTurn("help, water overal in de keuken!", "088-1234567")

	assert.Equal(t, TierEmergency, turn.UrgencyTier)
	assert.True(t, turn.TriggerBooking)
	assert.Contains(t, turn.Text, "088-1234567")
}
