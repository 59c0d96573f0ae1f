package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierLow < TierNormal)
	assert.True(t, TierNormal < TierHigh)
	assert.True(t, TierHigh < TierEmergency)
	assert.Equal(t, TierEmergency, MaxTier(TierNormal, TierEmergency))
	assert.Equal(t, TierHigh, MaxTier(TierHigh, TierLow))
}

func TestTierJSONRoundTrip(t *testing.T) {
	payload, err := json.Marshal(TierEmergency)
	require.NoError(t, err)
	assert.Equal(t, `"emergency"`, string(payload))

	var tier Tier
	require.NoError(t, json.Unmarshal([]byte(`"high"`), &tier))
	assert.Equal(t, TierHigh, tier)
}

func TestParseTierUnknownFallsBackToNormal(t *testing.T) {
	tier, ok := ParseTier("catastrophic")
	assert.False(t, ok)
	assert.Equal(t, TierNormal, tier)
}

func TestKnownFieldsMergeIsAppendOnly(t *testing.T) {
	var known KnownFields

	known = known.Merge(Entities{Name: "Jan Bakker", Phone: "06-12345678"}, CategoryLeakRepair)
	assert.Equal(t, "Jan Bakker", known.Name)
	assert.Equal(t, "06-12345678", known.Phone)
	assert.Equal(t, CategoryLeakRepair, known.Category)

	// A later turn can never overwrite what is already known.
	known = known.Merge(Entities{Name: "Piet", Phone: "06-99999999", Location: "Utrecht"}, CategoryDrainUnclog)
	assert.Equal(t, "Jan Bakker", known.Name)
	assert.Equal(t, "06-12345678", known.Phone)
	assert.Equal(t, CategoryLeakRepair, known.Category)
	assert.Equal(t, "Utrecht", known.Location, "empty fields still fill in")
}

func TestKnownFieldsMergeIgnoresGeneralCategory(t *testing.T) {
	var known KnownFields
	known = known.Merge(Entities{}, CategoryGeneral)
	assert.Empty(t, known.Category)

	known = known.Merge(Entities{}, CategoryToiletRepair)
	assert.Equal(t, CategoryToiletRepair, known.Category)
}

func TestConversationMaxTierSeen(t *testing.T) {
	conv := &Conversation{Turns: []TurnResult{
		{UrgencyTier: TierLow},
		{UrgencyTier: TierHigh},
		{UrgencyTier: TierNormal},
	}}
	assert.Equal(t, TierHigh, conv.MaxTierSeen())
}
