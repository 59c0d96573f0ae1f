package dispatch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectBackendTruthTable(t *testing.T) {
	tiers := []Tier{TierLow, TierNormal, TierHigh, TierEmergency}

	expect := func(tier Tier, deep, sched bool) BackendChoice {
		if deep && tier != TierEmergency {
			return BackendDeep
		}
		if tier == TierEmergency || tier == TierHigh {
			return BackendFast
		}
		if sched {
			return BackendDeep
		}
		return BackendFast
	}

	for _, tier := range tiers {
		for _, deep := range []bool{false, true} {
			for _, sched := range []bool{false, true} {
				name := fmt.Sprintf("%s_deep=%t_sched=%t", tier, deep, sched)
				t.Run(name, func(t *testing.T) {
					got := SelectBackend(QueryContext{
						UrgencyHint:        tier,
						NeedsDeepReasoning: deep,
						NeedsScheduling:    sched,
					})
					assert.Equal(t, expect(tier, deep, sched), got.Backend)
					assert.NotEmpty(t, got.Reason)
				})
			}
		}
	}
}

func TestSelectBackendHighUrgencyReasoningGoesDeep(t *testing.T) {
	// A reasoning ask outranks high urgency; only an emergency pins the
	// fast backend.
	got := SelectBackend(QueryContext{UrgencyHint: TierHigh, NeedsDeepReasoning: true})
	assert.Equal(t, BackendDeep, got.Backend)
	assert.Equal(t, "deep_reasoning", got.Reason)

	got = SelectBackend(QueryContext{UrgencyHint: TierEmergency, NeedsDeepReasoning: true})
	assert.Equal(t, BackendFast, got.Backend)
	assert.Equal(t, "emergency", got.Reason)
}

func TestSelectBackendDeterministic(t *testing.T) {
	qc := QueryContext{UrgencyHint: TierNormal, NeedsScheduling: true}
	first := SelectBackend(qc)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SelectBackend(qc))
	}
}

func TestNeedsDeepReasoning(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"waarom blijft mijn ketel uitvallen?", true},
		{"what is the difference between these boilers?", true},
		{"should i replace the whole pipe?", true},
		{"kunt u advies geven over een nieuwe ketel", true},
		{"de kraan lekt", false},
		{"help, water overal", false},
		{strings.Repeat("er is iets mis met de afvoer en ", 10), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NeedsDeepReasoning(tc.message), tc.message)
	}
}

func TestNeedsScheduling(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"kan ik een afspraak maken voor volgende week?", true},
		{"can someone come by tomorrow?", true},
		{"wanneer kunnen jullie langskomen?", true},
		{"de wc is verstopt", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NeedsScheduling(tc.message), tc.message)
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguageDutch, DetectLanguage("mijn kraan lekt en ik wil graag een afspraak"))
	assert.Equal(t, LanguageEnglish, DetectLanguage("the faucet in my kitchen is leaking and I need help"))
	// Ambiguous input defaults to Dutch.
	assert.Equal(t, LanguageDutch, DetectLanguage("06-12345678"))
}

func TestProfileForTier(t *testing.T) {
	urgent := ProfileForTier(TierEmergency)
	assert.Equal(t, urgent, ProfileForTier(TierHigh))
	calm := ProfileForTier(TierNormal)
	assert.Equal(t, calm, ProfileForTier(TierLow))

	assert.Less(t, urgent.MaxTokens, calm.MaxTokens)
	assert.Less(t, urgent.Temperature, calm.Temperature)
}
