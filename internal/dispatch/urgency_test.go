package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUrgency(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Tier
	}{
		{"flooded kitchen dutch", "water overal in de keuken, help!", TierEmergency},
		{"burst pipe english", "A pipe burst in the bathroom", TierEmergency},
		{"gas smell", "ik ruik gas in de kelder", TierEmergency},
		{"no hot water", "we hebben geen warm water sinds gisteren", TierHigh},
		{"blocked toilet english", "the toilet is blocked and won't flush", TierHigh},
		{"urgent marker", "kunt u vandaag nog komen, het is dringend", TierHigh},
		{"dripping faucet", "mijn kraan druppelt al een week", TierNormal},
		{"slow drain", "the sink is draining slowly", TierNormal},
		{"leaking faucet dutch", "ik heb een lekkende kraan", TierNormal},
		{"quote request", "wat kost een jaarlijkse controle ongeveer?", TierNormal},
		{"maintenance request", "ik wil graag onderhoud aan de cv laten doen", TierNormal},
		{"empty message", "", TierNormal},
		{"greeting", "goedemiddag, ik heb een vraag", TierNormal},
		{"no rush dutch", "geen haast hoor, volgende maand kan ook", TierLow},
		{"no rush english", "could someone look at it sometime, no rush at all", TierLow},
		{"at convenience", "komt u maar langs wanneer het uitkomt", TierLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyUrgency(tc.message))
		})
	}
}

func TestClassifyUrgencyMostSevereRuleWins(t *testing.T) {
	// A message matching both emergency and normal triggers takes the
	// emergency rule because rules are ordered by severity.
	got := ClassifyUrgency("de leiding is gesprongen en de kraan lekt")
	assert.Equal(t, TierEmergency, got)
}

func TestClassifyUrgencyCaseInsensitive(t *testing.T) {
	assert.Equal(t, TierEmergency, ClassifyUrgency("WATER OVERAL!"))
	assert.Equal(t, TierHigh, ClassifyUrgency("No Hot Water since monday"))
}
