package dispatch

import "strings"

// urgencyRule maps a set of trigger phrases to a tier. Rules are evaluated
// in declaration order and the first match wins, so the most severe rules
// must come first.
type urgencyRule struct {
	tier     Tier
	triggers []string
}

var urgencyRules = []urgencyRule{
	{
		tier: TierEmergency,
		triggers: []string{
			// Dutch
			"noodgeval", "overstroming", "water overal", "onder water",
			"gesprongen leiding", "leiding gesprongen", "gaslucht", "gas ruik",
			"ik ruik gas", "spuit water", "spuitend water", "help!",
			// English
			"emergency", "flooding", "flooded", "burst pipe", "pipe burst",
			"water everywhere", "gushing", "smell gas", "gas leak",
			"sewage backup", "sewage backing up",
		},
	},
	{
		tier: TierHigh,
		triggers: []string{
			"geen warm water", "geen water", "cv doet het niet",
			"verwarming doet het niet", "ketel doet het niet", "ketel kapot",
			"wc verstopt", "wc is verstopt", "toilet verstopt", "toilet is verstopt",
			"riool verstopt", "stinkt naar riool",
			"lekt flink", "lekt hard", "zo snel mogelijk", "vandaag nog", "dringend",
			"no hot water", "no water", "boiler broken", "boiler is broken",
			"heating is out", "no heating", "toilet is blocked", "toilet blocked",
			"badly leaking", "leaking badly", "urgent", "as soon as possible", "asap",
			"drain is blocked", "blocked drain", "clogged drain", "drain clogged",
			"completely blocked",
		},
	},
	{
		tier: TierNormal,
		triggers: []string{
			"lek", "lekkage", "lekkende", "lekt", "druppelt", "druppelende",
			"verstopt", "verstopping", "loopt slecht door", "kapot", "maakt lawaai",
			"offerte", "wat kost", "prijsopgave", "onderhoud", "controle",
			"vervangen", "vervanging",
			"leak", "leaking", "dripping", "drip", "clogged", "blockage",
			"slow drain", "draining slowly", "broken", "not working", "noise",
			"running toilet", "doorlopend toilet", "blijft doorlopen",
			"quote", "estimate", "maintenance", "inspection", "replace",
			"replacement",
		},
	},
	{
		tier: TierLow,
		triggers: []string{
			"geen haast", "geen spoed", "wanneer het uitkomt",
			"wanneer het u uitkomt", "op termijn", "komende maanden",
			"komt niet zo nauw",
			"no rush", "no hurry", "whenever suits", "whenever it suits",
			"no urgency", "in the coming months", "sometime",
		},
	},
}

// ClassifyUrgency maps a raw customer message to an urgency tier using
// ordered keyword rules. Matching is case-insensitive substring matching.
// TierLow needs explicit no-rush phrasing; messages that match no rule
// default to TierNormal.
func ClassifyUrgency(message string) Tier {
	lowered := strings.ToLower(message)
	for _, rule := range urgencyRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lowered, trigger) {
				return rule.tier
			}
		}
	}
	return TierNormal
}
