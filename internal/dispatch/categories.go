package dispatch

import "strings"

// Service categories. CategoryGeneral is the fallback when nothing matches;
// detection never returns an empty list.
const (
	CategoryLeakRepair    = "leak_repair"
	CategoryDrainUnclog   = "drain_unclog"
	CategoryBoilerService = "boiler_service"
	CategoryToiletRepair  = "toilet_repair"
	CategoryFaucetInstall = "faucet_install"
	CategoryPipeBurst     = "pipe_burst"
	CategoryWaterHeater   = "water_heater"
	CategoryGeneral       = "general"
)

type categoryRule struct {
	category string
	triggers []string
}

// Ordered by specificity: pipe_burst before leak_repair so a burst pipe is
// never downgraded to a plain leak, and leak_repair before faucet_install
// so a leaking faucet is a leak first.
var categoryRules = []categoryRule{
	{CategoryPipeBurst, []string{
		"gesprongen leiding", "leiding gesprongen", "gebarsten leiding",
		"burst pipe", "pipe burst", "pipe has burst", "spuit water", "water everywhere",
		"water overal",
	}},
	{CategoryWaterHeater, []string{
		"boiler", "warmwater", "warm water", "geiser", "water heater", "hot water",
	}},
	{CategoryBoilerService, []string{
		"cv-ketel", "cv ketel", "ketel", "verwarming", "radiator", "onderhoudsbeurt",
		"heating", "central heating", "annual service", "jaarlijkse service",
	}},
	{CategoryToiletRepair, []string{
		"wc", "toilet", "doorspoelen", "stortbak", "flush", "cistern",
	}},
	{CategoryDrainUnclog, []string{
		"afvoer", "verstopt", "verstopping", "riool", "gootsteen loopt", "ontstoppen",
		"drain", "clogged", "blocked", "blockage", "unclog", "sewer",
	}},
	{CategoryLeakRepair, []string{
		"lek", "lekkage", "lekkende", "lekt", "druppelt", "vochtplek",
		"leak", "leaking", "dripping", "damp spot", "water damage", "waterschade",
	}},
	{CategoryFaucetInstall, []string{
		"kraan", "mengkraan", "kraan vervangen", "faucet", "tap", "mixer tap",
	}},
}

// DetectCategories maps a message to its service categories, most specific
// first. Unrecognized messages get the general category so downstream cost
// estimation always has a baseline.
func DetectCategories(message string) []string {
	lowered := strings.ToLower(message)
	var out []string
	seen := make(map[string]struct{})
	for _, rule := range categoryRules {
		for _, trigger := range rule.triggers {
			if !strings.Contains(lowered, trigger) {
				continue
			}
			if _, dup := seen[rule.category]; !dup {
				seen[rule.category] = struct{}{}
				out = append(out, rule.category)
			}
			break
		}
	}
	if len(out) == 0 {
		out = []string{CategoryGeneral}
	}
	return out
}
