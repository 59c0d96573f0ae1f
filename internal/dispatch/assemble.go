package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StructuredHint is the machine-readable trailer a backend appends after its
// customer-facing reply. All fields are optional; local analysis fills gaps.
type StructuredHint struct {
	Urgency        string `json:"urgency"`
	Category       string `json:"category"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Location       string `json:"location"`
	EstimatedCost  int    `json:"estimated_cost"`
	RequestBooking bool   `json:"request_booking"`
}

// SplitHint separates the customer-facing reply from the structured trailer.
// A missing or unparseable trailer is not an error: the reply is still
// usable, the turn is just assembled from local analysis alone.
func SplitHint(raw string) (reply string, hint *StructuredHint) {
	idx := strings.Index(raw, hintMarker)
	if idx < 0 {
		return strings.TrimSpace(raw), nil
	}
	reply = strings.TrimSpace(raw[:idx])
	trailer := strings.TrimSpace(raw[idx+len(hintMarker):])

	start := strings.Index(trailer, "{")
	end := strings.LastIndex(trailer, "}")
	if start < 0 || end <= start {
		return reply, nil
	}
	var parsed StructuredHint
	if err := json.Unmarshal([]byte(trailer[start:end+1]), &parsed); err != nil {
		return reply, nil
	}
	return reply, &parsed
}

// AssembleInput bundles everything the assembler merges for one turn.
type AssembleInput struct {
	Message    string
	ReplyText  string
	Hint       *StructuredHint
	LocalTier  Tier
	Categories []string
	Extracted  Entities
	Backend    BackendChoice
	Degraded   bool
}

// Assemble merges backend output with local analysis into the persisted turn.
// The rules are fixed:
//   - urgency is the max of the backend's tier and the local classifier,
//     so a backend can escalate but never downgrade;
//   - backend-supplied entity fields win over regex captures, with the local
//     capture as fallback;
//   - the cost estimate prefers the backend figure when present;
//   - booking triggers when the backend asks for it or the turn is an
//     emergency.
func Assemble(in AssembleInput) TurnResult {
	turn := TurnResult{
		CustomerMessage: in.Message,
		Text:            in.ReplyText,
		UrgencyTier:     in.LocalTier,
		Categories:      in.Categories,
		Extracted:       in.Extracted,
		BackendUsed:     in.Backend,
		Degraded:        in.Degraded,
		Timestamp:       time.Now().UTC(),
	}
	if len(turn.Categories) == 0 {
		turn.Categories = []string{CategoryGeneral}
	}

	if in.Hint != nil {
		if backendTier, ok := ParseTier(in.Hint.Urgency); ok {
			turn.UrgencyTier = MaxTier(in.LocalTier, backendTier)
		}
		if in.Hint.Name != "" {
			turn.Extracted.Name = in.Hint.Name
		}
		if in.Hint.Phone != "" {
			turn.Extracted.Phone = in.Hint.Phone
		}
		if in.Hint.Location != "" {
			turn.Extracted.Location = in.Hint.Location
		}
		if in.Hint.Category != "" && !containsString(turn.Categories, in.Hint.Category) {
			if _, known := categoryBasePrices[in.Hint.Category]; known {
				turn.Categories = append(turn.Categories, in.Hint.Category)
			}
		}
		turn.TriggerBooking = in.Hint.RequestBooking
	}

	if in.Hint != nil && in.Hint.EstimatedCost > 0 {
		turn.EstimatedCost = in.Hint.EstimatedCost
	} else {
		turn.EstimatedCost = EstimateCost(turn.Categories, turn.UrgencyTier)
	}

	if turn.UrgencyTier == TierEmergency {
		turn.TriggerBooking = true
	}
	return turn
}

// FallbackTurn builds a turn entirely from local analysis, used when every
// backend failed. The reply is a fixed safe message; it never speculates
// about the problem.
func FallbackTurn(message, emergencyContact string) TurnResult {
	tier := ClassifyUrgency(message)
	categories := DetectCategories(message)
	lang := DetectLanguage(message)

	var text string
	if lang == LanguageEnglish {
		text = "Sorry, I cannot answer you automatically right now. " +
			"A colleague will pick up your message as soon as possible."
		if tier == TierEmergency {
			text = fmt.Sprintf("This looks urgent. Please call us directly at %s, we are available 24/7.", emergencyContact)
		}
	} else {
		text = "Sorry, ik kan u op dit moment niet automatisch helpen. " +
			"Een collega pakt uw bericht zo snel mogelijk op."
		if tier == TierEmergency {
			text = fmt.Sprintf("Dit lijkt spoed. Bel ons direct op %s, wij zijn 24/7 bereikbaar.", emergencyContact)
		}
	}

	return TurnResult{
		CustomerMessage: message,
		Text:            text,
		UrgencyTier:     tier,
		Categories:      categories,
		EstimatedCost:   EstimateCost(categories, tier),
		Extracted:       ExtractEntities(message),
		TriggerBooking:  tier == TierEmergency,
		BackendUsed:     "",
		Degraded:        true,
		Timestamp:       time.Now().UTC(),
	}
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
