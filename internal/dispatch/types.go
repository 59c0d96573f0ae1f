package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tier is the discrete urgency classification of a customer message.
// Tiers are ordered: comparisons with > and < follow severity.
type Tier int

const (
	TierLow Tier = iota
	TierNormal
	TierHigh
	TierEmergency
)

var tierNames = map[Tier]string{
	TierLow:       "low",
	TierNormal:    "normal",
	TierHigh:      "high",
	TierEmergency: "emergency",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "normal"
}

// ParseTier maps a tier name to its Tier. Unknown names fall back to
// TierNormal so untrusted backend output can never produce an invalid tier.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TierLow, true
	case "normal":
		return TierNormal, true
	case "high":
		return TierHigh, true
	case "emergency", "urgent":
		return TierEmergency, true
	default:
		return TierNormal, false
	}
}

// MaxTier returns the more severe of two tiers.
func MaxTier(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("dispatch: tier must be a string: %w", err)
	}
	parsed, _ := ParseTier(name)
	*t = parsed
	return nil
}

// Language identifies the customer's language for prompt selection.
type Language string

const (
	LanguageDutch   Language = "nl"
	LanguageEnglish Language = "en"
)

// BackendChoice identifies which model backend answers a turn.
type BackendChoice string

const (
	BackendFast BackendChoice = "fast"
	BackendDeep BackendChoice = "deep"
)

// Entities holds customer facts pulled out of a single message. Empty string
// means the field was not found; extraction never yields empty captures.
type Entities struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// IsZero reports whether no field was extracted.
func (e Entities) IsZero() bool {
	return e.Name == "" && e.Phone == "" && e.Location == ""
}

// KnownFields is the rolling, append-only set of customer facts accumulated
// across a conversation's turns. Merge never clears a value that is already
// set: first value wins, forever.
type KnownFields struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Category string `json:"category,omitempty"`
}

// Merge folds newly extracted entities and a category into the known fields.
// The merge is idempotent and append-only.
func (k KnownFields) Merge(e Entities, category string) KnownFields {
	if k.Name == "" && e.Name != "" {
		k.Name = e.Name
	}
	if k.Phone == "" && e.Phone != "" {
		k.Phone = e.Phone
	}
	if k.Location == "" && e.Location != "" {
		k.Location = e.Location
	}
	if k.Category == "" && category != "" && category != CategoryGeneral {
		k.Category = category
	}
	return k
}

// QueryContext is the ephemeral per-message input to the routing policy and
// backend invocation.
type QueryContext struct {
	ConversationID     string
	OrgID              string
	Message            string
	TurnIndex          int // 1-based
	History            []ChatMessage
	UrgencyHint        Tier
	// ConversationTier is the most severe tier seen so far in the
	// conversation, the current turn included. Response sizing follows
	// it rather than the per-turn hint so an escalated conversation
	// keeps its terse profile.
	ConversationTier   Tier
	Language           Language
	NeedsDeepReasoning bool
	NeedsScheduling    bool
	Categories         []string
	Extracted          Entities
	Known              KnownFields
}

// TurnResult is the persisted outcome of one processed message.
type TurnResult struct {
	CustomerMessage string        `json:"customer_message"`
	Text            string        `json:"text"`
	UrgencyTier     Tier          `json:"urgency_tier"`
	Categories      []string      `json:"categories"`
	EstimatedCost   int           `json:"estimated_cost"`
	Extracted       Entities      `json:"extracted,omitempty"`
	TriggerBooking  bool          `json:"trigger_booking"`
	BackendUsed     BackendChoice `json:"backend_used"`
	Degraded        bool          `json:"degraded,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Conversation is the engine's view of one customer thread. It is owned by
// the conversation store; the engine only ever appends turns to it.
type Conversation struct {
	ID          string       `json:"id"`
	OrgID       string       `json:"org_id"`
	Turns       []TurnResult `json:"turns"`
	KnownFields KnownFields  `json:"known_fields"`
	TotalTurns  int          `json:"total_turns"`

	// Version guards against interleaved writes to the same conversation.
	// Update persists only when the stored version still matches.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxTierSeen returns the most severe tier observed across the conversation.
func (c *Conversation) MaxTierSeen() Tier {
	max := TierLow
	for _, turn := range c.Turns {
		if turn.UrgencyTier > max {
			max = turn.UrgencyTier
		}
	}
	return max
}
