// Package booking turns qualified conversations into work for the office.
// The only adapter today is manual handoff: the office gets an email with
// everything the conversation collected and calls the customer back.
package booking

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/loodlijn/dispatch/internal/dispatch"
	"github.com/loodlijn/dispatch/internal/notify"
	"github.com/loodlijn/dispatch/pkg/logging"
)

// JobLead is the summary handed to the office when a conversation triggers
// booking.
type JobLead struct {
	OrgID          string
	ConversationID string
	CustomerName   string
	CustomerPhone  string
	Location       string
	Category       string
	UrgencyTier    dispatch.Tier
	EstimatedCost  int
	LastMessage    string
	CollectedAt    time.Time
}

// ManualHandoffConfig holds the office-side notification target.
type ManualHandoffConfig struct {
	HandoffEmail string
}

// ManualHandoff implements dispatch.BookingTrigger by emailing the office a
// lead summary. Emergencies get a marked subject so they stand out in the
// inbox.
type ManualHandoff struct {
	sender notify.EmailSender
	config ManualHandoffConfig
	logger *logging.Logger
}

var _ dispatch.BookingTrigger = (*ManualHandoff)(nil)

func NewManualHandoff(sender notify.EmailSender, cfg ManualHandoffConfig, logger *logging.Logger) *ManualHandoff {
	if logger == nil {
		logger = logging.Default()
	}
	return &ManualHandoff{sender: sender, config: cfg, logger: logger}
}

func (m *ManualHandoff) TriggerBooking(ctx context.Context, orgID string, conv *dispatch.Conversation, turn dispatch.TurnResult) error {
	lead := JobLead{
		OrgID:          orgID,
		ConversationID: conv.ID,
		CustomerName:   conv.KnownFields.Name,
		CustomerPhone:  conv.KnownFields.Phone,
		Location:       conv.KnownFields.Location,
		Category:       conv.KnownFields.Category,
		UrgencyTier:    turn.UrgencyTier,
		EstimatedCost:  turn.EstimatedCost,
		LastMessage:    turn.CustomerMessage,
		CollectedAt:    time.Now().UTC(),
	}

	if m.config.HandoffEmail == "" || m.sender == nil {
		m.logger.Warn("booking handoff has no email target configured",
			slog.String("org_id", orgID),
			slog.String("conversation_id", conv.ID),
		)
		return nil
	}

	subject := fmt.Sprintf("Nieuwe klus: %s (%s)", valueOrNA(lead.CustomerName), valueOrNA(lead.Category))
	if lead.UrgencyTier == dispatch.TierEmergency {
		subject = "SPOED: " + subject
	}

	if err := m.sender.SendEmail(ctx, m.config.HandoffEmail, subject, FormatLeadHTML(lead)); err != nil {
		return fmt.Errorf("booking: handoff email failed: %w", err)
	}

	m.logger.Info("booking handoff sent",
		slog.String("org_id", orgID),
		slog.String("conversation_id", conv.ID),
		slog.String("tier", lead.UrgencyTier.String()),
	)
	return nil
}

// FormatLead renders the plain-text lead summary.
func FormatLead(lead JobLead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Klant: %s\n", valueOrNA(lead.CustomerName))
	fmt.Fprintf(&b, "Telefoon: %s\n", valueOrNA(lead.CustomerPhone))
	fmt.Fprintf(&b, "Locatie: %s\n", valueOrNA(lead.Location))
	fmt.Fprintf(&b, "Categorie: %s\n", valueOrNA(lead.Category))
	fmt.Fprintf(&b, "Urgentie: %s\n", lead.UrgencyTier)
	if lead.EstimatedCost > 0 {
		fmt.Fprintf(&b, "Indicatie: € %d\n", lead.EstimatedCost)
	}
	if lead.LastMessage != "" {
		fmt.Fprintf(&b, "Laatste bericht: %s\n", lead.LastMessage)
	}
	fmt.Fprintf(&b, "Verzameld: %s\n", lead.CollectedAt.Format(time.RFC1123))
	return b.String()
}

// FormatLeadHTML renders the lead summary for email.
func FormatLeadHTML(lead JobLead) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">%s</td><td style="padding:6px 12px;">%s</td></tr>`,
			label, html.EscapeString(value))
	}

	var rows strings.Builder
	rows.WriteString(row("Klant", valueOrNA(lead.CustomerName)))
	rows.WriteString(fmt.Sprintf(`<tr><td style="padding:6px 12px;font-weight:bold;">Telefoon</td><td style="padding:6px 12px;"><a href="tel:%s">%s</a></td></tr>`,
		html.EscapeString(lead.CustomerPhone), html.EscapeString(valueOrNA(lead.CustomerPhone))))
	rows.WriteString(row("Locatie", valueOrNA(lead.Location)))
	rows.WriteString(row("Categorie", valueOrNA(lead.Category)))
	rows.WriteString(row("Urgentie", lead.UrgencyTier.String()))
	if lead.EstimatedCost > 0 {
		rows.WriteString(row("Indicatie", fmt.Sprintf("€ %d", lead.EstimatedCost)))
	}
	if lead.LastMessage != "" {
		rows.WriteString(row("Laatste bericht", lead.LastMessage))
	}
	rows.WriteString(row("Verzameld", lead.CollectedAt.Format(time.RFC1123)))

	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#333;">Nieuwe klus uit de chat</h2>
<table style="border-collapse:collapse;width:100%%;">
%s
</table>
<p style="color:#666;font-size:12px;">Deze aanvraag komt uit de chat-assistent. Bel de klant om de afspraak te bevestigen.</p>
</div>`, rows.String())
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "onbekend"
	}
	return s
}
