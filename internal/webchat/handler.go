// Package webchat serves the embeddable website widget: a WebSocket channel
// that streams assistant replies token by token.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/loodlijn/dispatch/internal/dispatch"
	"github.com/loodlijn/dispatch/pkg/logging"
)

// Handler manages web chat connections.
type Handler struct {
	svc    *dispatch.Service
	logger *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what the widget receives. "chunk" carries partial
// assistant text; "message" closes the turn with the full reply and the turn
// summary.
type OutboundMessage struct {
	Type           string   `json:"type"` // "session", "typing", "chunk", "message", "pong", "error"
	Text           string   `json:"text,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	UrgencyTier    string   `json:"urgency_tier,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	EstimatedCost  int      `json:"estimated_cost,omitempty"`
	TriggerBooking bool     `json:"trigger_booking,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
}

func NewHandler(svc *dispatch.Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("webchat: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:      svc,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing org parameter"})
		return
	}

	ctx := r.Context()

	conversationID := r.URL.Query().Get("conversation")
	if conversationID == "" {
		id, err := h.svc.Start(ctx, dispatch.StartRequest{OrgID: orgID})
		if err != nil {
			h.logger.Error("webchat: failed to start conversation",
				slog.String("org_id", orgID), slog.String("error", err.Error()))
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "could not start conversation"})
			return
		}
		conversationID = id
	}

	wsc := &wsConn{conn: conn}
	h.mu.Lock()
	h.sessions[conversationID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[conversationID] == wsc {
			delete(h.sessions, conversationID)
		}
		h.mu.Unlock()
	}()

	_ = wsc.send(OutboundMessage{Type: "session", ConversationID: conversationID})
	h.logger.Info("webchat: connection opened",
		slog.String("org_id", orgID), slog.String("conversation_id", conversationID))

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed",
				slog.String("org_id", orgID), slog.String("error", err.Error()))
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.processMessage(ctx, wsc, orgID, conversationID, msg.Text)
	}
}

func (h *Handler) processMessage(ctx context.Context, wsc *wsConn, orgID, conversationID, text string) {
	_ = wsc.send(OutboundMessage{Type: "typing"})

	sink := func(chunk string) {
		_ = wsc.send(OutboundMessage{Type: "chunk", Text: chunk})
	}

	resp, err := h.svc.MessageStream(ctx, dispatch.MessageRequest{
		OrgID:          orgID,
		ConversationID: conversationID,
		Message:        text,
	}, sink)
	if err != nil {
		h.logger.Error("webchat: message processing failed",
			slog.String("org_id", orgID),
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
		_ = wsc.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		return
	}

	_ = wsc.send(OutboundMessage{
		Type:           "message",
		Text:           resp.Reply,
		ConversationID: conversationID,
		UrgencyTier:    resp.UrgencyTier.String(),
		Categories:     resp.Categories,
		EstimatedCost:  resp.EstimatedCost,
		TriggerBooking: resp.TriggerBooking,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHistory returns the turns of a conversation for widget reloads.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	conversationID := r.URL.Query().Get("conversation")
	if orgID == "" || conversationID == "" {
		http.Error(w, "org and conversation parameters required", http.StatusBadRequest)
		return
	}

	conv, err := h.svc.History(r.Context(), orgID, conversationID)
	if errors.Is(err, dispatch.ErrConversationNotFound) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("webchat: failed to load history", slog.String("error", err.Error()))
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	type historyMessage struct {
		Role      string `json:"role"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}
	history := make([]historyMessage, 0, len(conv.Turns)*2)
	for _, turn := range conv.Turns {
		history = append(history,
			historyMessage{Role: "user", Text: turn.CustomerMessage, Timestamp: turn.Timestamp.Format(time.RFC3339)},
			historyMessage{Role: "assistant", Text: turn.Text, Timestamp: turn.Timestamp.Format(time.RFC3339)},
		)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}
