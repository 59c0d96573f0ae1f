package dispatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loodlijn/dispatch/internal/tenancy"
	"github.com/loodlijn/dispatch/pkg/logging"
)

// Handler exposes the dispatch service over HTTP. The org ID is taken from
// the request context; the tenancy middleware guarantees it is present.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("dispatch: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the conversation endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/conversations", h.startConversation)
	r.Get("/conversations/{conversationID}", h.getConversation)
	r.Post("/conversations/{conversationID}/messages", h.postMessage)
	r.Get("/jobs/{jobID}", h.getJob)
}

func (h *Handler) startConversation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusBadRequest, "org id is required")
		return
	}

	conversationID, err := h.svc.Start(r.Context(), StartRequest{OrgID: orgID})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"conversation_id": conversationID})
}

type postMessageBody struct {
	Message string `json:"message"`
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusBadRequest, "org id is required")
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	var body postMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	req := MessageRequest{OrgID: orgID, ConversationID: conversationID, Message: body.Message}

	if r.URL.Query().Get("async") == "true" {
		jobID, err := h.svc.EnqueueMessage(r.Context(), req)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
		return
	}

	resp, err := h.svc.Message(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusBadRequest, "org id is required")
		return
	}

	conv, err := h.svc.History(r.Context(), orgID, chi.URLParam(r, "conversationID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusBadRequest, "org id is required")
		return
	}

	job, err := h.svc.JobStatus(r.Context(), orgID, chi.URLParam(r, "jobID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, ErrJobNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrStoreUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	case errors.Is(err, ErrStoreConflict):
		h.writeError(w, http.StatusConflict, "conversation is busy, retry")
	default:
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response encode failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
