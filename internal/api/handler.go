package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/llm"
	"github.com/rbraga/braga-ia/internal/models"
	"github.com/rbraga/braga-ia/internal/session"
	"github.com/rbraga/braga-ia/internal/store"
)

// VideoCapability is the long-running video generation surface.
type VideoCapability interface {
	StartVideo(ctx context.Context, prompt string, image *llm.InlineImage) (string, error)
	PollVideo(ctx context.Context, operation string) (*llm.VideoStatus, error)
}

type Handler struct {
	controller *session.Controller
	store      *store.Store
	video      VideoCapability
	logger     *zap.Logger
}

func NewHandler(controller *session.Controller, st *store.Store, video VideoCapability, logger *zap.Logger) *Handler {
	return &Handler{
		controller: controller,
		store:      st,
		video:      video,
		logger:     logger,
	}
}

type InlineImageRequest struct {
	Data     string `json:"data"` // base64
	MIMEType string `json:"mimeType"`
}

type MessageRequest struct {
	Content      string              `json:"content"`
	FunctionType models.FunctionType `json:"functionType,omitempty"`
	Image        *InlineImageRequest `json:"image,omitempty"`
}

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var image *llm.InlineImage
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			http.Error(w, "Invalid image payload", http.StatusBadRequest)
			return
		}
		image = &llm.InlineImage{Data: data, MIMEType: req.Image.MIMEType}
	}

	result, err := h.controller.Submit(r.Context(), session.SubmitInput{
		Prompt:       req.Content,
		Image:        image,
		FunctionType: req.FunctionType,
	})
	switch {
	case errors.Is(err, session.ErrEmptyPrompt):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, session.ErrTurnInFlight):
		// Dropped on purpose; the UI resubmits when the pending turn
		// resolves if the user still wants to.
		h.logger.Debug("dropped concurrent submission")
		w.WriteHeader(http.StatusAccepted)
		return
	case err != nil:
		h.logger.Error("failed to process message", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, result)
}

// ConversationSummary is a sidebar entry; messages travel separately.
type ConversationSummary struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	FunctionType models.FunctionType `json:"functionType"`
	MessageCount int                 `json:"messageCount"`
	Active       bool                `json:"active"`
}

type CreateConversationRequest struct {
	FunctionType models.FunctionType `json:"functionType"`
}

func (h *Handler) HandleConversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeID := h.controller.ActiveID()
		conversations := h.store.List()
		summaries := make([]ConversationSummary, 0, len(conversations))
		for _, conv := range conversations {
			summaries = append(summaries, ConversationSummary{
				ID:           conv.ID,
				Title:        conv.Title,
				FunctionType: conv.FunctionType,
				MessageCount: len(conv.Messages),
				Active:       conv.ID == activeID,
			})
		}
		h.writeJSON(w, summaries)

	case http.MethodPost:
		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		id := h.controller.NewChat(req.FunctionType)
		conv, _ := h.store.Get(id)
		h.writeJSON(w, conv)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("conversation_id")
	h.writeJSON(w, h.controller.MessagesFor(id))
}

func (h *Handler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.controller.Select(r.URL.Query().Get("conversation_id"))
	w.WriteHeader(http.StatusOK)
}

type UpdateConversationRequest struct {
	Title string `json:"title"`
}

func (h *Handler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.controller.Rename(r.URL.Query().Get("conversation_id"), req.Title)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.controller.Delete(r.URL.Query().Get("conversation_id"))
	w.WriteHeader(http.StatusOK)
}

type VideoRequest struct {
	Prompt string              `json:"prompt"`
	Image  *InlineImageRequest `json:"image,omitempty"`
}

type VideoStartResponse struct {
	Operation string `json:"operation"`
}

func (h *Handler) StartVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var image *llm.InlineImage
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Data)
		if err != nil {
			http.Error(w, "Invalid image payload", http.StatusBadRequest)
			return
		}
		image = &llm.InlineImage{Data: data, MIMEType: req.Image.MIMEType}
	}

	operation, err := h.video.StartVideo(r.Context(), req.Prompt, image)
	if err != nil {
		h.logger.Error("failed to start video generation", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, VideoStartResponse{Operation: operation})
}

func (h *Handler) PollVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Query parameter 'name' is required", http.StatusBadRequest)
		return
	}

	status, err := h.video.PollVideo(r.Context(), name)
	if err != nil {
		h.logger.Error("failed to poll video operation", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
