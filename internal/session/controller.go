// Package session drives one request/response turn of the chat: selecting
// the target conversation, dispatching to the generation capability bound
// to it, and feeding results through the content codec into the store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/content"
	"github.com/rbraga/braga-ia/internal/llm"
	"github.com/rbraga/braga-ia/internal/models"
	"github.com/rbraga/braga-ia/internal/store"
)

// Capability is the generation backend a turn is dispatched to.
type Capability interface {
	GenerateText(ctx context.Context, prompt string, history []llm.Turn) (string, error)
	GenerateCode(ctx context.Context, prompt string) (string, error)
	GenerateSlides(ctx context.Context, prompt string) (*models.SlideDeck, json.RawMessage, error)
	GenerateQuiz(ctx context.Context, prompt string) (*models.Quiz, json.RawMessage, error)
	GenerateImage(ctx context.Context, prompt string, image *llm.InlineImage) (string, error)
}

var (
	// ErrEmptyPrompt rejects a submission with nothing to send.
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrTurnInFlight rejects a submission while another is pending. The
	// caller drops it silently; nothing is queued.
	ErrTurnInFlight = errors.New("a turn is already in flight")
)

const titleLimit = 40

const welcomeMarkdown = "## Olá! 👋 Sou a BRAGA IA, sua inteligência suprema.\n\nSelecione uma função ou inicie um novo chat. Suas conversas serão salvas automaticamente no histórico."

type Controller struct {
	store      *store.Store
	capability Capability
	codec      *content.Codec
	logger     *zap.Logger

	mu       sync.Mutex
	activeID string
	inFlight bool
}

func NewController(st *store.Store, capability Capability, codec *content.Codec, logger *zap.Logger) *Controller {
	return &Controller{
		store:      st,
		capability: capability,
		codec:      codec,
		logger:     logger,
	}
}

// SubmitInput is one user turn. FunctionType is only consulted when no
// conversation is active and a fresh one has to be created.
type SubmitInput struct {
	Prompt       string
	Image        *llm.InlineImage
	FunctionType models.FunctionType
}

// TurnResult reports the conversation a turn landed in and the messages it
// appended (user first, then model).
type TurnResult struct {
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

// Submit runs one turn. The target conversation id is captured here, at
// submit time; the result is appended to that id even if the user has moved
// on, and the append is a no-op if the conversation was deleted meanwhile.
func (c *Controller) Submit(ctx context.Context, in SubmitInput) (*TurnResult, error) {
	if strings.TrimSpace(in.Prompt) == "" && in.Image == nil {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	c.inFlight = true

	targetID := c.activeID
	var functionType models.FunctionType
	if conv, ok := c.store.Get(targetID); ok {
		functionType = conv.FunctionType
	} else {
		functionType = in.FunctionType
		if !functionType.Valid() {
			functionType = models.FunctionText
		}
		targetID = c.store.CreateConversation(functionType, deriveTitle(in.Prompt))
		c.activeID = targetID
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	history := c.textHistory(targetID)

	userMsg := c.codec.Rehydrate(models.Message{
		ID:         uuid.NewString(),
		Role:       models.RoleUser,
		RawContent: content.TextRaw(in.Prompt),
	})
	c.store.AppendMessages(targetID, userMsg)

	raw, err := c.dispatch(ctx, functionType, in, history)

	var modelMsg models.Message
	if err != nil {
		errText := "Desculpe, ocorreu um erro: " + err.Error()
		c.logger.Warn("turn failed",
			zap.String("conversation_id", targetID),
			zap.String("function_type", string(functionType)),
			zap.Error(err))
		modelMsg = models.Message{
			ID:         uuid.NewString(),
			Role:       models.RoleModel,
			RawContent: content.TextRaw(errText),
		}
	} else {
		modelMsg = models.Message{
			ID:         uuid.NewString(),
			Role:       models.RoleModel,
			RawContent: raw,
		}
	}
	modelMsg = c.codec.Rehydrate(modelMsg)

	if !c.store.AppendMessages(targetID, modelMsg) {
		c.logger.Debug("result landed in a deleted conversation",
			zap.String("conversation_id", targetID))
	}

	return &TurnResult{
		ConversationID: targetID,
		Messages:       []models.Message{userMsg, modelMsg},
	}, nil
}

func (c *Controller) dispatch(ctx context.Context, functionType models.FunctionType, in SubmitInput, history []llm.Turn) (json.RawMessage, error) {
	switch functionType {
	case models.FunctionImage:
		uri, err := c.capability.GenerateImage(ctx, in.Prompt, in.Image)
		if err != nil {
			return nil, err
		}
		return content.TextRaw(uri), nil
	case models.FunctionCode:
		code, err := c.capability.GenerateCode(ctx, in.Prompt)
		if err != nil {
			return nil, err
		}
		return content.TextRaw(code), nil
	case models.FunctionSlides:
		_, raw, err := c.capability.GenerateSlides(ctx, in.Prompt)
		return raw, err
	case models.FunctionQuiz:
		_, raw, err := c.capability.GenerateQuiz(ctx, in.Prompt)
		return raw, err
	default:
		text, err := c.capability.GenerateText(ctx, in.Prompt, history)
		if err != nil {
			return nil, err
		}
		return content.TextRaw(text), nil
	}
}

// textHistory extracts the prior plain-text turns of a conversation as chat
// context. Non-text payloads (images, decks, quizzes) are skipped.
func (c *Controller) textHistory(id string) []llm.Turn {
	conv, ok := c.store.Get(id)
	if !ok {
		return nil
	}
	var turns []llm.Turn
	for _, msg := range conv.Messages {
		decoded := content.Decode(msg.RawContent)
		if decoded.Kind == content.KindText {
			turns = append(turns, llm.Turn{Role: msg.Role, Text: decoded.Text})
		}
	}
	return turns
}

// NewChat creates and selects a conversation for the given capability.
func (c *Controller) NewChat(functionType models.FunctionType) string {
	if !functionType.Valid() {
		functionType = models.FunctionText
	}
	id := c.store.CreateConversation(functionType, "Novo Chat "+string(functionType))

	c.mu.Lock()
	c.activeID = id
	c.mu.Unlock()
	return id
}

// Select makes an existing conversation active. Selection does not reorder
// the history list. Unknown ids are ignored.
func (c *Controller) Select(id string) {
	if _, ok := c.store.Get(id); !ok {
		return
	}
	c.mu.Lock()
	c.activeID = id
	c.mu.Unlock()
}

// ActiveID returns the currently selected conversation id, if any.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Rename updates a conversation title.
func (c *Controller) Rename(id, title string) {
	c.store.RenameConversation(id, title)
}

// Delete removes a conversation, clearing the active selection when the
// deleted conversation was the selected one.
func (c *Controller) Delete(id string) {
	if !c.store.DeleteConversation(id) {
		return
	}
	c.mu.Lock()
	if c.activeID == id {
		c.activeID = ""
	}
	c.mu.Unlock()
}

// MessagesFor returns the renderable messages of a conversation. An unknown
// id or an empty conversation yields the synthetic welcome message, which
// exists only at display time and is never persisted.
func (c *Controller) MessagesFor(id string) []models.Message {
	conv, ok := c.store.Get(id)
	if !ok || len(conv.Messages) == 0 {
		return []models.Message{c.welcomeMessage()}
	}
	return conv.Messages
}

func (c *Controller) welcomeMessage() models.Message {
	return models.Message{
		Role: models.RoleModel,
		Rendered: &models.View{
			Kind: models.ViewHTML,
			HTML: c.codec.RenderMarkdown(welcomeMarkdown),
		},
	}
}

// deriveTitle takes the first 40 runes of the prompt and always appends an
// ellipsis, matching the original UI behavior.
func deriveTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > titleLimit {
		runes = runes[:titleLimit]
	}
	return string(runes) + "..."
}
