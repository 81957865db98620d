package models

import "encoding/json"

// FunctionType is the capability a conversation is bound to. The values are
// the wire labels shown in the function selector and stored in history.
type FunctionType string

const (
	FunctionText   FunctionType = "Texto"
	FunctionImage  FunctionType = "Imagem"
	FunctionCode   FunctionType = "Código"
	FunctionSlides FunctionType = "Slides"
	FunctionQuiz   FunctionType = "Professor"
)

// Valid reports whether f is one of the known capability kinds.
func (f FunctionType) Valid() bool {
	switch f {
	case FunctionText, FunctionImage, FunctionCode, FunctionSlides, FunctionQuiz:
		return true
	}
	return false
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn in a conversation. RawContent is the persisted
// payload (a JSON string or a discriminated object). Rendered is the
// UI-ready projection of RawContent; it is recomputed on load and never
// serialized into the history snapshot.
type Message struct {
	ID         string          `json:"id,omitempty"`
	Role       Role            `json:"role"`
	RawContent json.RawMessage `json:"rawContent,omitempty"`
	Rendered   *View           `json:"content,omitempty"`
}

type Conversation struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	FunctionType FunctionType `json:"functionType"`
	Messages     []Message    `json:"messages"`
}

// ViewKind tags the renderable projection of a message payload.
type ViewKind string

const (
	ViewHTML   ViewKind = "html"   // sanitized HTML rendered from markdown
	ViewImage  ViewKind = "image"  // inline image, Src is a data URI
	ViewSlides ViewKind = "slides" // slide deck bound to Slides
	ViewQuiz   ViewKind = "quiz"   // quiz bound to Quiz
	ViewText   ViewKind = "text"   // plain text, no markup
)

// View is what the browser renders for a message bubble.
type View struct {
	Kind   ViewKind   `json:"kind"`
	HTML   string     `json:"html,omitempty"`
	Src    string     `json:"src,omitempty"`
	Slides *SlideDeck `json:"slides,omitempty"`
	Quiz   *Quiz      `json:"quiz,omitempty"`
	Text   string     `json:"text,omitempty"`
}
