// Package content converts between the persisted raw form of a message and
// its renderable projection. The raw payload shape is sniffed exactly once,
// here; everything downstream works with the Content variant.
package content

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/rbraga/braga-ia/internal/models"
)

const imagePrefix = "data:image"

// Kind discriminates the payload variants a message can carry.
type Kind int

const (
	KindNone Kind = iota // no raw payload, keep whatever view is present
	KindText
	KindImage
	KindSlides
	KindQuiz
	KindUnrecognized
)

// Content is the decoded form of a raw message payload.
type Content struct {
	Kind   Kind
	Text   string
	Src    string
	Slides *models.SlideDeck
	Quiz   *models.Quiz
	Opaque json.RawMessage
}

// Decode classifies a raw payload. Strings starting with "data:image" are
// inline images, other strings are markdown text. Objects are recognized by
// their discriminating key (presentationTitle or quizTitle); anything else
// is opaque and will render as its stringified JSON.
func Decode(raw json.RawMessage) Content {
	if len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return Content{Kind: KindNone}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.HasPrefix(s, imagePrefix) {
			return Content{Kind: KindImage, Src: s}
		}
		return Content{Kind: KindText, Text: s}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			return Content{Kind: KindUnrecognized, Opaque: raw}
		}
		// Not a string, object, or array; unreachable for payloads
		// this application writes.
		return Content{Kind: KindNone}
	}

	if _, ok := probe["presentationTitle"]; ok {
		var deck models.SlideDeck
		if err := json.Unmarshal(raw, &deck); err == nil {
			return Content{Kind: KindSlides, Slides: &deck}
		}
	} else if _, ok := probe["quizTitle"]; ok {
		var quiz models.Quiz
		if err := json.Unmarshal(raw, &quiz); err == nil {
			return Content{Kind: KindQuiz, Quiz: &quiz}
		}
	}

	return Content{Kind: KindUnrecognized, Opaque: raw}
}

// TextRaw encodes a plain string as a raw payload.
func TextRaw(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

// ObjectRaw encodes a structured value as a raw payload.
func ObjectRaw(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// Codec rehydrates persisted messages into renderable views.
type Codec struct {
	md       goldmark.Markdown
	sanitize *bluemonday.Policy
}

// NewCodec builds a codec whose markdown renderer matches the chat UI:
// GitHub-flavored extensions enabled and single line breaks kept visible.
func NewCodec() *Codec {
	return &Codec{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(),
			),
		),
		sanitize: bluemonday.UGCPolicy(),
	}
}

// RenderMarkdown converts markdown to sanitized HTML.
func (c *Codec) RenderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(text), &buf); err != nil {
		// goldmark only fails on writer errors, which a Buffer never
		// produces; keep the text readable anyway.
		return text
	}
	return string(c.sanitize.SanitizeBytes(buf.Bytes()))
}

// Dehydrate strips the renderable projection, leaving only the persistable
// fields. It is pure and idempotent.
func Dehydrate(m models.Message) models.Message {
	return models.Message{
		ID:         m.ID,
		Role:       m.Role,
		RawContent: m.RawContent,
	}
}

// Rehydrate rebuilds the renderable view of a persisted message from its
// raw payload. Messages without a payload keep their existing view (the
// synthetic welcome message is the only producer of those).
func (c *Codec) Rehydrate(m models.Message) models.Message {
	decoded := Decode(m.RawContent)
	switch decoded.Kind {
	case KindImage:
		m.Rendered = &models.View{Kind: models.ViewImage, Src: decoded.Src}
	case KindText:
		m.Rendered = &models.View{Kind: models.ViewHTML, HTML: c.RenderMarkdown(decoded.Text)}
	case KindSlides:
		m.Rendered = &models.View{Kind: models.ViewSlides, Slides: decoded.Slides}
	case KindQuiz:
		m.Rendered = &models.View{Kind: models.ViewQuiz, Quiz: decoded.Quiz}
	case KindUnrecognized:
		m.Rendered = &models.View{Kind: models.ViewText, Text: stringify(decoded.Opaque)}
	}
	return m
}

// stringify compacts an opaque payload the way JSON.stringify would.
func stringify(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
