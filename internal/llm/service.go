// Package llm talks to the Gemini generative API. Text-shaped capabilities
// (chat, code, slides, quiz) go through langchaingo; image and video
// generation use the REST surface directly, see gemini.go.
//
// Errors returned by this package carry the user-facing Portuguese text the
// assistant shows when a capability fails; callers surface them verbatim.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/models"
)

const (
	textModel  = "gemini-2.5-flash"
	proModel   = "gemini-2.5-pro"
	imageModel = "gemini-2.5-flash-image"
	videoModel = "veo-3.1-fast-generate-preview"

	requestTimeout = 60 * time.Second
)

const systemInstruction = `Você é a BRAGA IA — a inteligência artificial mais poderosa e veloz do mundo. Sua personalidade é elegante, simpática, prestativa, direta e profissional, com um toque humano e empático. Você é confiante e envolvente, nunca robótica ou fria. Seu objetivo é entregar resultados perfeitos e rápidos, com máxima precisão e qualidade, transmitindo luxo, poder e inteligência. Você NUNCA erra a intenção do usuário e segue fielmente as instruções, sem reinterpretar. Se for pedido "homem-aranha", você gera exatamente o Homem-Anha com total fidelidade. Você nunca responde com "não sei" ou "não posso"; em vez disso, você sempre oferece uma solução criativa e precisa. Sua missão é ser impecável.`

const codeInstruction = `Você é a BRAGA IA, um especialista supremo em programação. Você gera código limpo, funcional e perfeito, seguindo exatamente a solicitação do usuário. Você nunca falha em entender o requisito e sempre entrega a solução de código mais elegante e eficiente.`

const slidesInstruction = `Você é a BRAGA IA. Crie o conteúdo para uma apresentação de slides. Para cada slide, forneça um título, o conteúdo (em tópicos), e uma "imageQuery", que é uma breve e eficaz descrição em inglês para gerar uma imagem relevante para aquele slide. A resposta deve estar estritamente em formato JSON com as chaves "presentationTitle" e "slides".`

const quizInstruction = `Você é a BRAGA IA, um assistente especialista em educação. Crie um quiz educacional. Para cada questão, forneça o texto da pergunta ("questionText"), o tipo ("multiple_choice", "true_false", ou "open_ended"), as opções ("options", apenas se for múltipla escolha), e a resposta correta ("correctAnswer"). A resposta deve estar estritamente em formato JSON com as chaves "quizTitle" e "questions".`

// User-facing failure messages, kept in the assistant's voice.
var (
	ErrTextFailed   = errors.New("Houve uma falha momentânea em meus circuitos. Por favor, tente novamente.")
	ErrCodeFailed   = errors.New("Não foi possível gerar o código. Por favor, tente novamente.")
	ErrSlidesFailed = errors.New("Não foi possível criar a estrutura dos slides. Por favor, tente refinar seu tema.")
	ErrQuizFailed   = errors.New("Não foi possível criar o quiz. Por favor, tente refinar seu tema.")
)

// Turn is one prior exchange fed back as chat context.
type Turn struct {
	Role models.Role
	Text string
}

// InlineImage is an attachment sent alongside a prompt.
type InlineImage struct {
	Data     []byte
	MIMEType string
}

type Service struct {
	model   llms.Model
	logger  *zap.Logger
	apiKey  string
	baseURL string
	httpc   httpDoer
}

func New(ctx context.Context, apiKey string, logger *zap.Logger) (*Service, error) {
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(textModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &Service{
		model:   model,
		logger:  logger,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   defaultHTTPClient(),
	}, nil
}

// GenerateText runs one chat turn with the persona instruction and the
// prior text turns of the conversation as context.
func (s *Service) GenerateText(ctx context.Context, prompt string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemInstruction),
	}
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleModel {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Text))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	resp, err := s.model.GenerateContent(ctx, messages, llms.WithModel(textModel))
	if err != nil {
		s.logger.Error("text generation failed", zap.Error(err))
		return "", ErrTextFailed
	}
	text, err := firstChoice(resp)
	if err != nil {
		s.logger.Error("text generation returned no choices")
		return "", ErrTextFailed
	}
	return text, nil
}

// GenerateCode asks for code only, formatted as a markdown block.
func (s *Service) GenerateCode(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	codePrompt := "Gere apenas o código para a seguinte solicitação, sem explicações adicionais, a menos que solicitado. Formate a resposta como um bloco de código markdown. Solicitação: " + prompt

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, codeInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, codePrompt),
	}

	resp, err := s.model.GenerateContent(ctx, messages, llms.WithModel(proModel))
	if err != nil {
		s.logger.Error("code generation failed", zap.Error(err))
		return "", ErrCodeFailed
	}
	text, err := firstChoice(resp)
	if err != nil {
		s.logger.Error("code generation returned no choices")
		return "", ErrCodeFailed
	}
	return text, nil
}

// GenerateSlides produces a structured slide deck. The returned raw JSON is
// what gets persisted; the decoded deck is the renderable binding.
func (s *Service) GenerateSlides(ctx context.Context, prompt string) (*models.SlideDeck, json.RawMessage, error) {
	raw, err := s.generateJSON(ctx, slidesInstruction,
		"Crie o conteúdo para uma apresentação de slides sobre o seguinte tema. A resposta deve estar estritamente em formato JSON. Tema: "+prompt)
	if err != nil {
		s.logger.Error("slides generation failed", zap.Error(err))
		return nil, nil, ErrSlidesFailed
	}

	var deck models.SlideDeck
	if err := json.Unmarshal(raw, &deck); err != nil || deck.PresentationTitle == "" {
		s.logger.Error("slides response did not match expected shape", zap.Error(err))
		return nil, nil, ErrSlidesFailed
	}
	return &deck, raw, nil
}

// GenerateQuiz produces a structured quiz, same contract as GenerateSlides.
func (s *Service) GenerateQuiz(ctx context.Context, prompt string) (*models.Quiz, json.RawMessage, error) {
	raw, err := s.generateJSON(ctx, quizInstruction,
		"Crie um quiz com base no seguinte tema e instruções. A resposta deve ser estritamente em formato JSON. Tema/Instruções: "+prompt)
	if err != nil {
		s.logger.Error("quiz generation failed", zap.Error(err))
		return nil, nil, ErrQuizFailed
	}

	var quiz models.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil || quiz.QuizTitle == "" {
		s.logger.Error("quiz response did not match expected shape", zap.Error(err))
		return nil, nil, ErrQuizFailed
	}
	return &quiz, raw, nil
}

func (s *Service) generateJSON(ctx context.Context, instruction, prompt string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, instruction),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := s.model.GenerateContent(ctx, messages,
		llms.WithModel(proModel),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, err
	}
	text, err := firstChoice(resp)
	if err != nil {
		return nil, err
	}

	cleaned := stripJSONFences(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("model returned invalid JSON")
	}
	return json.RawMessage(cleaned), nil
}

func firstChoice(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return resp.Choices[0].Content, nil
}

// stripJSONFences removes a surrounding markdown code fence, which some
// models emit even in JSON mode.
func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
