package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/rbraga/braga-ia/internal/models"
)

type fakeModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func newFakeService(model *fakeModel) *Service {
	return &Service{model: model, logger: zap.NewNop()}
}

func TestGenerateTextBuildsChatContext(t *testing.T) {
	model := &fakeModel{response: "claro!"}
	svc := newFakeService(model)

	history := []Turn{
		{Role: models.RoleUser, Text: "oi"},
		{Role: models.RoleModel, Text: "olá"},
	}
	text, err := svc.GenerateText(context.Background(), "me ajuda", history)
	require.NoError(t, err)
	assert.Equal(t, "claro!", text)

	require.Len(t, model.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[3].Role)
}

func TestGenerateTextFailureIsUserFacing(t *testing.T) {
	model := &fakeModel{err: assert.AnError}
	svc := newFakeService(model)

	_, err := svc.GenerateText(context.Background(), "oi", nil)
	assert.ErrorIs(t, err, ErrTextFailed)
}

func TestGenerateSlidesDecodesDeck(t *testing.T) {
	model := &fakeModel{response: "```json\n{\"presentationTitle\":\"História do Brasil\",\"slides\":[{\"title\":\"s1\",\"content\":[\"a\"],\"imageQuery\":\"brazil\"}]}\n```"}
	svc := newFakeService(model)

	deck, raw, err := svc.GenerateSlides(context.Background(), "história do brasil")
	require.NoError(t, err)
	assert.Equal(t, "História do Brasil", deck.PresentationTitle)
	require.Len(t, deck.Slides, 1)
	assert.JSONEq(t, `{"presentationTitle":"História do Brasil","slides":[{"title":"s1","content":["a"],"imageQuery":"brazil"}]}`, string(raw))
}

func TestGenerateSlidesRejectsMalformedResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "aqui estão seus slides!"},
		{"wrong shape", `{"quizTitle":"X"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService(&fakeModel{response: tt.response})
			_, _, err := svc.GenerateSlides(context.Background(), "tema")
			assert.ErrorIs(t, err, ErrSlidesFailed)
		})
	}
}

func TestGenerateQuizDecodes(t *testing.T) {
	model := &fakeModel{response: `{"quizTitle":"Prova","questions":[{"questionText":"q","questionType":"open_ended","correctAnswer":"a"}]}`}
	svc := newFakeService(model)

	quiz, raw, err := svc.GenerateQuiz(context.Background(), "tema")
	require.NoError(t, err)
	assert.Equal(t, "Prova", quiz.QuizTitle)
	assert.NotEmpty(t, raw)
}

func TestGenerateCode(t *testing.T) {
	model := &fakeModel{response: "```go\nfunc main() {}\n```"}
	svc := newFakeService(model)

	code, err := svc.GenerateCode(context.Background(), "hello world em go")
	require.NoError(t, err)
	assert.Contains(t, code, "func main()")
	require.NotEmpty(t, model.messages)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
}
