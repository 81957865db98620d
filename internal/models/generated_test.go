package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlideContentAcceptsStringOrList(t *testing.T) {
	var slide Slide
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","content":["a","b"],"imageQuery":"q"}`), &slide))
	assert.Equal(t, SlideContent{"a", "b"}, slide.Content)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","content":"único tópico","imageQuery":"q"}`), &slide))
	assert.Equal(t, SlideContent{"único tópico"}, slide.Content)

	assert.Error(t, json.Unmarshal([]byte(`{"title":"t","content":42}`), &slide))
}

func TestQuizDecoding(t *testing.T) {
	raw := `{
		"quizTitle": "Prova de História",
		"questions": [
			{"questionText":"Quem?","questionType":"multiple_choice","options":["a","b"],"correctAnswer":"a"},
			{"questionText":"Verdadeiro?","questionType":"true_false","correctAnswer":"true"}
		]
	}`
	var quiz Quiz
	require.NoError(t, json.Unmarshal([]byte(raw), &quiz))
	assert.Equal(t, "Prova de História", quiz.QuizTitle)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, MultipleChoice, quiz.Questions[0].QuestionType)
	assert.Nil(t, quiz.Questions[1].Options)
}

func TestFunctionTypeValid(t *testing.T) {
	for _, f := range []FunctionType{FunctionText, FunctionImage, FunctionCode, FunctionSlides, FunctionQuiz} {
		assert.True(t, f.Valid(), string(f))
	}
	assert.False(t, FunctionType("Video").Valid())
	assert.False(t, FunctionType("").Valid())
}
