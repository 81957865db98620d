package models

import "encoding/json"

// SlideDeck is the structured slide response. An object carrying the
// presentationTitle key is recognized as a slide deck when rehydrating.
type SlideDeck struct {
	PresentationTitle string  `json:"presentationTitle"`
	Slides            []Slide `json:"slides"`
}

type Slide struct {
	Title      string       `json:"title"`
	Content    SlideContent `json:"content"`
	ImageQuery string       `json:"imageQuery"`
	ImageURL   string       `json:"imageUrl,omitempty"`
}

// SlideContent accepts either a single string or a list of strings on the
// wire and normalizes to a list of bullet points.
type SlideContent []string

func (c *SlideContent) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*c = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*c = SlideContent{single}
	return nil
}

// Quiz is the structured quiz response. An object carrying the quizTitle
// key is recognized as a quiz when rehydrating.
type Quiz struct {
	QuizTitle string     `json:"quizTitle"`
	Questions []Question `json:"questions"`
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	OpenEnded      QuestionType = "open_ended"
)

type Question struct {
	QuestionText  string       `json:"questionText"`
	QuestionType  QuestionType `json:"questionType"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
}
