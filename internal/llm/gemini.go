package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Image and video generation are not reachable through langchaingo's
// googleai backend (image response modalities and Veo long-running
// operations have no surface there), so these two capabilities call the
// Generative Language REST API directly.

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var (
	ErrImageSafety  = errors.New("A imagem não pôde ser gerada devido às minhas políticas de segurança. Por favor, tente uma descrição diferente.")
	ErrImageBlocked = errors.New("Sua solicitação não pôde ser atendida por violar as políticas de segurança. Tente uma abordagem diferente.")
	ErrImageEmpty   = errors.New("Não foi possível materializar sua visão. A resposta da IA não continha uma imagem.")
	ErrImageFailed  = errors.New("Houve uma falha momentânea em meus circuitos de criação. Por favor, tente novamente.")
	ErrVideoFailed  = errors.New("Não foi possível gerar o vídeo. Por favor, tente novamente.")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Minute}
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateImage renders an image for the prompt, optionally conditioned on
// an attached input image, and returns it as a data URI.
func (s *Service) GenerateImage(ctx context.Context, prompt string, image *InlineImage) (string, error) {
	var req generateRequest
	var parts []generatePart
	if image != nil {
		parts = append(parts, generatePart{InlineData: &inlineData{
			MIMEType: image.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(image.Data),
		}})
	}
	parts = append(parts, generatePart{Text: prompt})
	req.Contents = []struct {
		Parts []generatePart `json:"parts"`
	}{{Parts: parts}}
	req.GenerationConfig.ResponseModalities = []string{"IMAGE"}

	body, err := s.post(ctx, fmt.Sprintf("/models/%s:generateContent", imageModel), req)
	if err != nil {
		s.logger.Error("image generation request failed", zap.Error(err))
		if strings.Contains(strings.ToLower(err.Error()), "safety") {
			return "", ErrImageBlocked
		}
		return "", ErrImageFailed
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Error("image generation returned unparseable body", zap.Error(err))
		return "", ErrImageFailed
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil {
				return "data:" + part.InlineData.MIMEType + ";base64," + part.InlineData.Data, nil
			}
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == "SAFETY" {
		return "", ErrImageSafety
	}
	return "", ErrImageEmpty
}

// VideoStatus is the result of polling a video operation.
type VideoStatus struct {
	Done bool   `json:"done"`
	URI  string `json:"uri,omitempty"`
}

type videoStartRequest struct {
	Instances []videoInstance `json:"instances"`
	Parameters struct {
		AspectRatio    string `json:"aspectRatio"`
		Resolution     string `json:"resolution"`
		NumberOfVideos int    `json:"numberOfVideos"`
	} `json:"parameters"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type videoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StartVideo kicks off long-running video generation and returns the opaque
// operation name used for polling.
func (s *Service) StartVideo(ctx context.Context, prompt string, image *InlineImage) (string, error) {
	var req videoStartRequest
	inst := videoInstance{Prompt: prompt}
	if image != nil {
		inst.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(image.Data),
			MIMEType:           image.MIMEType,
		}
	}
	req.Instances = []videoInstance{inst}
	req.Parameters.AspectRatio = "16:9"
	req.Parameters.Resolution = "720p"
	req.Parameters.NumberOfVideos = 1

	body, err := s.post(ctx, fmt.Sprintf("/models/%s:predictLongRunning", videoModel), req)
	if err != nil {
		s.logger.Error("video generation start failed", zap.Error(err))
		return "", ErrVideoFailed
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil || op.Name == "" {
		s.logger.Error("video generation start returned no operation", zap.Error(err))
		return "", ErrVideoFailed
	}
	return op.Name, nil
}

// PollVideo checks a video operation. A non-terminal operation reports
// Done=false; a terminal one carries the generated video location.
func (s *Service) PollVideo(ctx context.Context, operation string) (*VideoStatus, error) {
	body, err := s.get(ctx, "/"+strings.TrimPrefix(operation, "/"))
	if err != nil {
		s.logger.Error("video operation poll failed", zap.Error(err))
		return nil, ErrVideoFailed
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil {
		s.logger.Error("video operation poll returned unparseable body", zap.Error(err))
		return nil, ErrVideoFailed
	}
	if op.Error != nil {
		s.logger.Error("video operation failed", zap.String("message", op.Error.Message))
		return nil, ErrVideoFailed
	}
	if !op.Done {
		return &VideoStatus{Done: false}, nil
	}

	status := &VideoStatus{Done: true}
	if samples := op.Response.GenerateVideoResponse.GeneratedSamples; len(samples) > 0 {
		status.URI = samples[0].Video.URI
	}
	return status, nil
}

func (s *Service) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.send(req)
}

func (s *Service) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return s.send(req)
}

func (s *Service) send(req *http.Request) ([]byte, error) {
	q := req.URL.Query()
	q.Set("key", s.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini api returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
