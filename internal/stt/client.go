package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// RecognitionClient calls an OpenAI-compatible /v1/audio/transcriptions
// endpoint and adapts the result to pipeline segments.
type RecognitionClient struct {
	baseURL string
	model   string
	device  string
	client  *http.Client
	reg     *Registry
	log     zerolog.Logger
}

// NewRecognitionClient creates a recognition stage adapter. The model size
// must already be validated via ValidateModelSize.
func NewRecognitionClient(baseURL, model, device string, timeout time.Duration, reg *Registry, log zerolog.Logger) *RecognitionClient {
	return &RecognitionClient{
		baseURL: baseURL,
		model:   model,
		device:  device,
		client:  &http.Client{Timeout: timeout},
		reg:     reg,
		log:     log.With().Str("component", "recognition").Logger(),
	}
}

// recognitionResponse is the verbose_json payload from the backend.
type recognitionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe sends canonical audio to the recognition backend and returns
// coarse segments plus the detected language.
func (c *RecognitionClient) Transcribe(ctx context.Context, audioPath string) ([]pipeline.RecognizedSegment, string, error) {
	key := Key{Kind: "recognition", Model: c.model, Device: c.device}
	if err := c.reg.Ensure(ctx, key, c.loadModel); err != nil {
		return nil, "", fmt.Errorf("load recognition model: %w", err)
	}

	body, contentType, err := audioForm(audioPath, map[string]string{
		"model":           c.model,
		"response_format": "verbose_json",
	})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("recognition request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", pipeline.Errorf(pipeline.KindModel,
			"recognition API error (status %d): %s", resp.StatusCode, respBody)
	}

	var result recognitionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	segments := make([]pipeline.RecognizedSegment, 0, len(result.Segments))
	for _, s := range result.Segments {
		segments = append(segments, pipeline.RecognizedSegment{
			Start:    s.Start,
			End:      s.End,
			Text:     s.Text,
			Language: result.Language,
		})
	}
	return segments, result.Language, nil
}

// loadModel asks the backend to initialize the model. Backends that load
// lazily answer 404 here; that is not an error.
func (c *RecognitionClient) loadModel(ctx context.Context) error {
	c.log.Info().Str("model", c.model).Str("device", c.device).Msg("initializing recognition model")
	return postModelLoad(ctx, c.client, c.baseURL, map[string]string{
		"model":  c.model,
		"device": c.device,
	})
}

// audioForm builds a multipart body with the audio file plus extra fields.
func audioForm(audioPath string, fields map[string]string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType(), nil
}

// postModelLoad issues an explicit model initialization request.
func postModelLoad(ctx context.Context, client *http.Client, baseURL string, params map[string]string) error {
	payload, _ := json.Marshal(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/models/load", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("model load failed (status %d)", resp.StatusCode)
}
