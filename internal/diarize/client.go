package diarize

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

// Client calls a pyannote-style diarization backend. The backend requires a
// caller-supplied credential (HF_TOKEN), sent as a bearer token and never
// logged. Returned turns need not cover the whole timeline; the merger
// handles gaps.
type Client struct {
	baseURL string
	token   string
	device  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a diarization stage adapter. Token presence is enforced
// by config validation before any run starts; the guard here is a backstop.
func NewClient(baseURL, token, device string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		device:  device,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "diarization").Logger(),
	}
}

type diarizeResponse struct {
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

// Diarize partitions the audio timeline into speaker turns.
func (c *Client) Diarize(ctx context.Context, audioPath string) ([]pipeline.DiarizationTurn, error) {
	if c.token == "" {
		return nil, pipeline.Errorf(pipeline.KindConfiguration,
			"diarization credential (HF_TOKEN) is not set")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	w.WriteField("device", c.device)
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/diarization", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarization request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, pipeline.Errorf(pipeline.KindConfiguration,
			"diarization backend rejected the credential (status %d)", resp.StatusCode)
	default:
		return nil, pipeline.Errorf(pipeline.KindModel,
			"diarization API error (status %d): %s", resp.StatusCode, respBody)
	}

	var result diarizeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	turns := make([]pipeline.DiarizationTurn, 0, len(result.Segments))
	for _, s := range result.Segments {
		turns = append(turns, pipeline.DiarizationTurn{Start: s.Start, End: s.End, Speaker: s.Speaker})
	}
	return turns, nil
}
