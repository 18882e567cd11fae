package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// AlignClient refines segment timestamps to word level by calling an
// alignment backend. Alignment models are language-specific, so the
// registry key carries the detected language rather than a model size.
type AlignClient struct {
	baseURL string
	device  string
	client  *http.Client
	reg     *Registry
	log     zerolog.Logger
}

// NewAlignClient creates an alignment stage adapter.
func NewAlignClient(baseURL, device string, timeout time.Duration, reg *Registry, log zerolog.Logger) *AlignClient {
	return &AlignClient{
		baseURL: baseURL,
		device:  device,
		client:  &http.Client{Timeout: timeout},
		reg:     reg,
		log:     log.With().Str("component", "alignment").Logger(),
	}
}

type alignResponse struct {
	Segments []pipeline.AlignedSegment `json:"segments"`
}

// Align sends canonical audio plus recognized segments to the alignment
// backend. An unsupported language aborts the run: word-level timing is
// required by the merger and there is no degraded fallback.
func (c *AlignClient) Align(ctx context.Context, audioPath, language string, segments []pipeline.RecognizedSegment) ([]pipeline.AlignedSegment, error) {
	key := Key{Kind: "alignment", Model: language, Device: c.device}
	if err := c.reg.Ensure(ctx, key, func(ctx context.Context) error {
		c.log.Info().Str("language", language).Str("device", c.device).Msg("initializing alignment model")
		return postModelLoad(ctx, c.client, c.baseURL, map[string]string{
			"language": language,
			"device":   c.device,
		})
	}); err != nil {
		return nil, fmt.Errorf("load alignment model: %w", err)
	}

	segJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
	}

	body, contentType, err := audioForm(audioPath, map[string]string{
		"language": language,
		"segments": string(segJSON),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/alignments", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alignment request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return nil, pipeline.Errorf(pipeline.KindModel,
			"no alignment model available for language %q", language)
	default:
		return nil, pipeline.Errorf(pipeline.KindModel,
			"alignment API error (status %d): %s", resp.StatusCode, respBody)
	}

	var result alignResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Segments, nil
}
