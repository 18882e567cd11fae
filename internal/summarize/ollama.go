package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

const defaultPort = "11434"

// promptTemplate instructs the model to produce the fixed three-part
// structure: overview paragraph, key topics, action items/decisions.
const promptTemplate = `You are an expert AI assistant that specializes in summarizing meeting transcripts. Please provide a concise summary of the following text. Structure your summary with these sections:
- A brief, one-paragraph overview of the conversation.
- A bulleted list of the key topics discussed.
- A bulleted list of any action items or decisions that were made.

Here is the transcript:
---
%s
---`

// Client sends merged transcripts to an Ollama-compatible chat endpoint.
//
// Summarization is best-effort by design: any communication or model error
// degrades into a SummaryResult carrying a diagnostic instead of failing the
// run. Transcription is the product; the summary is a bonus.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
	log      zerolog.Logger
}

// NewClient creates a summarizer against host. Hosts without an explicit
// port get Ollama's default.
func NewClient(host, model string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		endpoint: chatEndpoint(host),
		model:    model,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "summarizer").Logger(),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Summarize requests a structured summary of the transcript. Never returns
// an error; see Client docs.
func (c *Client) Summarize(ctx context.Context, transcript string) pipeline.SummaryResult {
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: fmt.Sprintf(promptTemplate, transcript)}},
		Stream:   false,
	})
	if err != nil {
		return c.fallback(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return c.fallback(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fallback(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fallback(err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.fallback(fmt.Errorf("summarization API error (status %d): %s", resp.StatusCode, body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return c.fallback(err)
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return c.fallback(fmt.Errorf("model returned an empty summary"))
	}

	return pipeline.SummaryResult{
		Text:      result.Message.Content,
		Model:     c.model,
		Succeeded: true,
	}
}

func (c *Client) fallback(err error) pipeline.SummaryResult {
	c.log.Warn().Err(err).Str("model", c.model).Msg("summarization failed, using fallback text")
	return pipeline.SummaryResult{
		Text:      fmt.Sprintf("Could not generate summary. Error: %v", err),
		Model:     c.model,
		Succeeded: false,
	}
}

// chatEndpoint normalizes OLLAMA_HOST into a full /api/chat URL.
func chatEndpoint(host string) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(host, "/") + ":" + defaultPort + "/api/chat"
	}
	if u.Port() == "" {
		u.Host = u.Host + ":" + defaultPort
	}
	u.Path = "/api/chat"
	return u.String()
}
