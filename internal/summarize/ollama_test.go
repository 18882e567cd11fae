package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClient_Summarize(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"A productive meeting about roadmaps."}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.1:8b", 5*time.Second, zerolog.Nop())
	result := c.Summarize(context.Background(), "[0.00–4.26] SPEAKER_00: hello\n")

	if !result.Succeeded {
		t.Fatal("summary should have succeeded")
	}
	if result.Text != "A productive meeting about roadmaps." {
		t.Errorf("text = %q", result.Text)
	}
	if result.Model != "llama3.1:8b" {
		t.Errorf("model = %q", result.Model)
	}

	if got.Model != "llama3.1:8b" || got.Stream {
		t.Errorf("request = %+v, want non-streaming llama3.1:8b", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "SPEAKER_00: hello") {
		t.Error("prompt does not embed the transcript")
	}
	if !strings.Contains(got.Messages[0].Content, "action items") {
		t.Error("prompt does not request the structured sections")
	}
}

func TestClient_UnreachableEndpointFallsBack(t *testing.T) {
	// Port 1 is never listening; the request fails fast.
	c := NewClient("http://127.0.0.1:1", "llama3.1:8b", time.Second, zerolog.Nop())
	result := c.Summarize(context.Background(), "transcript")

	if result.Succeeded {
		t.Fatal("unreachable endpoint must degrade, not succeed")
	}
	if !strings.HasPrefix(result.Text, "Could not generate summary. Error: ") {
		t.Errorf("fallback text = %q", result.Text)
	}
}

func TestClient_BackendErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.1:8b", 5*time.Second, zerolog.Nop())
	result := c.Summarize(context.Background(), "transcript")
	if result.Succeeded {
		t.Fatal("backend error must degrade")
	}
	if !strings.Contains(result.Text, "status 404") {
		t.Errorf("fallback text = %q", result.Text)
	}
}

func TestClient_EmptySummaryFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"  \n"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.1:8b", 5*time.Second, zerolog.Nop())
	if result := c.Summarize(context.Background(), "transcript"); result.Succeeded {
		t.Error("blank model output must degrade")
	}
}

func TestChatEndpoint(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"http://127.0.0.1", "http://127.0.0.1:11434/api/chat"},
		{"http://127.0.0.1:11434", "http://127.0.0.1:11434/api/chat"},
		{"http://ollama.internal:8080", "http://ollama.internal:8080/api/chat"},
		{"ollama.internal", "http://ollama.internal:11434/api/chat"},
		{"https://ollama.example.com", "https://ollama.example.com:11434/api/chat"},
	}
	for _, c := range cases {
		if got := chatEndpoint(c.host); got != c.want {
			t.Errorf("chatEndpoint(%q) = %q, want %q", c.host, got, c.want)
		}
	}
}
