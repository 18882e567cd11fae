package diarize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

func writeWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "canonical.wav")
	if err := os.WriteFile(path, []byte("pcm bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClient_Diarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hf_testtoken" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file part missing: %v", err)
		}
		w.Write([]byte(`{
			"segments": [
				{"start": 0.0, "end": 4.5, "speaker": "SPEAKER_00"},
				{"start": 5.1, "end": 9.8, "speaker": "SPEAKER_01"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hf_testtoken", "cpu", 5*time.Second, zerolog.Nop())
	turns, err := c.Diarize(context.Background(), writeWav(t))
	if err != nil {
		t.Fatalf("Diarize: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	want := pipeline.DiarizationTurn{Start: 5.1, End: 9.8, Speaker: "SPEAKER_01"}
	if turns[1] != want {
		t.Errorf("turn 1 = %+v, want %+v", turns[1], want)
	}
}

func TestClient_MissingTokenIsConfigurationError(t *testing.T) {
	c := NewClient("http://127.0.0.1:9002", "", "cpu", 5*time.Second, zerolog.Nop())
	_, err := c.Diarize(context.Background(), writeWav(t))
	if pipeline.KindOf(err) != pipeline.KindConfiguration {
		t.Errorf("kind = %q, want %q (err: %v)", pipeline.KindOf(err), pipeline.KindConfiguration, err)
	}
}

func TestClient_RejectedCredentialIsConfigurationError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.URL, "hf_expired", "cpu", 5*time.Second, zerolog.Nop())
		_, err := c.Diarize(context.Background(), writeWav(t))
		srv.Close()

		if pipeline.KindOf(err) != pipeline.KindConfiguration {
			t.Errorf("status %d: kind = %q, want %q", status, pipeline.KindOf(err), pipeline.KindConfiguration)
		}
	}
}

func TestClient_BackendErrorIsModelError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cuda out of memory", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hf_testtoken", "cpu", 5*time.Second, zerolog.Nop())
	_, err := c.Diarize(context.Background(), writeWav(t))
	if pipeline.KindOf(err) != pipeline.KindModel {
		t.Errorf("kind = %q, want %q", pipeline.KindOf(err), pipeline.KindModel)
	}
}

func TestClient_EmptyTimelineIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"segments":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "hf_testtoken", "cpu", 5*time.Second, zerolog.Nop())
	turns, err := c.Diarize(context.Background(), writeWav(t))
	if err != nil {
		t.Fatalf("empty diarization treated as failure: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
}
