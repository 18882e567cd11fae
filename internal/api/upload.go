package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// allowedExtensions are the upload formats the transcoder is known to
// normalize. Checked case-insensitively.
var allowedExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
	".ogg": true,
}

// RunProcessor runs the full pipeline for one saved recording.
type RunProcessor interface {
	Process(ctx context.Context, sourcePath, displayName string) (*pipeline.Result, error)
}

// UploadHandler accepts one audio file per request and answers with the
// speaker-attributed transcript and summary.
type UploadHandler struct {
	runner    RunProcessor
	uploadDir string
	maxBytes  int64
	log       zerolog.Logger
}

// NewUploadHandler creates the upload handler. Uploads are spooled into
// uploadDir under a request-unique name; the pipeline deletes them when the
// run finishes.
func NewUploadHandler(runner RunProcessor, uploadDir string, maxBytes int64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		runner:    runner,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		log:       log.With().Str("handler", "upload").Logger(),
	}
}

// uploadResponse is the success payload.
type uploadResponse struct {
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// Upload handles POST /. Validation failures answer 400 before any pipeline
// stage is invoked; pipeline failures answer 500 with an error payload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteError(w, http.StatusBadRequest, "No selected file")
		return
	}

	name := filepath.Base(header.Filename) // basic sanitization
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		WriteError(w, http.StatusBadRequest, "File type not allowed: "+ext)
		return
	}

	savedPath, err := h.saveUpload(file, ext)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to save upload")
		WriteError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	result, err := h.runner.Process(r.Context(), savedPath, name)
	if err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("pipeline failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, uploadResponse{
		Transcript: result.Transcript,
		Summary:    result.Summary.Text,
	})
}

// saveUpload spools the request body to a request-unique file so concurrent
// uploads of same-named recordings never collide.
func (h *UploadHandler) saveUpload(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(h.uploadDir, "upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// indexPage is the minimal upload form served at GET /.
const indexPage = `<!doctype html>
<html>
<head><title>meetscribe</title></head>
<body>
  <h1>meetscribe</h1>
  <p>Upload a recording (wav, mp3, m4a, ogg) to get a speaker-attributed transcript and summary.</p>
  <form method="post" enctype="multipart/form-data">
    <input type="file" name="file" accept=".wav,.mp3,.m4a,.ogg">
    <button type="submit">Transcribe</button>
  </form>
</body>
</html>
`

// Index serves the upload form.
func (h *UploadHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexPage)
}
