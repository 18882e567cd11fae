package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// Canonical target format required by the recognition stage.
const (
	targetSampleRate = 16000
	targetChannels   = 1
	targetBitDepth   = 16
	targetCodec      = "pcm_s16le"
)

// ffmpegAvailable caches whether ffmpeg is in PATH (checked once at startup).
var ffmpegAvailable *bool

// CheckFFmpeg checks if ffmpeg is available in PATH. Call once at startup.
func CheckFFmpeg() bool {
	if ffmpegAvailable != nil {
		return *ffmpegAvailable
	}
	_, err := exec.LookPath("ffmpeg")
	avail := err == nil
	ffmpegAvailable = &avail
	return avail
}

// Transcoder normalizes arbitrary input audio to canonical mono/16kHz/16-bit
// PCM WAV via ffmpeg.
//
// The derived file is keyed by a content hash of the source bytes plus the
// target format parameters. An existing derivative with a matching key is a
// cache hit and conversion is skipped; filenames never participate in the
// key, so same-named sources with different content cannot alias.
type Transcoder struct {
	ffmpeg string
	log    zerolog.Logger
}

// NewTranscoder creates an ffmpeg-backed transcoder.
func NewTranscoder(log zerolog.Logger) *Transcoder {
	return &Transcoder{ffmpeg: "ffmpeg", log: log.With().Str("component", "transcoder").Logger()}
}

// Convert normalizes sourcePath into workDir and returns the derived asset.
// The derivative is marked temporary; the caller owns its cleanup.
func (t *Transcoder) Convert(ctx context.Context, sourcePath, workDir string) (pipeline.AudioAsset, error) {
	key, err := t.cacheKey(sourcePath)
	if err != nil {
		return pipeline.AudioAsset{}, pipeline.NewError(pipeline.KindConversion, "read source audio", err)
	}
	outPath := filepath.Join(workDir, key+".wav")

	asset := pipeline.AudioAsset{
		Path:       outPath,
		SampleRate: targetSampleRate,
		Channels:   targetChannels,
		BitDepth:   targetBitDepth,
		Temporary:  true,
	}

	if _, err := os.Stat(outPath); err == nil {
		t.log.Debug().Str("path", outPath).Msg("derived audio already present, skipping conversion")
		return asset, nil
	}

	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-i", sourcePath,
		"-ar", fmt.Sprint(targetSampleRate),
		"-ac", fmt.Sprint(targetChannels),
		"-c:a", targetCodec,
		"-y",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		diag := lastLines(stderr.String(), 5)
		return pipeline.AudioAsset{}, pipeline.NewError(pipeline.KindConversion,
			fmt.Sprintf("ffmpeg conversion failed: %s", diag), err)
	}

	t.log.Debug().Str("source", filepath.Base(sourcePath)).Str("path", outPath).Msg("audio converted")
	return asset, nil
}

// cacheKey hashes the source bytes together with the target format so a
// format change invalidates previously derived files.
func (t *Transcoder) cacheKey(sourcePath string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%d:%d:%s", targetSampleRate, targetChannels, targetCodec)
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// lastLines returns the final n non-empty lines of s, the most useful part
// of ffmpeg's stderr.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var keep []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			keep = append(keep, strings.TrimSpace(l))
		}
	}
	if len(keep) > n {
		keep = keep[len(keep)-n:]
	}
	return strings.Join(keep, "; ")
}
