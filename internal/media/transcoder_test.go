package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

func writeAudio(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCacheKey_ContentDetermined(t *testing.T) {
	dir := t.TempDir()
	tr := NewTranscoder(zerolog.Nop())

	a := writeAudio(t, dir, "monday.mp3", []byte("same bytes"))
	b := writeAudio(t, dir, "tuesday.mp3", []byte("same bytes"))
	c := writeAudio(t, dir, "monday-copy.mp3", []byte("different bytes"))

	keyA, err := tr.cacheKey(a)
	if err != nil {
		t.Fatal(err)
	}
	keyB, err := tr.cacheKey(b)
	if err != nil {
		t.Fatal(err)
	}
	keyC, err := tr.cacheKey(c)
	if err != nil {
		t.Fatal(err)
	}

	if keyA != keyB {
		t.Errorf("identical content produced different keys: %q vs %q", keyA, keyB)
	}
	if keyA == keyC {
		t.Error("different content produced the same key")
	}
	if len(keyA) != 16 {
		t.Errorf("key length = %d, want 16", len(keyA))
	}
}

func TestConvert_CacheHitSkipsFFmpeg(t *testing.T) {
	dir := t.TempDir()
	workDir := t.TempDir()

	// ffmpeg path is deliberately bogus: a cache hit must never invoke it.
	tr := &Transcoder{ffmpeg: "/nonexistent/ffmpeg", log: zerolog.Nop()}
	source := writeAudio(t, dir, "meeting.mp3", []byte("mp3 bytes"))

	key, err := tr.cacheKey(source)
	if err != nil {
		t.Fatal(err)
	}
	derived := filepath.Join(workDir, key+".wav")
	if err := os.WriteFile(derived, []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := tr.Convert(context.Background(), source, workDir)
	if err != nil {
		t.Fatalf("cache hit still ran ffmpeg: %v", err)
	}
	if asset.Path != derived {
		t.Errorf("asset path = %q, want %q", asset.Path, derived)
	}
	if asset.SampleRate != 16000 || asset.Channels != 1 || asset.BitDepth != 16 {
		t.Errorf("asset format = %d/%d/%d, want 16000/1/16", asset.SampleRate, asset.Channels, asset.BitDepth)
	}
	if !asset.Temporary {
		t.Error("derived asset must be marked temporary")
	}
}

func TestConvert_FFmpegFailureIsConversionError(t *testing.T) {
	dir := t.TempDir()
	tr := &Transcoder{ffmpeg: "/nonexistent/ffmpeg", log: zerolog.Nop()}
	source := writeAudio(t, dir, "meeting.mp3", []byte("mp3 bytes"))

	_, err := tr.Convert(context.Background(), source, t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if pipeline.KindOf(err) != pipeline.KindConversion {
		t.Errorf("kind = %q, want %q", pipeline.KindOf(err), pipeline.KindConversion)
	}
}

func TestConvert_MissingSourceIsConversionError(t *testing.T) {
	tr := NewTranscoder(zerolog.Nop())
	_, err := tr.Convert(context.Background(), "/nonexistent/audio.mp3", t.TempDir())
	if pipeline.KindOf(err) != pipeline.KindConversion {
		t.Errorf("kind = %q, want %q (err: %v)", pipeline.KindOf(err), pipeline.KindConversion, err)
	}
}

func TestLastLines(t *testing.T) {
	in := "line1\nline2\n\nline3\nline4\nline5\nline6\n"
	got := lastLines(in, 5)
	want := "line2; line3; line4; line5; line6"
	if got != want {
		t.Errorf("lastLines = %q, want %q", got, want)
	}

	if got := lastLines("only one\n", 5); got != "only one" {
		t.Errorf("lastLines short input = %q", got)
	}
}
