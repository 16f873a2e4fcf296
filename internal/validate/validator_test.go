package validate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mp3-to-mp4/internal/convert"
	"mp3-to-mp4/internal/errs"
)

// fakeProber simulates ffprobe metadata extraction.
type fakeProber struct {
	probe func(ctx context.Context, path string) (convert.ProbeResult, error)
}

// Probe delegates to injected behavior.
func (f *fakeProber) Probe(ctx context.Context, path string) (convert.ProbeResult, error) {
	if f.probe == nil {
		return convert.ProbeResult{DurationSeconds: 60, SampleRate: 44100, Channels: 2}, nil
	}
	return f.probe(ctx, path)
}

// mustWriteFile creates parent directory and writes file content.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// wantCode asserts the error carries the expected taxonomy code.
func wantCode(t *testing.T, err error, code errs.Code) {
	t.Helper()
	var coded *errs.Error
	if !errors.As(err, &coded) {
		t.Fatalf("error type = %T, want *errs.Error", err)
	}
	if coded.Code != code {
		t.Fatalf("code = %s, want %s", coded.Code, code)
	}
}

// TestValidateSuccessEnrichesMetadata checks the happy path produces a
// descriptor with probed metadata.
func TestValidateSuccessEnrichesMetadata(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "track.mp3")
	mustWriteFile(t, path, "mp3 payload")

	prober := &fakeProber{
		probe: func(ctx context.Context, probed string) (convert.ProbeResult, error) {
			if probed != path {
				t.Fatalf("probed path = %q, want %q", probed, path)
			}
			return convert.ProbeResult{
				DurationSeconds: 245.8,
				SampleRate:      44100,
				BitRate:         192000,
				Channels:        2,
				Tags:            map[string]string{"title": "Night Drive"},
			}, nil
		},
	}

	audio, err := NewValidator(prober).Validate(context.Background(), path)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if audio.Path != path || audio.Filename != "track.mp3" {
		t.Fatalf("descriptor paths = %q / %q", audio.Path, audio.Filename)
	}
	if audio.SizeBytes != int64(len("mp3 payload")) {
		t.Fatalf("size = %d", audio.SizeBytes)
	}
	if audio.DurationSeconds != 245.8 || audio.SampleRate != 44100 || audio.Channels != 2 {
		t.Fatalf("metadata = %+v", audio)
	}
	if audio.Tags["title"] != "Night Drive" {
		t.Fatalf("tags = %v", audio.Tags)
	}
}

// TestValidateMissingFile maps a non-existent path to the not-found code.
func TestValidateMissingFile(t *testing.T) {
	_, err := NewValidator(&fakeProber{}).Validate(context.Background(),
		filepath.Join(t.TempDir(), "missing.mp3"))
	wantCode(t, err, errs.CodeFileNotFound)
}

// TestValidateRejectsDirectory checks directories are not regular files.
func TestValidateRejectsDirectory(t *testing.T) {
	_, err := NewValidator(&fakeProber{}).Validate(context.Background(), t.TempDir())
	wantCode(t, err, errs.CodeInvalidFormat)
}

// TestValidateRejectsWrongExtension checks the extension gate, case
// insensitively.
func TestValidateRejectsWrongExtension(t *testing.T) {
	root := t.TempDir()
	wav := filepath.Join(root, "track.wav")
	mustWriteFile(t, wav, "audio")

	_, err := NewValidator(&fakeProber{}).Validate(context.Background(), wav)
	wantCode(t, err, errs.CodeInvalidFormat)

	upper := filepath.Join(root, "track.MP3")
	mustWriteFile(t, upper, "audio")
	if _, err := NewValidator(&fakeProber{}).Validate(context.Background(), upper); err != nil {
		t.Fatalf("uppercase extension should pass: %v", err)
	}
}

// TestValidateRejectsEmptyFile checks zero-byte inputs.
func TestValidateRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp3")
	mustWriteFile(t, path, "")

	_, err := NewValidator(&fakeProber{}).Validate(context.Background(), path)
	wantCode(t, err, errs.CodeEmptyOrCorrupt)
}

// TestValidateRejectsOversizedFile checks the size cap via an injected
// stat, without materializing a gigabyte on disk.
func TestValidateRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.mp3")
	mustWriteFile(t, path, "x")

	validator := NewValidatorForTests(&fakeProber{},
		func(name string) (os.FileInfo, error) {
			info, err := os.Stat(name)
			if err != nil {
				return nil, err
			}
			return oversizedInfo{info}, nil
		},
		os.Open,
	)

	_, err := validator.Validate(context.Background(), path)
	wantCode(t, err, errs.CodeTooLarge)
}

// oversizedInfo reports a size just over the cap.
type oversizedInfo struct {
	os.FileInfo
}

func (o oversizedInfo) Size() int64 {
	return maxInputSizeBytes + 1
}

// TestValidatePropagatesProbeError checks probe failures pass through
// with their own code.
func TestValidatePropagatesProbeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mp3")
	mustWriteFile(t, path, "not really mp3")

	prober := &fakeProber{
		probe: func(ctx context.Context, probed string) (convert.ProbeResult, error) {
			return convert.ProbeResult{}, errs.New(errs.CodeEmptyOrCorrupt, "no audio stream found")
		},
	}

	_, err := NewValidator(prober).Validate(context.Background(), path)
	wantCode(t, err, errs.CodeEmptyOrCorrupt)
}

// TestQuickFilterPartitionsPaths checks the synchronous pre-check sorts
// candidates from rejections with user-facing messages.
func TestQuickFilterPartitionsPaths(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.mp3")
	mustWriteFile(t, good, "audio")
	wrongExt := filepath.Join(root, "notes.txt")
	mustWriteFile(t, wrongExt, "text")
	empty := filepath.Join(root, "empty.mp3")
	mustWriteFile(t, empty, "")
	missing := filepath.Join(root, "missing.mp3")

	valid, failures := NewValidator(&fakeProber{}).QuickFilter(
		[]string{good, wrongExt, empty, missing, root})

	if len(valid) != 1 || valid[0] != good {
		t.Fatalf("valid = %v, want only %q", valid, good)
	}
	if len(failures) != 4 {
		t.Fatalf("failures = %d, want 4", len(failures))
	}
	for _, failure := range failures {
		if failure.Path == "" || failure.Message == "" {
			t.Fatalf("failure missing fields: %+v", failure)
		}
	}
}
