package validate

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mp3-to-mp4/internal/convert"
	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
)

// maxInputSizeBytes is the hard cap on accepted MP3 files.
const maxInputSizeBytes = 1 << 30 // 1 GB

// Prober extracts audio metadata for a candidate input file.
type Prober interface {
	Probe(ctx context.Context, path string) (convert.ProbeResult, error)
}

// Validator inspects candidate MP3 files and produces enriched input
// descriptors. Safe for concurrent use across different paths.
type Validator struct {
	prober Prober
	stat   func(name string) (os.FileInfo, error)
	open   func(name string) (*os.File, error)
}

// NewValidator builds a validator over a metadata prober.
func NewValidator(prober Prober) *Validator {
	return &Validator{
		prober: prober,
		stat:   os.Stat,
		open:   os.Open,
	}
}

// Validate runs the full check sequence on one file and returns the
// enriched descriptor: cheap filesystem checks first, then ffprobe
// metadata extraction.
func (v *Validator) Validate(ctx context.Context, path string) (domain.AudioFile, error) {
	info, err := v.stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.AudioFile{}, errs.Wrap(errs.CodeFileNotFound, "file not found: "+path, err)
		}
		if errors.Is(err, fs.ErrPermission) {
			return domain.AudioFile{}, errs.Wrap(errs.CodePermissionDenied, "cannot access file: "+path, err)
		}
		return domain.AudioFile{}, errs.Wrap(errs.CodeUnexpected, "stat failed: "+path, err)
	}

	if info.IsDir() || !info.Mode().IsRegular() {
		return domain.AudioFile{}, errs.New(errs.CodeInvalidFormat, "not a regular file: "+path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return domain.AudioFile{}, errs.New(errs.CodeInvalidFormat, "not an MP3 file: "+filepath.Base(path))
	}
	if info.Size() == 0 {
		return domain.AudioFile{}, errs.New(errs.CodeEmptyOrCorrupt, "file is empty: "+filepath.Base(path))
	}
	if info.Size() > maxInputSizeBytes {
		return domain.AudioFile{}, errs.New(errs.CodeTooLarge, "file exceeds 1 GB: "+filepath.Base(path))
	}

	file, err := v.open(path)
	if err != nil {
		return domain.AudioFile{}, errs.Wrap(errs.CodePermissionDenied, "cannot read file: "+filepath.Base(path), err)
	}
	_ = file.Close()

	probed, err := v.prober.Probe(ctx, path)
	if err != nil {
		return domain.AudioFile{}, err
	}

	return domain.AudioFile{
		Path:            path,
		Filename:        filepath.Base(path),
		SizeBytes:       info.Size(),
		DurationSeconds: probed.DurationSeconds,
		SampleRate:      probed.SampleRate,
		BitRate:         probed.BitRate,
		Channels:        probed.Channels,
		Tags:            probed.Tags,
		CreatedAt:       time.Now(),
	}, nil
}

// PathError pairs a rejected path with its user-facing reason.
type PathError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// QuickFilter synchronously partitions paths into candidates worth deep
// validation and immediate rejections. Pure filesystem checks only, no
// metadata extraction.
func (v *Validator) QuickFilter(paths []string) (valid []string, failures []PathError) {
	for _, path := range paths {
		info, err := v.stat(path)
		switch {
		case err != nil:
			failures = append(failures, PathError{Path: path, Message: errs.UserMessage(
				errs.Wrap(errs.CodeFileNotFound, "file not found", err))})
		case info.IsDir() || !info.Mode().IsRegular():
			failures = append(failures, PathError{Path: path, Message: errs.UserMessage(
				errs.New(errs.CodeInvalidFormat, "not a regular file"))})
		case !strings.EqualFold(filepath.Ext(path), ".mp3"):
			failures = append(failures, PathError{Path: path, Message: errs.UserMessage(
				errs.New(errs.CodeInvalidFormat, "not an MP3 file"))})
		case info.Size() == 0:
			failures = append(failures, PathError{Path: path, Message: errs.UserMessage(
				errs.New(errs.CodeEmptyOrCorrupt, "file is empty"))})
		case info.Size() > maxInputSizeBytes:
			failures = append(failures, PathError{Path: path, Message: errs.UserMessage(
				errs.New(errs.CodeTooLarge, "file exceeds 1 GB"))})
		default:
			valid = append(valid, path)
		}
	}
	return valid, failures
}

// NewValidatorForTests constructs a validator with injectable dependencies.
func NewValidatorForTests(
	prober Prober,
	stat func(name string) (os.FileInfo, error),
	open func(name string) (*os.File, error),
) *Validator {
	return &Validator{prober: prober, stat: stat, open: open}
}
