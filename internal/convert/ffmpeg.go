package convert

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"mp3-to-mp4/internal/domain"
	"mp3-to-mp4/internal/errs"
)

// commonFFmpegPaths are probed when the binaries are not on PATH.
var commonFFmpegPaths = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	`C:\ffmpeg\bin`,
}

// progressTimeRe matches the time= field in ffmpeg stderr status lines.
var progressTimeRe = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}(?:\.\d+)?)`)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
	Stream(ctx context.Context, onLine func(line string), name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Stream executes one command and forwards stderr lines as they arrive.
// ffmpeg writes its periodic status lines to stderr, so that is the only
// stream worth tailing.
func (r *execRunner) Stream(ctx context.Context, onLine func(line string), name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return commandResult{ExitCode: -1}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return commandResult{ExitCode: -1}, fmt.Errorf("start %s: %w", name, err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderrPipe)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		line := scanner.Text()
		if onLine != nil {
			onLine(line)
		}
		tail = append(tail, line)
		if len(tail) > 40 {
			tail = tail[1:]
		}
	}

	waitErr := cmd.Wait()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   strings.Join(tail, "\n"),
		ExitCode: exitCode(waitErr),
	}
	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}

// exitCode extracts the process exit code, -1 for non-exit failures.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// scanLinesOrCR splits on \n or bare \r. ffmpeg rewrites its status line
// with carriage returns, so plain line scanning would buffer all progress
// until the process exits.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ProbeResult is the metadata ffprobe reports for an audio input.
type ProbeResult struct {
	DurationSeconds float64
	SampleRate      int
	BitRate         int
	Channels        int
	Tags            map[string]string
}

// Service converts MP3 inputs to MP4 outputs by driving ffmpeg, and
// probes input metadata via ffprobe.
type Service struct {
	ffmpegPath string
	probePath  string
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
	mkdirAll   func(path string, perm os.FileMode) error
}

// NewService locates the ffmpeg and ffprobe binaries and returns the
// production service. Availability is reported by IsAvailable; it is not
// an error here because diagnostics want to inspect the result.
func NewService() *Service {
	return &Service{
		ffmpegPath: findBinary("ffmpeg"),
		probePath:  findBinary("ffprobe"),
		runner:     &execRunner{},
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
	}
}

// findBinary resolves a tool via PATH and then common install locations.
func findBinary(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	for _, dir := range commonFFmpegPaths {
		for _, file := range []string{name, name + ".exe"} {
			full := filepath.Join(dir, file)
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				return full
			}
		}
	}
	return ""
}

// IsAvailable reports whether both ffmpeg and ffprobe were found.
func (s *Service) IsAvailable() bool {
	return s.ffmpegPath != "" && s.probePath != ""
}

// Info returns the resolved ffmpeg path and its version line.
func (s *Service) Info(ctx context.Context) (map[string]string, error) {
	if !s.IsAvailable() {
		return nil, errs.New(errs.CodeServiceUnavailable, "ffmpeg not found")
	}

	result, err := s.runner.Run(ctx, s.ffmpegPath, "-version")
	if err != nil {
		return nil, errs.Wrap(errs.CodeServiceUnavailable, "ffmpeg -version failed", err)
	}

	info := map[string]string{"path": s.ffmpegPath}
	if line, _, found := strings.Cut(result.Stdout, "\n"); found || result.Stdout != "" {
		info["version"] = strings.TrimSpace(line)
	}
	return info, nil
}

// Probe extracts duration, sample rate, bit rate, channel count, and tag
// metadata for an audio file. Files without an audio stream are rejected.
func (s *Service) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if s.probePath == "" {
		return ProbeResult{}, errs.New(errs.CodeServiceUnavailable, "ffprobe not found")
	}

	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	}
	result, err := s.runner.Run(ctx, s.probePath, args...)
	if err != nil {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = "ffprobe failed"
		}
		return ProbeResult{}, errs.Wrap(errs.CodeEmptyOrCorrupt, detail, err)
	}

	probed, err := parseProbeOutput(result.Stdout)
	if err != nil {
		return ProbeResult{}, errs.Wrap(errs.CodeEmptyOrCorrupt, "unreadable ffprobe output", err)
	}
	return probed, nil
}

// Convert runs ffmpeg to produce an MP4 with the audio track and a solid
// color synthetic video track. Progress in [0,100] is reported through
// onProgress as ffmpeg emits status lines. Safe to call concurrently for
// different jobs.
func (s *Service) Convert(ctx context.Context, audio domain.AudioFile, video domain.VideoFile, onProgress func(percent float64)) error {
	if !s.IsAvailable() {
		return errs.New(errs.CodeServiceUnavailable, "ffmpeg not found")
	}

	duration := audio.DurationSeconds
	if duration <= 0 {
		probed, err := s.Probe(ctx, audio.Path)
		if err != nil {
			return err
		}
		duration = probed.DurationSeconds
	}

	if err := s.mkdirAll(filepath.Dir(video.Path), 0o755); err != nil {
		return errs.Wrap(errs.CodePermissionDenied,
			fmt.Sprintf("cannot create output directory: %s", filepath.Dir(video.Path)), err)
	}

	args := buildConvertArgs(audio, video)
	result, err := s.runner.Stream(ctx, func(line string) {
		if onProgress == nil {
			return
		}
		if percent, ok := parseProgressLine(line, duration); ok {
			onProgress(percent)
		}
	}, s.ffmpegPath, args...)

	if err != nil {
		if ctx.Err() != nil {
			return errs.Wrap(errs.CodeCancelled, "conversion interrupted", ctx.Err())
		}
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("ffmpeg exited with code %d", result.ExitCode)
		}
		return errs.Wrap(errs.CodeConversionFailed, detail, err)
	}

	if _, err := s.stat(video.Path); err != nil {
		return errs.Wrap(errs.CodeConversionFailed, "ffmpeg completed but output file is missing", err)
	}
	return nil
}

// parseProgressLine extracts a clamped completion percentage from one
// ffmpeg status line.
func parseProgressLine(line string, totalSeconds float64) (float64, bool) {
	if totalSeconds <= 0 {
		return 0, false
	}

	matches := progressTimeRe.FindStringSubmatch(line)
	if len(matches) != 4 {
		return 0, false
	}

	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	current := float64(hours*3600+minutes*60) + seconds

	percent := current / totalSeconds * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

// buildConvertArgs constructs the ffmpeg invocation: a lavfi solid color
// source paired with the audio input, encoded as H.264 + AAC, trimmed to
// the audio length.
func buildConvertArgs(audio domain.AudioFile, video domain.VideoFile) []string {
	width := video.Width
	height := video.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	frameRate := video.FrameRate
	if frameRate <= 0 {
		frameRate = 30
	}

	colorSource := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d",
		normalizeColor(video.BackgroundColor), width, height, frameRate)

	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-f", "lavfi",
		"-i", colorSource,
		"-i", audio.Path,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		video.Path,
	}
}

// normalizeColor maps CSS-style hex colors to ffmpeg's 0x notation and
// empty input to black.
func normalizeColor(raw string) string {
	color := strings.TrimSpace(raw)
	if color == "" {
		return "black"
	}
	if strings.HasPrefix(color, "#") {
		return "0x" + strings.TrimPrefix(color, "#")
	}
	return color
}

// NewServiceForTests constructs a service with injectable dependencies.
func NewServiceForTests(
	ffmpegPath string,
	probePath string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	mkdirAll func(path string, perm os.FileMode) error,
) *Service {
	return &Service{
		ffmpegPath: ffmpegPath,
		probePath:  probePath,
		runner:     runner,
		stat:       stat,
		mkdirAll:   mkdirAll,
	}
}
