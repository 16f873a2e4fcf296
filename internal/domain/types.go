package domain

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AudioFile describes one MP3 input. Metadata fields stay zero until the
// validator enriches them from ffprobe.
type AudioFile struct {
	Path            string            `json:"path"`
	Filename        string            `json:"filename"`
	SizeBytes       int64             `json:"sizeBytes"`
	DurationSeconds float64           `json:"durationSeconds"`
	SampleRate      int               `json:"sampleRate"`
	BitRate         int               `json:"bitRate"`
	Channels        int               `json:"channels"`
	Tags            map[string]string `json:"tags,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// SizeMB returns the input size in megabytes.
func (a AudioFile) SizeMB() float64 {
	return float64(a.SizeBytes) / (1024 * 1024)
}

// IsMP3 reports whether the file carries an .mp3 extension.
func (a AudioFile) IsMP3() bool {
	return strings.EqualFold(filepath.Ext(a.Path), ".mp3")
}

// VideoFile describes the MP4 output target for one conversion.
type VideoFile struct {
	Path            string `json:"path"`
	Filename        string `json:"filename"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	FrameRate       int    `json:"frameRate"`
	BackgroundColor string `json:"backgroundColor"`
}

// Resolution returns the target size as "WxH".
func (v VideoFile) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// VideoFileFor builds the output target for an audio input using the
// configured output folder, or the input's own directory when unset.
// The output name is the input stem plus a "_video.mp4" suffix.
func VideoFileFor(audio AudioFile, settings Settings) VideoFile {
	dir := strings.TrimSpace(settings.OutputFolder)
	if dir == "" {
		dir = filepath.Dir(audio.Path)
	}

	base := filepath.Base(audio.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	filename := stem + "_video.mp4"

	width, height := settings.Dimensions()
	return VideoFile{
		Path:            filepath.Join(dir, filename),
		Filename:        filename,
		Width:           width,
		Height:          height,
		FrameRate:       settings.FrameRate,
		BackgroundColor: settings.BackgroundColor,
	}
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	OutputFolder        string `json:"outputFolder"`
	Resolution          string `json:"resolution"`
	FrameRate           int    `json:"frameRate"`
	BackgroundColor     string `json:"backgroundColor"`
	MaxConcurrent       int    `json:"maxConcurrent"`
	AutoClearOnComplete bool   `json:"autoClearOnComplete"`
	ShowNotification    bool   `json:"showNotification"`
}

// Dimensions parses the resolution string, falling back to 1280x720 when
// the stored value is malformed.
func (s Settings) Dimensions() (width, height int) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s.Resolution)), "x", 2)
	if len(parts) == 2 {
		w, wErr := strconv.Atoi(parts[0])
		h, hErr := strconv.Atoi(parts[1])
		if wErr == nil && hErr == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1280, 720
}

// Validate reports whether settings values are usable for conversion.
func (s Settings) Validate() error {
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent conversions must be at least 1, got %d", s.MaxConcurrent)
	}
	if s.FrameRate < 1 {
		return fmt.Errorf("frame rate must be at least 1, got %d", s.FrameRate)
	}
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s.Resolution)), "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("resolution must look like 1280x720, got %q", s.Resolution)
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return fmt.Errorf("resolution must look like 1280x720, got %q", s.Resolution)
		}
	}
	return nil
}
