package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mp3-to-mp4/internal/domain"
)

// Checker validates external tools and configured paths at startup and
// after settings changes.
type Checker struct {
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg"),
		c.checkTool("ffprobe"),
		c.checkOutputFolder(settings.OutputFolder),
		c.checkSettings(settings),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a required CLI executable is on PATH.
func (c *Checker) checkTool(name string) domain.DiagnosticItem {
	path, err := c.lookPath(name)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found in PATH: %s", name),
			Hint:    "Install FFmpeg and ensure the binary is available on PATH before starting a conversion.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkOutputFolder validates output directory existence and write access.
// An empty folder means "next to each input file" and passes with a note.
func (c *Checker) checkOutputFolder(outputFolder string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_folder",
		Name: "Output folder",
	}

	folder := strings.TrimSpace(outputFolder)
	if folder == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Output next to each input file."
		return item
	}

	if err := c.mkdirAll(folder, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output folder: %s", folder)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(folder, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output folder is not writable: %s", folder)
		item.Hint = "Choose a writable folder for converted videos."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable folder: %s", folder)
	return item
}

// checkSettings validates conversion parameters without touching the OS.
func (c *Checker) checkSettings(settings domain.Settings) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "conversion_settings",
		Name: "Conversion settings",
	}

	if err := settings.Validate(); err != nil {
		item.Status = domain.DiagnosticStatusWarn
		item.Message = fmt.Sprintf("Settings need attention: %v", err)
		item.Hint = "Open settings and correct the highlighted values."
		return item
	}

	width, height := settings.Dimensions()
	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("%dx%d @ %d fps, up to %d parallel conversions",
		width, height, settings.FrameRate, settings.MaxConcurrent)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
