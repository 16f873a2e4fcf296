package config

import "mp3-to-mp4/internal/domain"

// DefaultSettings returns baseline configuration for first launch.
// An empty output folder means "next to the input file".
func DefaultSettings() domain.Settings {
	return domain.Settings{
		OutputFolder:        "",
		Resolution:          "1280x720",
		FrameRate:           30,
		BackgroundColor:     "#000000",
		MaxConcurrent:       2,
		AutoClearOnComplete: false,
		ShowNotification:    true,
	}
}
