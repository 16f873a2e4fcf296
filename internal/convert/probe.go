package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// probeFormat mirrors the format section of ffprobe JSON output.
type probeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

// probeStream mirrors one entry of the streams section.
type probeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// probeOutput is the top-level ffprobe JSON document.
type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// parseProbeOutput decodes ffprobe JSON and extracts audio metadata.
// Inputs without an audio stream are rejected.
func parseProbeOutput(raw string) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return ProbeResult{}, fmt.Errorf("decode ffprobe json: %w", err)
	}

	var audio *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "audio" {
			audio = &out.Streams[i]
			break
		}
	}
	if audio == nil {
		return ProbeResult{}, fmt.Errorf("no audio stream found")
	}

	result := ProbeResult{
		Channels: audio.Channels,
		Tags:     normalizeTags(out.Format.Tags),
	}
	if duration, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		result.DurationSeconds = duration
	}
	if bitRate, err := strconv.Atoi(out.Format.BitRate); err == nil {
		result.BitRate = bitRate
	}
	if sampleRate, err := strconv.Atoi(audio.SampleRate); err == nil {
		result.SampleRate = sampleRate
	}
	return result, nil
}

// normalizeTags lowercases tag keys so lookups like "title" and "artist"
// do not depend on the container's casing.
func normalizeTags(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	tags := make(map[string]string, len(raw))
	for key, value := range raw {
		tags[strings.ToLower(strings.TrimSpace(key))] = value
	}
	return tags
}
