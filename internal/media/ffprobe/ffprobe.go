package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"spool/internal/language"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	CodecTag   string            `json:"codec_tag_string"`
	Duration   string            `json:"duration"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Tags       map[string]string `json:"tags"`
}

// Language returns the normalized language tag carried by the stream, or
// empty when the container does not label it.
func (s Stream) Language() string {
	return language.ExtractFromTags(s.Tags)
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return len(r.streamsOfType("video"))
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	return r.streamsOfType("audio")
}

// SubtitleStreams returns the subtitle streams in container order.
func (r Result) SubtitleStreams() []Stream {
	return r.streamsOfType("subtitle")
}

func (r Result) streamsOfType(kind string) []Stream {
	var matched []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			matched = append(matched, stream)
		}
	}
	return matched
}

// AudioIndicesByLanguage returns the container stream indices of audio
// streams tagged with any of the given languages. Each language expands to
// all code forms a container may carry, so "de" also matches "deu" and
// "ger" tags. Regional tags like "de-DE" match their base language.
func (r Result) AudioIndicesByLanguage(langs ...string) []int {
	desired := tagSet(langs)
	if len(desired) == 0 {
		return nil
	}
	var indices []int
	for _, stream := range r.AudioStreams() {
		if _, ok := desired[language.Base(stream.Language())]; ok {
			indices = append(indices, stream.Index)
		}
	}
	return indices
}

// HasSubtitleInLanguage reports whether any subtitle stream is tagged with
// one of the given languages.
func (r Result) HasSubtitleInLanguage(langs ...string) bool {
	desired := tagSet(langs)
	if len(desired) == 0 {
		return false
	}
	for _, stream := range r.SubtitleStreams() {
		if _, ok := desired[language.Base(stream.Language())]; ok {
			return true
		}
	}
	return false
}

func tagSet(langs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(langs)*3)
	for _, lang := range langs {
		for _, tag := range language.Tags(lang) {
			set[tag] = struct{}{}
		}
	}
	return set
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	duration := parseFloat(r.Format.Duration)
	if math.IsNaN(duration) || duration < 0 {
		return 0
	}
	return duration
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
