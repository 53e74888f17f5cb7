package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const inspectTimeout = 5 * time.Minute

// MediaInfo is the subset of a yt-dlp JSON dump consumed by candidate
// resolution.
type MediaInfo struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Extractor       string        `json:"extractor_key"`
	WebpageURL      string        `json:"webpage_url"`
	DurationSeconds float64       `json:"duration"`
	Language        string        `json:"language"`
	Formats         []MediaFormat `json:"formats"`
}

// MediaFormat is one playable rendition reported by yt-dlp.
type MediaFormat struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	Protocol   string  `json:"protocol"`
	URL        string  `json:"url"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Language   string  `json:"language"`
	FormatNote string  `json:"format_note"`
	Filesize   int64   `json:"filesize"`
	TBR        float64 `json:"tbr"`
}

// QualityLabel renders the rendition height as a ladder label ("1080p").
// Falls back to the format note, which some extractors use for the same
// purpose.
func (f MediaFormat) QualityLabel() string {
	if f.Height > 0 {
		return strconv.Itoa(f.Height) + "p"
	}
	return strings.TrimSpace(f.FormatNote)
}

// Inspect runs a no-download JSON dump against rawURL. An unsupported URL
// surfaces as ErrUnsupportedURL so the caller can demote it to a direct
// mirror candidate.
func (f *Fetcher) Inspect(ctx context.Context, rawURL string) (*MediaInfo, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("url required")
	}

	ctx, cancel := context.WithTimeout(ctx, inspectTimeout)
	defer cancel()

	args := make([]string, 0, 8)
	args = append(args, "-J", "--no-download", "--no-warnings", "--no-playlist")
	if file := f.cookieFile(rawURL); file != "" {
		args = append(args, "--cookies", file)
	}
	args = append(args, rawURL)

	var tail outputTail
	var payload string
	err := f.exec.Run(ctx, f.cfg.Binary, args, func(line string) {
		tail.add(line)
		if strings.HasPrefix(strings.TrimSpace(line), "{") {
			payload = line
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classifyRunError(err, tail.lines())
	}
	if payload == "" {
		return nil, fmt.Errorf("%s returned no json payload", f.cfg.Binary)
	}

	var info MediaInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, fmt.Errorf("parse %s json: %w", f.cfg.Binary, err)
	}
	return &info, nil
}
