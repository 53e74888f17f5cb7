package verify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"spool/internal/language"
	"spool/internal/logging"
	"spool/internal/media/ffprobe"
)

// remux produces a stream-copy of path holding only the video track and
// the first audio track matching a desired language. Language tags are
// checked first, then stream titles ("Deutsch", "German Dub"), which
// catches tracks the strict tag gate missed. The copy lands next to the
// input with a language-suffixed name ("episode.de.mkv") and is written
// through a temp file so a failed copy never leaves a partial output
// behind. Returns the output path and whether a copy was produced.
func (v *Verifier) remux(ctx context.Context, path string, probe ffprobe.Result, desired []string) (string, bool) {
	indices := probe.AudioIndicesByLanguage(desired...)
	if len(indices) == 0 {
		indices = audioIndicesByTitle(probe, desired)
	}
	if len(indices) == 0 {
		return "", false
	}

	out := remuxOutputPath(path, desired)
	temp := out + ".tmp"
	_ = os.Remove(temp)

	args := []string{
		"-v", "error",
		"-i", path,
		"-map", "0:v:0",
		"-map", fmt.Sprintf("0:%d", indices[0]),
		"-c", "copy",
		temp,
		"-y",
	}
	if err := v.runFFmpeg(ctx, args); err != nil {
		v.logger.Warn("remux failed", logging.String("path", path), logging.Error(err))
		_ = os.Remove(temp)
		return "", false
	}
	if err := os.Rename(temp, out); err != nil {
		v.logger.Warn("remux finalize failed", logging.String("path", out), logging.Error(err))
		_ = os.Remove(temp)
		return "", false
	}
	return out, true
}

func (v *Verifier) runFFmpeg(ctx context.Context, args []string) error {
	if v.commandRunner != nil {
		return v.commandRunner(ctx, v.ffmpegBinary, args...)
	}
	cmd := exec.CommandContext(ctx, v.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg remux: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// audioIndicesByTitle finds audio tracks whose title label classifies to a
// desired language. Containers from scrape sources often label tracks only
// through titles.
func audioIndicesByTitle(probe ffprobe.Result, desired []string) []int {
	bases := make(map[string]struct{}, len(desired))
	for _, lang := range desired {
		if base := language.Base(language.ToISO2(lang)); base != "" {
			bases[base] = struct{}{}
		}
	}
	if len(bases) == 0 {
		return nil
	}
	var indices []int
	for _, stream := range probe.AudioStreams() {
		title := stream.Tags["title"]
		if title == "" {
			continue
		}
		audio, dub := language.GuessAudioAndDub(title)
		if _, ok := bases[language.Base(audio)]; ok {
			indices = append(indices, stream.Index)
			continue
		}
		if _, ok := bases[language.Base(dub)]; ok {
			indices = append(indices, stream.Index)
		}
	}
	return indices
}

// remuxOutputPath swaps the input extension for "<lang>.mkv", so
// "episode.mp4" becomes "episode.de.mkv".
func remuxOutputPath(path string, desired []string) string {
	suffix := "und"
	if len(desired) > 0 {
		if code := language.Base(language.ToISO2(desired[0])); code != "" {
			suffix = code
		}
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "." + suffix + ".mkv"
}
