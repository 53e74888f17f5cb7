package speechid

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// buildExtractArgs constructs the ffmpeg arguments for pulling a sample of
// the first audio stream as a mono 16 kHz WAV file.
func buildExtractArgs(source string, startSec float64, durationSec int, dest string) []string {
	return []string{
		"-v", "error",
		"-ss", fmt.Sprintf("%.2f", startSec),
		"-t", strconv.Itoa(durationSec),
		"-i", source,
		"-map", "a:0",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		dest,
		"-y",
	}
}

// ExtractSample extracts a time-range sample of the first audio stream.
// startSec is the start offset in seconds, durationSec the sample length.
func ExtractSample(ctx context.Context, ffmpegBinary, source string, startSec float64, durationSec int, dest string) error {
	if durationSec <= 0 {
		return fmt.Errorf("extract sample: invalid duration %d", durationSec)
	}
	args := buildExtractArgs(source, startSec, durationSec, dest)
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract sample: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
