package download

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
)

// Executor abstracts yt-dlp invocation for testability. Stdout and stderr
// are merged and delivered line by line.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// maxOutputLine accommodates -J dumps, which arrive as a single JSON line.
const maxOutputLine = 16 << 20

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxOutputLine)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("read %s output: %w", binary, scanErr)
	}
	return cmd.Wait()
}
