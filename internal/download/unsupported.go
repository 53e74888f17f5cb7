package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// UnsupportedLogFilename is the file created under the log directory.
const UnsupportedLogFilename = "unsupported_urls.txt"

// UnsupportedLog records URLs the transfer tool has no extractor for,
// de-duplicated by registrable domain. The file is append-only and the
// dedup set survives restarts by reloading it.
type UnsupportedLog struct {
	path string

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewUnsupportedLog opens (or creates) the log under dir.
func NewUnsupportedLog(dir string) (*UnsupportedLog, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("log directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	l := &UnsupportedLog{
		path: filepath.Join(dir, UnsupportedLogFilename),
		seen: make(map[string]struct{}),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the backing file location.
func (l *UnsupportedLog) Path() string {
	return l.path
}

// Record notes rawURL's domain. It reports whether the domain was new.
func (l *UnsupportedLog) Record(rawURL string) (bool, error) {
	domain := RegistrableDomain(rawURL)
	if domain == "" {
		// Unparseable input still deserves exactly one entry.
		domain = rawURL
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[domain]; ok {
		return false, nil
	}
	l.seen[domain] = struct{}{}

	line := time.Now().UTC().Format(time.RFC3339) + "\t" + domain + "\t" + rawURL + "\n"
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return true, fmt.Errorf("append unsupported log: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(line); err != nil {
		return true, fmt.Errorf("append unsupported log: %w", err)
	}
	return true, nil
}

func (l *UnsupportedLog) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read unsupported log: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) >= 2 && fields[1] != "" {
			l.seen[fields[1]] = struct{}{}
		}
	}
	return nil
}
