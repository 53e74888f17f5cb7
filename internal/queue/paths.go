package queue

import (
	"fmt"
	"path/filepath"
	"strings"

	"spool/internal/textutil"
)

// StagingRoot returns the per-episode staging directory rooted at base.
// Series plus episode code keeps re-submissions of the same episode in the
// same directory; items without a series fall back to episode-{ID} to avoid
// collisions.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	segment := strings.TrimSpace(i.Series)
	if segment != "" {
		segment = segment + "-" + i.EpisodeCode()
	} else {
		segment = fmt.Sprintf("episode-%d", i.ID)
	}
	if segment = textutil.SanitizePathSegment(segment); segment == "" {
		segment = "episode"
	}
	return filepath.Join(base, segment)
}
