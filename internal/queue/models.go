package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusExtracting  Status = "extracting"
	StatusExtracted   Status = "extracted"
	StatusDownloading Status = "downloading"
	StatusDownloaded  Status = "downloaded"
	StatusOrganizing  Status = "organizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
)

// UserStopReason is the review reason set when a user explicitly stops an item.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusExtracting,
	StatusExtracted,
	StatusDownloading,
	StatusDownloaded,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusExtracting:  {},
	StatusDownloading: {},
	StatusOrganizing:  {},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents one episode persisted in SQLite.
type Item struct {
	ID              int64
	BatchID         string
	Series          string
	Season          int
	Episode         int
	Title           string
	// Context carries topical keywords from the catalog seed ("anime"),
	// consumed by the classifier's original-language inference.
	Context         string
	AirDate         time.Time
	SourceURL       string
	MirrorsJSON     string
	PlanJSON        string
	Status          Status
	ThrottleGroup   int
	StagedFile      string
	FinalFile       string
	AudioLang       string
	DubLang         string
	SubtitleLangs   string
	VerifyReason    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// EpisodeCode formats the season/episode pair as SxxEyy.
func (i Item) EpisodeCode() string {
	return fmt.Sprintf("S%02dE%02d", i.Season, i.Episode)
}

// Mirrors decodes the seed mirror list.
func (i Item) Mirrors() []string {
	if strings.TrimSpace(i.MirrorsJSON) == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(i.MirrorsJSON), &urls); err != nil {
		return nil
	}
	return urls
}

// SetMirrors replaces the seed mirror list.
func (i *Item) SetMirrors(urls []string) {
	if len(urls) == 0 {
		i.MirrorsJSON = ""
		return
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return
	}
	i.MirrorsJSON = string(data)
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
// ProgressMessage is set to message, ProgressPercent is reset to 0,
// and ErrorMessage is cleared.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
// Use this instead of setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
// Convenience method for stage completion.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetReview routes the item to manual review with the given reason.
// Clears heartbeat; the reason doubles as the progress message so list
// output explains why the item stopped.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.NeedsReview = true
	i.ReviewReason = reason
	i.ProgressStage = "Review"
	i.ProgressMessage = reason
	i.LastHeartbeat = nil
}

// IsInWorkflow returns true when an item is actively progressing (or queued to
// progress) through stages and a duplicate submission of the same source
// should be skipped rather than re-queued.
func (i Item) IsInWorkflow() bool {
	if i.IsProcessing() {
		return true
	}
	switch i.Status {
	case StatusPending,
		StatusExtracted,
		StatusDownloaded,
		StatusCompleted:
		return true
	default:
		return false
	}
}

// StageKey returns the normalized stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "planned"
	case StatusCompleted:
		return "final"
	case StatusExtracting,
		StatusExtracted,
		StatusDownloading,
		StatusDownloaded,
		StatusOrganizing,
		StatusFailed,
		StatusReview:
		return string(s)
	default:
		return ""
	}
}

// ProcessingLane partitions workflow into candidate resolution and transfer work.
type ProcessingLane string

const (
	LaneExtract  ProcessingLane = "extract"
	LaneTransfer ProcessingLane = "transfer"
)

// LaneForItem maps a queue item to its processing lane for observability
// purposes. Terminal items are attributed by how far they got: a resolved
// download plan means the transfer lane owned them.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneExtract
	}
	switch item.Status {
	case StatusPending, StatusExtracting:
		return LaneExtract
	case StatusFailed, StatusReview:
		if strings.TrimSpace(item.PlanJSON) != "" {
			return LaneTransfer
		}
		return LaneExtract
	default:
		return LaneTransfer
	}
}
