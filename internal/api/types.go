package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64         `json:"id"`
	BatchID        string        `json:"batchId,omitempty"`
	Series         string        `json:"series"`
	Season         int           `json:"season"`
	Episode        int           `json:"episode"`
	Title          string        `json:"title,omitempty"`
	EpisodeCode    string        `json:"episodeCode"`
	AirDate        string        `json:"airDate,omitempty"`
	SourceURL      string        `json:"sourceUrl,omitempty"`
	Status         string        `json:"status"`
	ProcessingLane string        `json:"processingLane"`
	Progress       QueueProgress `json:"progress"`
	AudioLang      string        `json:"audioLang,omitempty"`
	DubLang        string        `json:"dubLang,omitempty"`
	SubtitleLangs  string        `json:"subtitleLangs,omitempty"`
	VerifyReason   string        `json:"verifyReason,omitempty"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	StagedFile     string        `json:"stagedFile,omitempty"`
	FinalFile      string        `json:"finalFile,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
	NeedsReview    bool          `json:"needsReview"`
	ReviewReason   string        `json:"reviewReason,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// LaneStatus describes one worker lane.
type LaneStatus struct {
	Name    string   `json:"name"`
	Workers int      `json:"workers"`
	Stages  []string `json:"stages"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	Lanes       []LaneStatus   `json:"lanes"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// BatchStatus mirrors the coordinator's view of the batch in flight.
type BatchStatus struct {
	Active          bool    `json:"active"`
	BatchID         string  `json:"batchId,omitempty"`
	Title           string  `json:"title,omitempty"`
	CurrentEpisode  int     `json:"currentEpisode,omitempty"`
	TotalEpisodes   int     `json:"totalEpisodes,omitempty"`
	Percent         float64 `json:"percent,omitempty"`
	Message         string  `json:"message,omitempty"`
	CancelRequested bool    `json:"cancelRequested,omitempty"`
	StartedAt       string  `json:"startedAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Batch        BatchStatus        `json:"batch"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// AddBatchResponse reports the outcome of a batch submission.
type AddBatchResponse struct {
	BatchID string      `json:"batchId"`
	Items   []QueueItem `json:"items"`
}

// CancelBatchResponse reports whether a cancel request reached an active batch.
type CancelBatchResponse struct {
	Requested bool `json:"requested"`
}

// LogTailResponse carries log lines plus the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
