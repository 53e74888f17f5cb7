package status

import (
	"errors"
	"sync"
	"time"

	"spool/internal/metrics"
)

// ErrBatchActive reports that Start was called while another batch still
// owns the status record.
var ErrBatchActive = errors.New("another batch is already active")

// Record is the shared view of the batch in flight. Consumers receive
// copies; only the Coordinator mutates the live record.
type Record struct {
	Active          bool
	BatchID         string
	Title           string
	CurrentEpisode  int
	TotalEpisodes   int
	Percent         float64
	Message         string
	CancelRequested bool
	StartedAt       time.Time
}

// Coordinator serializes access to the single batch status record.
type Coordinator struct {
	mu  sync.Mutex
	rec Record
}

// New returns a Coordinator in the idle state.
func New() *Coordinator {
	return &Coordinator{}
}

// Start claims the status record for a new batch. It fails with
// ErrBatchActive when a batch is already running; the caller reports the
// conflict instead of queueing behind it.
func (c *Coordinator) Start(batchID, title string, totalEpisodes int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec.Active {
		return ErrBatchActive
	}
	c.rec = Record{
		Active:        true,
		BatchID:       batchID,
		Title:         title,
		TotalEpisodes: totalEpisodes,
		StartedAt:     time.Now().UTC(),
	}
	metrics.BatchActive.Set(1)
	return nil
}

// Finish resets the record to idle. The cancel flag is cleared along with
// everything else, regardless of how the batch ended.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	c.rec = Record{}
	c.mu.Unlock()
	metrics.BatchActive.Set(0)
}

// Field overwrites one record field during Update.
type Field func(*Record)

// Title sets the title of the episode currently being worked on.
func Title(title string) Field {
	return func(r *Record) { r.Title = title }
}

// Episode sets the one-based index of the episode currently being worked on.
func Episode(current int) Field {
	return func(r *Record) { r.CurrentEpisode = current }
}

// Total sets the number of episodes in the batch.
func Total(n int) Field {
	return func(r *Record) { r.TotalEpisodes = n }
}

// Percent sets batch completion, clamped to the 0..100 range.
func Percent(p float64) Field {
	return func(r *Record) {
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		r.Percent = p
	}
}

// Message sets the human-readable progress line.
func Message(msg string) Field {
	return func(r *Record) { r.Message = msg }
}

// Update overwrites exactly the supplied fields. Updates arriving after
// the batch finished are dropped so a straggling worker cannot resurrect
// a stale record.
func (c *Coordinator) Update(fields ...Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rec.Active {
		return
	}
	for _, apply := range fields {
		apply(&c.rec)
	}
}

// RequestCancel marks the active batch for cooperative cancellation and
// reports whether there was a batch to cancel. In-flight attempts finish;
// workers observe the flag at their next poll point.
func (c *Coordinator) RequestCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rec.Active {
		return false
	}
	c.rec.CancelRequested = true
	return true
}

// Cancelled reports whether the active batch has been asked to stop.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Active && c.rec.CancelRequested
}

// Snapshot returns a copy of the current record.
func (c *Coordinator) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec
}
