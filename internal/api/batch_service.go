package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spool/internal/catalog"
	"spool/internal/queue"
	"spool/internal/status"
)

// BatchService turns catalog seeds into queued episodes and tracks the
// resulting batch through the status coordinator.
type BatchService struct {
	store             *queue.Store
	coord             *status.Coordinator
	throttleThreshold int
	throttleGroupSize int
}

// BatchOption adjusts batch submission behaviour.
type BatchOption func(*BatchService)

// WithThrottle partitions batches larger than threshold into sequential
// throttle groups of groupSize. A threshold of zero leaves every batch
// unpartitioned.
func WithThrottle(threshold, groupSize int) BatchOption {
	return func(s *BatchService) {
		s.throttleThreshold = threshold
		s.throttleGroupSize = groupSize
	}
}

// NewBatchService wires batch submission against the store and coordinator.
// A nil coordinator disables batch status tracking.
func NewBatchService(store *queue.Store, coord *status.Coordinator, opts ...BatchOption) *BatchService {
	if store == nil {
		return nil
	}
	s := &BatchService{store: store, coord: coord}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues every episode in the batch and claims the status record.
// ErrBatchActive from the coordinator aborts the submission before anything
// is persisted.
func (s *BatchService) Submit(ctx context.Context, batch catalog.Batch) (AddBatchResponse, error) {
	if s == nil || s.store == nil {
		return AddBatchResponse{}, errors.New("queue store unavailable")
	}
	series := strings.TrimSpace(batch.Series)
	if series == "" {
		return AddBatchResponse{}, errors.New("batch needs a series title")
	}
	if len(batch.Episodes) == 0 {
		return AddBatchResponse{}, errors.New("batch lists no episodes")
	}

	batchID, err := s.store.NewBatch(ctx, series)
	if err != nil {
		return AddBatchResponse{}, fmt.Errorf("register batch: %w", err)
	}

	if s.coord != nil {
		title := series
		if err := s.coord.Start(batchID, title, len(batch.Episodes)); err != nil {
			return AddBatchResponse{}, err
		}
	}

	response := AddBatchResponse{BatchID: batchID}
	for i, seed := range batch.Episodes {
		urls := seed.MirrorURLs()
		episodeSeed := queue.EpisodeSeed{
			Series:  series,
			Season:  seed.Season,
			Episode: seed.Episode,
			Title:   seed.Title,
			Context: batch.Context,
			AiredAt: seed.AiredAt(),
		}
		if len(urls) > 0 {
			episodeSeed.SourceURL = urls[0]
			episodeSeed.Mirrors = urls
		}
		item, err := s.store.NewEpisode(ctx, batchID, episodeSeed)
		if err != nil {
			if s.coord != nil {
				s.coord.Finish()
			}
			return AddBatchResponse{}, fmt.Errorf("enqueue episode %d: %w", i+1, err)
		}
		response.Items = append(response.Items, FromQueueItem(item))
	}

	if s.throttleThreshold > 0 && len(batch.Episodes) > s.throttleThreshold {
		if _, err := s.store.AssignThrottleGroups(ctx, batchID, s.throttleGroupSize); err != nil {
			if s.coord != nil {
				s.coord.Finish()
			}
			return AddBatchResponse{}, fmt.Errorf("partition batch: %w", err)
		}
	}
	return response, nil
}

// Cancel flags the active batch for cooperative cancellation.
func (s *BatchService) Cancel() CancelBatchResponse {
	if s == nil || s.coord == nil {
		return CancelBatchResponse{Requested: false}
	}
	return CancelBatchResponse{Requested: s.coord.RequestCancel()}
}
