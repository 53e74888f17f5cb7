package api

import (
	"context"
	"strings"

	"spool/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// ParseStatusFilter converts raw status query values into queue statuses,
// skipping blanks.
func ParseStatusFilter(values []string) []queue.Status {
	var statuses []queue.Status
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			statuses = append(statuses, queue.Status(trimmed))
		}
	}
	return statuses
}

// List returns queue items filtered by status, newest first.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	dtos := FromQueueItems(items)
	SortQueueItemsNewestFirst(dtos)
	return dtos, nil
}

// Describe fetches a single queue item.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}
