package api

import (
	"context"

	"spool/internal/queue"
)

// QueueActionService captures queue operations needed by per-item
// retry/stop/remove workflows.
type QueueActionService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Stop(ctx context.Context, ids []int64) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
}

type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

type RetryItemResult struct {
	ID      int64            `json:"id"`
	Outcome RetryItemOutcome `json:"outcome"`
}

type RetryItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

type StopItemOutcome string

const (
	StopItemUpdated          StopItemOutcome = "stopped"
	StopItemNotFound         StopItemOutcome = "not_found"
	StopItemAlreadyCompleted StopItemOutcome = "already_completed"
	StopItemAlreadyFailed    StopItemOutcome = "already_failed"
)

type StopItemResult struct {
	ID          int64           `json:"id"`
	Outcome     StopItemOutcome `json:"outcome"`
	PriorStatus string          `json:"prior_status,omitempty"`
}

type StopItemsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Items        []StopItemResult `json:"items"`
}

type RemoveItemOutcome string

const (
	RemoveItemRemoved  RemoveItemOutcome = "removed"
	RemoveItemNotFound RemoveItemOutcome = "not_found"
)

type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	RemovedCount int64              `json:"removedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// RetryFailedItemsByID validates IDs and retries only failed items.
func RetryFailedItemsByID(ctx context.Context, service QueueActionService, ids []int64) (RetryItemsResult, error) {
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return RetryItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFound})
			continue
		}
		parsed, ok := queue.ParseStatus(item.Status)
		if !ok || parsed != queue.StatusFailed {
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed})
			continue
		}
		updated, err := service.Retry(ctx, []int64{id})
		if err != nil {
			return RetryItemsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemUpdated})
			continue
		}
		result.Items = append(result.Items, RetryItemResult{ID: id, Outcome: RetryItemNotFailed})
	}
	return result, nil
}

// StopItemsByID validates IDs and stops items unless already terminal.
func StopItemsByID(ctx context.Context, service QueueActionService, ids []int64) (StopItemsResult, error) {
	result := StopItemsResult{Items: make([]StopItemResult, 0, len(ids))}
	for _, id := range ids {
		item, err := service.Describe(ctx, id)
		if err != nil {
			return StopItemsResult{}, err
		}
		if item == nil {
			result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemNotFound})
			continue
		}
		parsed, ok := queue.ParseStatus(item.Status)
		if ok {
			switch parsed {
			case queue.StatusCompleted:
				result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemAlreadyCompleted, PriorStatus: item.Status})
				continue
			case queue.StatusFailed:
				result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemAlreadyFailed, PriorStatus: item.Status})
				continue
			}
		}

		updated, err := service.Stop(ctx, []int64{id})
		if err != nil {
			return StopItemsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemUpdated, PriorStatus: item.Status})
			continue
		}
		result.Items = append(result.Items, StopItemResult{ID: id, Outcome: StopItemAlreadyFailed, PriorStatus: item.Status})
	}
	return result, nil
}

// RemoveItemsByID removes queue items one-by-one so each ID can report
// removed/not_found.
func RemoveItemsByID(ctx context.Context, service QueueActionService, ids []int64) (RemoveItemsResult, error) {
	result := RemoveItemsResult{Items: make([]RemoveItemResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := service.Remove(ctx, []int64{id})
		if err != nil {
			return RemoveItemsResult{}, err
		}
		if removed > 0 {
			result.RemovedCount += removed
			result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveItemResult{ID: id, Outcome: RemoveItemNotFound})
	}
	return result, nil
}

// StoreActions implements QueueActionService directly against the queue store.
type StoreActions struct {
	store *queue.Store
}

// NewStoreActions wraps the queue store for item-level actions.
func NewStoreActions(store *queue.Store) *StoreActions {
	if store == nil {
		return nil
	}
	return &StoreActions{store: store}
}

// Describe fetches a single queue item DTO.
func (a *StoreActions) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	item, err := a.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// Retry resets the given failed or review items back to pending.
func (a *StoreActions) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

// Stop routes the given items to review with the user-stop reason.
func (a *StoreActions) Stop(ctx context.Context, ids []int64) (int64, error) {
	var updated int64
	for _, id := range ids {
		item, err := a.store.GetByID(ctx, id)
		if err != nil {
			return updated, err
		}
		if item == nil {
			continue
		}
		item.SetReview(queue.UserStopReason)
		if err := a.store.Update(ctx, item); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Remove deletes the given items.
func (a *StoreActions) Remove(ctx context.Context, ids []int64) (int64, error) {
	var removed int64
	for _, id := range ids {
		ok, err := a.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
