package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EpisodeSeed describes one episode to enqueue. Either SourceURL or an
// explicit mirror list must be present.
type EpisodeSeed struct {
	Series    string
	Season    int
	Episode   int
	Title     string
	Context   string
	AiredAt   time.Time
	SourceURL string
	Mirrors   []string
}

// NewBatch registers a batch and returns its identifier.
func (s *Store) NewBatch(ctx context.Context, series string) (string, error) {
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO batches (id, series, created_at) VALUES (?, ?, ?)`,
		id,
		nullableString(series),
		timestamp,
	); err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}
	return id, nil
}

// NewEpisode inserts a new episode awaiting candidate resolution. An empty
// batchID enqueues the episode without batch membership.
func (s *Store) NewEpisode(ctx context.Context, batchID string, seed EpisodeSeed) (*Item, error) {
	if strings.TrimSpace(seed.SourceURL) == "" && len(seed.Mirrors) == 0 {
		return nil, errors.New("episode needs a source url or mirrors")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	var mirrorsJSON string
	if len(seed.Mirrors) > 0 {
		data, err := json.Marshal(seed.Mirrors)
		if err != nil {
			return nil, fmt.Errorf("marshal mirrors: %w", err)
		}
		mirrorsJSON = string(data)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (
            batch_id, series, season, episode, title, context, air_date, source_url,
            mirrors_json, status, created_at, updated_at, progress_percent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(batchID),
		nullableString(seed.Series),
		seed.Season,
		seed.Episode,
		nullableString(seed.Title),
		nullableString(seed.Context),
		nullableTimestamp(seed.AiredAt),
		nullableString(seed.SourceURL),
		nullableString(mirrorsJSON),
		StatusPending,
		timestamp,
		timestamp,
		0.0,
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM episodes WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// FindBySourceURL returns the first item matching a source URL.
func (s *Store) FindBySourceURL(ctx context.Context, sourceURL string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM episodes WHERE source_url = ? ORDER BY id LIMIT 1`,
		sourceURL,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source url: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item. Batch membership and
// creation time are immutable.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes
         SET series = ?, season = ?, episode = ?, title = ?, context = ?,
             air_date = ?, source_url = ?, mirrors_json = ?, plan_json = ?, status = ?, throttle_group = ?,
             staged_file = ?, final_file = ?, audio_lang = ?, dub_lang = ?,
             subtitle_langs = ?, verify_reason = ?, error_message = ?, updated_at = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             last_heartbeat = ?, needs_review = ?, review_reason = ?
         WHERE id = ?`,
		nullableString(item.Series),
		item.Season,
		item.Episode,
		nullableString(item.Title),
		nullableString(item.Context),
		nullableTimestamp(item.AirDate),
		nullableString(item.SourceURL),
		nullableString(item.MirrorsJSON),
		nullableString(item.PlanJSON),
		item.Status,
		item.ThrottleGroup,
		nullableString(item.StagedFile),
		nullableString(item.FinalFile),
		nullableString(item.AudioLang),
		nullableString(item.DubLang),
		nullableString(item.SubtitleLangs),
		nullableString(item.VerifyReason),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		nullableTime(item.LastHeartbeat),
		boolToInt(item.NeedsReview),
		nullableString(item.ReviewReason),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateProgress persists only the progress fields, leaving status and
// heartbeat untouched.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes
         SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// ItemsByStatus returns items matching a status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM episodes WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ItemsByBatch returns a batch's episodes in insertion order.
func (s *Store) ItemsByBatch(ctx context.Context, batchID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM episodes WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query by batch: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM episodes`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest item matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + itemColumns + ` FROM episodes WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AssignThrottleGroups partitions a batch's episodes into fixed-size
// sequential download groups and returns the group count. Existing
// assignments are overwritten.
func (s *Store) AssignThrottleGroups(ctx context.Context, batchID string, groupSize int) (int, error) {
	if groupSize <= 0 {
		return 0, errors.New("group size must be positive")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM episodes WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return 0, fmt.Errorf("list batch episodes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for idx, id := range ids {
		if err := s.execWithoutResultRetry(
			ctx,
			`UPDATE episodes SET throttle_group = ?, updated_at = ? WHERE id = ?`,
			idx/groupSize,
			timestamp,
			id,
		); err != nil {
			return 0, fmt.Errorf("assign throttle group: %w", err)
		}
	}
	return (len(ids)-1)/groupSize + 1, nil
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all items and batches from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM batches`); err != nil {
		return 0, fmt.Errorf("clear batches: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
