package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, batch_id, series, season, episode, title, context, air_date, source_url, mirrors_json, plan_json, status, throttle_group, staged_file, final_file, audio_lang, dub_lang, subtitle_langs, verify_reason, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		batchID          sql.NullString
		series           sql.NullString
		season           sql.NullInt64
		episode          sql.NullInt64
		title            sql.NullString
		contextStr       sql.NullString
		airDateRaw       sql.NullString
		sourceURL        sql.NullString
		mirrorsJSON      sql.NullString
		planJSON         sql.NullString
		statusStr        string
		throttleGroup    sql.NullInt64
		stagedFile       sql.NullString
		finalFile        sql.NullString
		audioLang        sql.NullString
		dubLang          sql.NullString
		subtitleLangs    sql.NullString
		verifyReason     sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&batchID,
		&series,
		&season,
		&episode,
		&title,
		&contextStr,
		&airDateRaw,
		&sourceURL,
		&mirrorsJSON,
		&planJSON,
		&statusStr,
		&throttleGroup,
		&stagedFile,
		&finalFile,
		&audioLang,
		&dubLang,
		&subtitleLangs,
		&verifyReason,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		BatchID:         batchID.String,
		Series:          series.String,
		Season:          int(season.Int64),
		Episode:         int(episode.Int64),
		Title:           title.String,
		Context:         contextStr.String,
		SourceURL:       sourceURL.String,
		MirrorsJSON:     mirrorsJSON.String,
		PlanJSON:        planJSON.String,
		Status:          Status(statusStr),
		ThrottleGroup:   int(throttleGroup.Int64),
		StagedFile:      stagedFile.String,
		FinalFile:       finalFile.String,
		AudioLang:       audioLang.String,
		DubLang:         dubLang.String,
		SubtitleLangs:   subtitleLangs.String,
		VerifyReason:    verifyReason.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if needsReview.Valid {
		item.NeedsReview = needsReview.Int64 != 0
	}
	item.ReviewReason = reviewReason.String

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if airDateRaw.Valid {
		if aired, err := parseTimeString(airDateRaw.String); err == nil {
			item.AirDate = aired
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTimestamp(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
