package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"spool/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	total := 0
	for key, count := range stats {
		if count == 0 {
			continue
		}
		keys = append(keys, key)
		total += count
	}
	if total == 0 {
		return nil
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := api.SortQueueItemsNewestFirst(items)

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		episode := item.EpisodeCode
		if title := strings.TrimSpace(item.Title); title != "" {
			episode += " " + title
		}
		progress := ""
		if item.Progress.Stage != "" {
			progress = item.Progress.Stage
			if item.Progress.Percent > 0 {
				progress = fmt.Sprintf("%s %.0f%%", progress, item.Progress.Percent)
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.Series,
			episode,
			item.AirDate,
			formatStatusLabel(item.Status),
			item.ProcessingLane,
			progress,
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseQueueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}
