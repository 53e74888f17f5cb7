package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"spool/internal/config"
)

const userAgent = "Spool/0.1.0"

// Event identifies a workflow milestone worth telling a human about.
type Event string

const (
	EventBatchStarted     Event = "batch_started"
	EventBatchCompleted   Event = "batch_completed"
	EventEpisodeCompleted Event = "episode_completed"
	EventEpisodeFailed    Event = "episode_failed"
	EventReviewRouted     Event = "review_routed"
	EventError            Event = "error"
	EventTest             Event = "test"
)

// Payload carries event-specific values used to format the message.
type Payload map[string]any

// Service delivers workflow events. Implementations must tolerate nil
// payloads and treat unknown events as a no-op.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		settings:    cfg.Notifications,
		dedupWindow: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		lastSent:    make(map[string]time.Time),
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	settings    config.Notifications
	dedupWindow time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// Publish formats and sends the event. Events disabled in config and
// messages repeated inside the dedup window are silently dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	if n.suppressed(event, msg.body) {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventBatchStarted, EventBatchCompleted:
		return n.settings.Batch
	case EventEpisodeCompleted, EventEpisodeFailed:
		return n.settings.Episode
	case EventReviewRouted:
		return n.settings.Review
	case EventError:
		return n.settings.Errors
	case EventTest:
		return true
	default:
		return false
	}
}

// suppressed drops an identical event+body pair arriving inside the dedup
// window, so a flapping mirror cannot page the same failure every retry.
func (n *ntfyService) suppressed(event Event, body string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := string(event) + "\x00" + body
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	n.lastSent[key] = now
	return false
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchStarted:
		series := payloadString(payload, "series")
		count := payloadInt(payload, "count")
		body := fmt.Sprintf("Started batch: %s (%d episodes)", series, count)
		if series == "" {
			body = fmt.Sprintf("Started batch with %d episodes", count)
		}
		return message{
			title: "Spool - Batch Started",
			body:  body,
			tags:  []string{"spool", "batch", "started"},
		}, true
	case EventBatchCompleted:
		processed := payloadInt(payload, "processed")
		failed := payloadInt(payload, "failed")
		durationText := payloadDuration(payload, "duration")
		if failed == 0 {
			return message{
				title: "Spool - Batch Complete",
				body:  fmt.Sprintf("Batch complete: %d episodes in %s", processed, durationText),
				tags:  []string{"spool", "batch", "completed"},
			}, true
		}
		return message{
			title: "Spool - Batch Complete (with errors)",
			body:  fmt.Sprintf("Batch complete: %d succeeded, %d failed in %s", processed, failed, durationText),
			tags:  []string{"spool", "batch", "completed"},
		}, true
	case EventEpisodeCompleted:
		label := episodeLabel(payload)
		return message{
			title: "Spool - Episode Ready",
			body:  fmt.Sprintf("Ready to watch: %s", label),
			tags:  []string{"spool", "episode", "completed"},
		}, true
	case EventEpisodeFailed:
		label := episodeLabel(payload)
		reason := payloadString(payload, "reason")
		body := fmt.Sprintf("Episode failed: %s", label)
		if reason != "" {
			body = fmt.Sprintf("%s\n%s", body, reason)
		}
		return message{
			title: "Spool - Episode Failed",
			body:  body,
			tags:  []string{"spool", "episode", "failed"},
		}, true
	case EventReviewRouted:
		label := episodeLabel(payload)
		reason := payloadString(payload, "reason")
		body := fmt.Sprintf("Needs review: %s", label)
		if reason != "" {
			body = fmt.Sprintf("%s\nReason: %s", body, reason)
		}
		return message{
			title: "Spool - Review Needed",
			body:  body,
			tags:  []string{"spool", "review"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if contextLabel := payloadString(payload, "context"); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		builder.WriteString(errorText(payload))
		return message{
			title:    "Spool - Error",
			body:     builder.String(),
			tags:     []string{"spool", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Spool - Test",
			body:     "Notification system test",
			tags:     []string{"spool", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

// episodeLabel prefers "Series S01E02 - Title", degrading gracefully when
// seed data left fields blank.
func episodeLabel(payload Payload) string {
	series := payloadString(payload, "series")
	code := payloadString(payload, "episode")
	title := payloadString(payload, "title")

	parts := make([]string, 0, 2)
	if series != "" {
		parts = append(parts, series)
	}
	if code != "" {
		parts = append(parts, code)
	}
	label := strings.Join(parts, " ")
	if title != "" {
		if label != "" {
			label += " - " + title
		} else {
			label = title
		}
	}
	if label == "" {
		label = "unknown episode"
	}
	return label
}

func errorText(payload Payload) string {
	if payload == nil {
		return "unknown"
	}
	switch v := payload["error"].(type) {
	case error:
		return strings.TrimSpace(v.Error())
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return "unknown"
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(payload Payload, key string) string {
	if payload == nil {
		return "0s"
	}
	d, ok := payload[key].(time.Duration)
	if !ok {
		return "0s"
	}
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
