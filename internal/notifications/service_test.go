package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventEpisodeCompleted, notifications.Payload{"series": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "batch started",
			event: notifications.EventBatchStarted,
			payload: notifications.Payload{
				"series": "Demon Slayer",
				"count":  12,
			},
			expectTitle:   "Spool - Batch Started",
			expectMessage: "Started batch: Demon Slayer (12 episodes)",
			expectTags:    "spool,batch,started",
		},
		{
			name:  "batch completed clean",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"processed": 12,
				"failed":    0,
				"duration":  95 * time.Second,
			},
			expectTitle:   "Spool - Batch Complete",
			expectMessage: "Batch complete: 12 episodes in 1m35s",
			expectTags:    "spool,batch,completed",
		},
		{
			name:  "batch completed with failures",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"processed": 10,
				"failed":    2,
				"duration":  2 * time.Minute,
			},
			expectTitle:   "Spool - Batch Complete (with errors)",
			expectMessage: "Batch complete: 10 succeeded, 2 failed in 2m0s",
			expectTags:    "spool,batch,completed",
		},
		{
			name:  "episode completed",
			event: notifications.EventEpisodeCompleted,
			payload: notifications.Payload{
				"series":  "Demon Slayer",
				"episode": "S01E03",
				"title":   "Sabito and Makomo",
			},
			expectTitle:   "Spool - Episode Ready",
			expectMessage: "Ready to watch: Demon Slayer S01E03 - Sabito and Makomo",
			expectTags:    "spool,episode,completed",
		},
		{
			name:  "episode failed",
			event: notifications.EventEpisodeFailed,
			payload: notifications.Payload{
				"series":  "Demon Slayer",
				"episode": "S01E04",
				"reason":  "all mirrors exhausted: no-valid-de-source",
			},
			expectTitle:   "Spool - Episode Failed",
			expectMessage: "Episode failed: Demon Slayer S01E04\nall mirrors exhausted: no-valid-de-source",
			expectTags:    "spool,episode,failed",
		},
		{
			name:  "review routed",
			event: notifications.EventReviewRouted,
			payload: notifications.Payload{
				"series":  "Demon Slayer",
				"episode": "S01E05",
				"reason":  "mismatch:en",
			},
			expectTitle:   "Spool - Review Needed",
			expectMessage: "Needs review: Demon Slayer S01E05\nReason: mismatch:en",
			expectTags:    "spool,review",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "transfer (item #7)",
				"error":   "yt-dlp exited with status 1",
			},
			expectTitle:    "Spool - Error",
			expectMessage:  "Error with transfer (item #7): yt-dlp exited with status 1",
			expectTags:     "spool,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Batch = false
	cfg.Notifications.Episode = false
	cfg.Notifications.Review = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	disabled := []notifications.Event{
		notifications.EventBatchStarted,
		notifications.EventBatchCompleted,
		notifications.EventEpisodeCompleted,
		notifications.EventEpisodeFailed,
		notifications.EventReviewRouted,
		notifications.EventError,
	}

	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"series": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceDeduplicatesRepeats(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.DedupWindowSeconds = 600

	svc := notifications.NewService(&cfg)
	payload := notifications.Payload{
		"series":  "Demon Slayer",
		"episode": "S01E04",
		"reason":  "transfer failed",
	}
	for i := 0; i < 3; i++ {
		if err := svc.Publish(context.Background(), notifications.EventEpisodeFailed, payload); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 delivery for repeated event, got %d", calls)
	}

	// A different body is a different message and must go through.
	other := notifications.Payload{
		"series":  "Demon Slayer",
		"episode": "S01E05",
		"reason":  "transfer failed",
	}
	if err := svc.Publish(context.Background(), notifications.EventEpisodeFailed, other); err != nil {
		t.Fatalf("publish other: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected distinct message delivered, got %d calls", calls)
	}
}
