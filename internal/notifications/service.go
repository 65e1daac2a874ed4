package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crate/internal/config"
)

const userAgent = "Crate-Go/0.1.0"

// Event identifies a pipeline milestone worth notifying about.
type Event string

const (
	EventIngestCompleted    Event = "ingest_completed"
	EventIngestFailed       Event = "ingest_failed"
	EventDuplicateRejected  Event = "duplicate_rejected"
	EventStorageFallback    Event = "storage_fallback"
	EventReconcileCompleted Event = "reconcile_completed"
	EventError              Event = "error"
	EventTest               Event = "test"
)

// Payload carries event-specific fields consumed by the formatters.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.TopicURL)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type formatter func(Payload) message

// formatters maps events to their ntfy rendering. Events without a
// formatter are intentionally suppressed.
var formatters = map[Event]formatter{
	EventIngestCompleted: func(p Payload) message {
		body := fmt.Sprintf("🎵 Cataloged: %s", displayName(p))
		if tier := p["tier"]; tier != "" {
			body = fmt.Sprintf("%s (%s tier)", body, tier)
		}
		return message{
			title: "Crate - Mix Cataloged",
			body:  body,
			tags:  []string{"crate", "ingest", "completed"},
		}
	},
	EventIngestFailed: func(p Payload) message {
		body := fmt.Sprintf("Ingestion failed: %s", valueOr(p, "filename", "unknown file"))
		if reason := p["reason"]; reason != "" {
			body = fmt.Sprintf("%s\nReason: %s", body, reason)
		}
		return message{
			title:    "Crate - Ingestion Failed",
			body:     body,
			tags:     []string{"crate", "ingest", "failed"},
			priority: "high",
		}
	},
	EventStorageFallback: func(p Payload) message {
		return message{
			title: "Crate - Storage Fallback",
			body: fmt.Sprintf("⚠️ Remote storage failed (%s), stored locally: %s",
				valueOr(p, "status", "unknown"), displayName(p)),
			tags: []string{"crate", "storage", "fallback"},
		}
	},
	EventReconcileCompleted: func(p Payload) message {
		orphans := valueOr(p, "orphans", "0")
		if p["applied"] == "true" {
			return message{
				title: "Crate - Reconciliation",
				body:  fmt.Sprintf("🧹 Removed %s orphaned records", valueOr(p, "deleted", orphans)),
				tags:  []string{"crate", "reconcile", "applied"},
			}
		}
		return message{
			title: "Crate - Reconciliation",
			body:  fmt.Sprintf("Found %s orphaned records (dry run)", orphans),
			tags:  []string{"crate", "reconcile", "dry-run"},
		}
	},
	EventError: func(p Payload) message {
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := strings.TrimSpace(p["context"]); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(valueOr(p, "error", "unknown"))
		return message{
			title:    "Crate - Error",
			body:     builder.String(),
			tags:     []string{"crate", "error", "alert"},
			priority: "high",
		}
	},
	EventTest: func(Payload) message {
		return message{
			title:    "Crate - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"crate", "test"},
			priority: "low",
		}
	},
}

func displayName(p Payload) string {
	title := strings.TrimSpace(p["title"])
	artist := strings.TrimSpace(p["artist"])
	switch {
	case title != "" && artist != "":
		return artist + " - " + title
	case title != "":
		return title
	case artist != "":
		return artist
	default:
		return "unknown mix"
	}
}

func valueOr(p Payload, key, fallback string) string {
	if v := strings.TrimSpace(p[key]); v != "" {
		return v
	}
	return fallback
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	format, ok := formatters[event]
	if !ok {
		return nil
	}
	return n.send(ctx, format(payload))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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
