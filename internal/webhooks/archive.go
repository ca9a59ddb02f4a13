package webhooks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	archiveTimestampLayout = "20060102T150405.000000000Z"
	archiveNameSeparator   = "__"
	archiveExtension       = ".json"
)

// entry is the immutable artifact written once per unique event id.
type entry struct {
	ReceivedAt              string          `json:"received_at"`
	EventID                 string          `json:"event_id"`
	Signature               string          `json:"signature,omitempty"`
	SignatureValidated      bool            `json:"signature_validated"`
	UsingUnverifiedFallback bool            `json:"using_unverified_fallback,omitempty"`
	Headers                 http.Header     `json:"headers"`
	Payload                 json.RawMessage `json:"payload"`
}

type archive struct {
	dir string
}

// find returns the path of an existing artifact for the event id, keyed on
// the exact id segment of the filename. An empty path means first sight.
// The check-then-write window is not atomic under concurrency; simultaneous
// first deliveries of one event can both archive.
func (a *archive) find(eventID string) (string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("webhooks: archive scan failed: %w", err)
	}

	for _, dirEntry := range entries {
		if dirEntry.IsDir() {
			continue
		}
		if eventIDOf(dirEntry.Name()) == eventID {
			return filepath.Join(a.dir, dirEntry.Name()), nil
		}
	}
	return "", nil
}

// write persists the artifact under a sortable timestamp+eventID name via a
// temp file and atomic rename. The artifact stays compact: indentation would
// rewrite the embedded payload bytes, and the payload must stay exactly what
// the provider delivered.
func (a *archive) write(record entry, receivedAt time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("webhooks: archive dir creation failed: %w", err)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("webhooks: artifact marshal failed: %w", err)
	}

	name := receivedAt.UTC().Format(archiveTimestampLayout) + archiveNameSeparator + record.EventID + archiveExtension
	finalPath := filepath.Join(a.dir, name)

	tmp, err := os.CreateTemp(a.dir, ".pending-*")
	if err != nil {
		return "", fmt.Errorf("webhooks: artifact create failed: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("webhooks: artifact write failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("webhooks: artifact close failed: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("webhooks: artifact rename failed: %w", err)
	}
	return finalPath, nil
}

// eventIDOf extracts the exact event-id segment from an artifact filename.
// Exact keying avoids false-positive dedup when one id is a substring of
// another.
func eventIDOf(fileName string) string {
	if strings.HasPrefix(fileName, ".") {
		return ""
	}
	name := strings.TrimSuffix(fileName, archiveExtension)
	if name == fileName {
		return ""
	}
	separator := strings.Index(name, archiveNameSeparator)
	if separator < 0 {
		return ""
	}
	return name[separator+len(archiveNameSeparator):]
}
