package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snapcaselabs/snapcase/backend/internal/fault"
	"go.uber.org/zap"
)

const (
	defaultMaxBodyBytes = 1 << 20
	maxEventIDLength    = 64
	signaturePrefix     = "sha256="
)

var (
	errMissingArchiveDir = errors.New("webhooks: archive directory is required")

	// Delivery-id headers outrank anything inside the payload because the
	// provider stamps them per event, not per delivery attempt.
	eventIDHeaders = []string{"X-Pf-Event-Id", "X-Webhook-Delivery", "X-Delivery-Id"}

	signatureHeaders = []string{"X-Pf-Signature", "X-Printful-Signature", "X-Webhook-Signature"}

	payloadIDFields = []string{"id", "event_id", "eventId"}
)

// Result is the caller-visible outcome of one ingestion. Redelivery of a
// known event returns the same shape with DuplicateOf set.
type Result struct {
	Received                bool   `json:"received"`
	EventID                 string `json:"event_id"`
	ArchivedPath            string `json:"archived_path,omitempty"`
	DuplicateOf             string `json:"duplicate_of,omitempty"`
	SignatureValidated      bool   `json:"signature_validated"`
	UsingUnverifiedFallback bool   `json:"using_unverified_fallback,omitempty"`
}

// IngestorConfig bundles the dependencies of an Ingestor.
type IngestorConfig struct {
	Secret       string
	ArchiveDir   string
	MaxBodyBytes int64
	Clock        func() time.Time
	Logger       *zap.Logger
}

// Ingestor verifies, identifies, deduplicates and archives provider webhook
// deliveries. Processing is at-most-once per event id even though the
// provider delivers at-least-once.
type Ingestor struct {
	secret       []byte
	archive      *archive
	maxBodyBytes int64
	clock        func() time.Time
	logger       *zap.Logger
}

// NewIngestor constructs an Ingestor with sane defaults.
func NewIngestor(cfg IngestorConfig) (*Ingestor, error) {
	if strings.TrimSpace(cfg.ArchiveDir) == "" {
		return nil, errMissingArchiveDir
	}
	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var secret []byte
	if cfg.Secret != "" {
		secret = []byte(cfg.Secret)
	}
	return &Ingestor{
		secret:       secret,
		archive:      &archive{dir: cfg.ArchiveDir},
		maxBodyBytes: maxBodyBytes,
		clock:        clock,
		logger:       logger,
	}, nil
}

// Ingest runs one delivery through the pipeline: size guard, signature
// check, identity derivation, dedup, archive.
func (i *Ingestor) Ingest(body []byte, header http.Header) (Result, error) {
	if int64(len(body)) > i.maxBodyBytes {
		return Result{}, fault.New(fault.KindValidation, "webhook.payload_too_large",
			"webhook payload exceeds the configured size limit")
	}

	signature := firstHeader(header, signatureHeaders)
	validated := false
	unverifiedFallback := false
	switch {
	case len(i.secret) > 0:
		if signature == "" {
			i.logger.Warn("webhook rejected: signature header missing")
			return Result{}, fault.New(fault.KindSignatureInvalid, "webhook.signature_missing",
				"signature header is required")
		}
		if !i.verifySignature(body, signature) {
			i.logger.Warn("webhook rejected: signature mismatch")
			return Result{}, fault.New(fault.KindSignatureInvalid, "webhook.signature_mismatch",
				"signature does not match the payload")
		}
		validated = true
	default:
		// Without a shared secret the event is still ingested, but it must
		// never look identical to a verified one downstream.
		unverifiedFallback = true
		i.logger.Warn("webhook accepted without verification: no secret configured")
	}

	eventID := i.deriveEventID(body, header)

	receivedAt := i.clock().UTC()
	existingPath, err := i.archive.find(eventID)
	if err != nil {
		return Result{}, err
	}
	if existingPath != "" {
		i.logger.Info("webhook redelivery deduplicated",
			zap.String("event_id", eventID),
			zap.String("duplicate_of", existingPath))
		return Result{
			Received:                true,
			EventID:                 eventID,
			DuplicateOf:             existingPath,
			SignatureValidated:      validated,
			UsingUnverifiedFallback: unverifiedFallback,
		}, nil
	}

	archivedPath, err := i.archive.write(entry{
		ReceivedAt:              receivedAt.Format(time.RFC3339Nano),
		EventID:                 eventID,
		Signature:               signature,
		SignatureValidated:      validated,
		UsingUnverifiedFallback: unverifiedFallback,
		Headers:                 header,
		Payload:                 payloadOf(body),
	}, receivedAt)
	if err != nil {
		return Result{}, err
	}

	i.logger.Info("webhook archived",
		zap.String("event_id", eventID),
		zap.String("archived_path", archivedPath),
		zap.Bool("signature_validated", validated))
	return Result{
		Received:                true,
		EventID:                 eventID,
		ArchivedPath:            archivedPath,
		SignatureValidated:      validated,
		UsingUnverifiedFallback: unverifiedFallback,
	}, nil
}

// verifySignature accepts either a hex or base64 HMAC-SHA256 digest of the
// raw body, tolerating provider format drift. Comparison is constant time.
func (i *Ingestor) verifySignature(body []byte, signature string) bool {
	candidate := strings.TrimSpace(signature)
	candidate = strings.TrimPrefix(candidate, signaturePrefix)

	mac := hmac.New(sha256.New, i.secret)
	mac.Write(body)
	digest := mac.Sum(nil)

	hexDigest := hex.EncodeToString(digest)
	base64Digest := base64.StdEncoding.EncodeToString(digest)

	return hmac.Equal([]byte(candidate), []byte(hexDigest)) ||
		hmac.Equal([]byte(candidate), []byte(base64Digest))
}

// deriveEventID picks a stable identity: delivery header, then an id field
// inside the payload, then a digest of the raw body.
func (i *Ingestor) deriveEventID(body []byte, header http.Header) string {
	if id := firstHeader(header, eventIDHeaders); id != "" {
		return sanitizeEventID(id)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, field := range payloadIDFields {
			switch value := payload[field].(type) {
			case string:
				if value != "" {
					return sanitizeEventID(value)
				}
			case float64:
				return sanitizeEventID(strconv.FormatFloat(value, 'f', -1, 64))
			}
		}
	}

	digest := sha256.Sum256(body)
	return "body-" + hex.EncodeToString(digest[:])[:12]
}

func firstHeader(header http.Header, names []string) string {
	for _, name := range names {
		if value := strings.TrimSpace(header.Get(name)); value != "" {
			return value
		}
	}
	return ""
}

// sanitizeEventID restricts the identity to a filesystem-safe charset and
// caps its length.
func sanitizeEventID(raw string) string {
	var builder strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	sanitized := builder.String()
	if len(sanitized) > maxEventIDLength {
		sanitized = sanitized[:maxEventIDLength]
	}
	if sanitized == "" {
		sanitized = "unknown"
	}
	return sanitized
}

func payloadOf(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	encoded, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage(`null`)
	}
	return json.RawMessage(encoded)
}
