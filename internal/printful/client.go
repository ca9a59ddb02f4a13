package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/snapcaselabs/snapcase/backend/internal/fault"
	"go.uber.org/zap"
)

const (
	defaultAPIBase = "https://api.printful.com"
	defaultTimeout = 10 * time.Second

	noncePath = "/embedded-designer/nonces"
)

var errMissingExternalProductID = errors.New("printful: external product id is required")

// Nonce is the provider-issued credential the embedded design maker needs to
// open a design session.
type Nonce struct {
	Value      string `json:"nonce"`
	TemplateID string `json:"template_id,omitempty"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
}

// ClientConfig bundles the provider client dependencies.
type ClientConfig struct {
	Token      string
	APIBase    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the print provider. Every outbound call carries a bounded
// timeout; a timed-out provider is upstream-unavailable, never "no nonce".
type Client struct {
	token      string
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a provider client with sane defaults.
func NewClient(cfg ClientConfig) *Client {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:      strings.TrimSpace(cfg.Token),
		apiBase:    apiBase,
		httpClient: httpClient,
		logger:     logger,
	}
}

type nonceRequestPayload struct {
	ExternalProductID  string `json:"external_product_id"`
	ExternalCustomerID string `json:"external_customer_id,omitempty"`
}

type nonceResponsePayload struct {
	Result struct {
		Nonce      string `json:"nonce"`
		TemplateID string `json:"template_id"`
		ExpiresAt  *int64 `json:"expires_at"`
	} `json:"result"`
}

// IssueNonce requests an embedded-designer nonce for the given product.
func (c *Client) IssueNonce(ctx context.Context, externalProductID, externalCustomerID string) (Nonce, error) {
	if strings.TrimSpace(externalProductID) == "" {
		return Nonce{}, fault.Wrap(fault.KindValidation, "printful.missing_external_product_id",
			"externalProductId is required", errMissingExternalProductID)
	}
	if c.token == "" {
		return Nonce{}, fault.New(fault.KindConfigurationMissing, "printful.token_missing",
			"print provider token is not configured").WithStatus(http.StatusServiceUnavailable)
	}

	body, err := json.Marshal(nonceRequestPayload{
		ExternalProductID:  strings.TrimSpace(externalProductID),
		ExternalCustomerID: strings.TrimSpace(externalCustomerID),
	})
	if err != nil {
		return Nonce{}, fault.Wrap(fault.KindUpstreamUnavailable, "printful.request_build_failed",
			"nonce request could not be built", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+noncePath, bytes.NewReader(body))
	if err != nil {
		return Nonce{}, fault.Wrap(fault.KindUpstreamUnavailable, "printful.request_build_failed",
			"nonce request could not be built", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("printful nonce request failed", zap.Error(err))
		return Nonce{}, fault.Wrap(fault.KindUpstreamUnavailable, "printful.unreachable",
			"print provider unreachable or timed out", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		c.logger.Warn("printful nonce request rejected", zap.Int("status", response.StatusCode))
		return Nonce{}, fault.New(fault.KindUpstreamUnavailable, "printful.upstream_error",
			fmt.Sprintf("print provider returned status %d", response.StatusCode))
	}

	var payload nonceResponsePayload
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return Nonce{}, fault.Wrap(fault.KindUpstreamUnavailable, "printful.decode_failed",
			"print provider returned an unexpected payload", err)
	}
	if payload.Result.Nonce == "" {
		return Nonce{}, fault.New(fault.KindUpstreamUnavailable, "printful.missing_nonce",
			"print provider response contained no nonce")
	}

	return Nonce{
		Value:      payload.Result.Nonce,
		TemplateID: payload.Result.TemplateID,
		ExpiresAt:  payload.Result.ExpiresAt,
	}, nil
}
