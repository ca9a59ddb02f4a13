package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snapcaselabs/snapcase/backend/internal/checkout"
	"github.com/snapcaselabs/snapcase/backend/internal/fault"
	"go.uber.org/zap"
)

const (
	defaultAPIBase = "https://api.stripe.com"
	defaultTimeout = 15 * time.Second
)

// Session is the payment collaborator's handle for a started checkout.
type Session struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Mock bool   `json:"mock,omitempty"`
}

// StarterConfig bundles the payment collaborator dependencies.
type StarterConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	APIBase    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// StripeStarter creates hosted checkout sessions carrying the resolved
// consistency tuple as line-item metadata. Without a secret key it returns a
// mock session so local development works end to end.
type StripeStarter struct {
	secretKey  string
	successURL string
	cancelURL  string
	apiBase    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStripeStarter constructs the collaborator with sane defaults.
func NewStripeStarter(cfg StarterConfig) *StripeStarter {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeStarter{
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		apiBase:    apiBase,
		httpClient: httpClient,
		logger:     logger,
	}
}

// StartSession opens a payment session for the resolved checkout.
func (s *StripeStarter) StartSession(ctx context.Context, resolution checkout.Resolution) (Session, error) {
	if s.secretKey == "" {
		// Documented dev fallback: absence of payment credentials yields a
		// mock payload instead of a hard failure.
		mockID := "mock_cs_" + uuid.NewString()
		s.logger.Info("payment credentials absent, returning mock session",
			zap.String("session_id", mockID))
		return Session{ID: mockID, URL: "", Mock: true}, nil
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	form.Set("line_items[0][quantity]", strconv.Itoa(resolution.Quantity))
	form.Set("line_items[0][price_data][currency]", resolution.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(resolution.UnitPriceCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", "Custom phone case")
	if resolution.ShippingRateID != "" {
		form.Set("shipping_options[0][shipping_rate]", resolution.ShippingRateID)
	}
	if resolution.Email != "" {
		form.Set("customer_email", resolution.Email)
	}
	for key, value := range resolution.Metadata() {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	endpoint := s.apiBase + "/v1/checkout/sessions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fault.Wrap(fault.KindUpstreamUnavailable, "payments.request_build_failed",
			"payment session could not be created", err)
	}
	request.Header.Set("Authorization", "Bearer "+s.secretKey)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := s.httpClient.Do(request)
	if err != nil {
		return Session{}, fault.Wrap(fault.KindUpstreamUnavailable, "payments.request_failed",
			"payment processor unreachable", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return Session{}, fault.New(fault.KindUpstreamUnavailable, "payments.upstream_error",
			fmt.Sprintf("payment processor returned status %d", response.StatusCode))
	}

	var session Session
	if err := json.NewDecoder(response.Body).Decode(&session); err != nil {
		return Session{}, fault.Wrap(fault.KindUpstreamUnavailable, "payments.decode_failed",
			"payment processor returned an unexpected payload", err)
	}
	if session.ID == "" {
		return Session{}, fault.New(fault.KindUpstreamUnavailable, "payments.missing_session_id",
			"payment processor returned no session id")
	}
	return session, nil
}
