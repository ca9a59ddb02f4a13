package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snapcaselabs/snapcase/backend/internal/checkout"
	"github.com/snapcaselabs/snapcase/backend/internal/fault"
)

func sampleResolution() checkout.Resolution {
	return checkout.Resolution{
		VariantID:       632,
		TemplateID:      "tmpl_abc",
		TemplateStoreID: "tstore_1",
		Quantity:        2,
		UnitPriceCents:  3499,
		Currency:        "usd",
		PricingSource:   "platform_default",
		ShippingRateID:  "shr_standard",
		Email:           "buyer@example.com",
	}
}

func TestStartSessionWithoutKeyReturnsMockSession(t *testing.T) {
	starter := NewStripeStarter(StarterConfig{})

	session, err := starter.StartSession(context.Background(), sampleResolution())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if !session.Mock {
		t.Fatalf("expected mock session without credentials")
	}
	if !strings.HasPrefix(session.ID, "mock_cs_") {
		t.Fatalf("unexpected mock session id %q", session.ID)
	}
}

func TestStartSessionPostsResolvedLineItemAndMetadata(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("missing bearer token")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("form parse failed: %v", err)
		}

		assertions := map[string]string{
			"mode":                                   "payment",
			"line_items[0][quantity]":                "2",
			"line_items[0][price_data][currency]":    "usd",
			"line_items[0][price_data][unit_amount]": "3499",
			"shipping_options[0][shipping_rate]":     "shr_standard",
			"customer_email":                         "buyer@example.com",
			"metadata[variant_id]":                   "632",
			"metadata[template_id]":                  "tmpl_abc",
			"metadata[template_store_id]":            "tstore_1",
		}
		for key, expected := range assertions {
			if got := r.PostForm.Get(key); got != expected {
				t.Errorf("form field %s: expected %q, got %q", key, expected, got)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_live_123","url":"https://checkout.example/cs_live_123"}`))
	}))
	defer upstream.Close()

	starter := NewStripeStarter(StarterConfig{
		SecretKey:  "sk_test",
		SuccessURL: "https://snapcase.example/success",
		CancelURL:  "https://snapcase.example/cancel",
		APIBase:    upstream.URL,
	})

	session, err := starter.StartSession(context.Background(), sampleResolution())
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if session.ID != "cs_live_123" {
		t.Fatalf("unexpected session id %q", session.ID)
	}
	if session.URL != "https://checkout.example/cs_live_123" {
		t.Fatalf("unexpected session url %q", session.URL)
	}
	if session.Mock {
		t.Fatalf("real session must not be marked mock")
	}
}

func TestStartSessionUpstreamFailuresAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "processor 5xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "payload without session id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"url":"https://checkout.example/broken"}`))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			upstream := httptest.NewServer(tc.handler)
			defer upstream.Close()

			starter := NewStripeStarter(StarterConfig{SecretKey: "sk_test", APIBase: upstream.URL})
			_, err := starter.StartSession(context.Background(), sampleResolution())
			if fault.KindOf(err) != fault.KindUpstreamUnavailable {
				t.Fatalf("expected upstream-unavailable kind, got %v", err)
			}
		})
	}
}
